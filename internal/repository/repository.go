// Package repository defines the storage interfaces the services depend on.
//
// Services accept these interfaces, never a concrete database type, so the
// SQLite implementation can be swapped for an in-memory fake in tests.
package repository

import (
	"context"

	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/registry"
)

// ListOptions is offset pagination for admin lists.
type ListOptions struct {
	Limit  int
	Offset int
}

// OwnerQuery narrows an owner listing. Rows are always newest first.
type OwnerQuery struct {
	PublicOnly   bool
	FeaturedOnly bool
	Limit        int // 0 = no limit
}

// OwnerRepository stores owner profiles.
//
// Reads return raw rows rather than model.Owner: a row only becomes an
// Owner by passing through registry.Normalize.
type OwnerRepository interface {
	ListRows(ctx context.Context, q OwnerQuery) ([]registry.RawRow, error)
	GetRowByID(ctx context.Context, id string) (registry.RawRow, error)
	GetRowByUsername(ctx context.Context, username string) (registry.RawRow, error)
	GetRowByUserID(ctx context.Context, userID string) (registry.RawRow, error)
	UsernameExists(ctx context.Context, username string) (bool, error)

	Create(ctx context.Context, o *model.Owner) error
	Update(ctx context.Context, o *model.Owner) error
	SetPublic(ctx context.Context, id string, public bool) error
	SetFeatured(ctx context.Context, id string, featured bool) error
	SetBadges(ctx context.Context, id string, badges []string) error
	Delete(ctx context.Context, id string) error
}

// UserRepository stores accounts and the admin role.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// UpsertGitHub creates or refreshes the account linked to user.GitHubID.
	UpsertGitHub(ctx context.Context, user *model.User) error

	IsAdmin(ctx context.Context, userID string) (bool, error)
	SetAdmin(ctx context.Context, userID string, admin bool) error
}

// PostQuery narrows a post listing. Posts are newest first.
type PostQuery struct {
	PublishedOnly bool
	ListOptions
}

// PostRepository stores blog posts.
type PostRepository interface {
	Create(ctx context.Context, post *model.Post) error
	GetByID(ctx context.Context, id string) (*model.Post, error)
	GetBySlug(ctx context.Context, slug string) (*model.Post, error)
	List(ctx context.Context, q PostQuery) ([]model.Post, error)
	// SlugExists reports whether another post (not excludeID) uses slug.
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	Update(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context) (total, published int, err error)
}

// SnippetRepository stores code injection snippets.
type SnippetRepository interface {
	Create(ctx context.Context, snippet *model.Snippet) error
	GetByID(ctx context.Context, id string) (*model.Snippet, error)
	List(ctx context.Context, opts ListOptions) ([]model.Snippet, error)
	ListEnabled(ctx context.Context) ([]model.Snippet, error)
	Update(ctx context.Context, snippet *model.Snippet) error
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context) (total, enabled int, err error)
}

// SettingsRepository stores site settings as key/value pairs.
type SettingsRepository interface {
	GetAll(ctx context.Context) (model.SiteSettings, error)
	Set(ctx context.Context, key, value string) error
	// SetMany writes every pair or none of them.
	SetMany(ctx context.Context, values map[string]string) error
}
