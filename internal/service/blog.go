package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/registry"
	"github.com/sakif/owners-club/internal/repository"
)

const (
	MaxTitleLength           = 200
	MaxMetaDescriptionLength = 300
	MaxMetaTags              = 20
)

// BlogService manages blog posts. Bodies come from the admin rich-text
// editor as HTML and are sanitized before they are stored.
type BlogService struct {
	posts  repository.PostRepository
	policy *bluemonday.Policy
	logger *slog.Logger
}

func NewBlogService(posts repository.PostRepository, logger *slog.Logger) *BlogService {
	policy := bluemonday.UGCPolicy()
	// The editor emits alignment classes.
	policy.AllowAttrs("class").OnElements("p", "span", "div", "img", "pre", "code")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)

	return &BlogService{posts: posts, policy: policy, logger: logger}
}

// PostInput is the editable part of a post. An empty Slug on create is
// generated from the title.
type PostInput struct {
	Title           string   `json:"title"`
	Slug            string   `json:"slug"`
	CoverImageURL   string   `json:"coverImageUrl"`
	Body            string   `json:"body"`
	Published       bool     `json:"published"`
	MetaTitle       string   `json:"metaTitle"`
	MetaDescription string   `json:"metaDescription"`
	MetaTags        []string `json:"metaTags"`
}

func (s *BlogService) clean(in PostInput) (PostInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return in, apperror.ValidationFailed("title", "title is required")
	}
	if len(in.Title) > MaxTitleLength {
		return in, apperror.ValidationFailed("title",
			fmt.Sprintf("title must be %d characters or less", MaxTitleLength))
	}

	in.Slug = registry.Slugify(in.Slug)
	in.CoverImageURL = strings.TrimSpace(in.CoverImageURL)
	in.Body = s.policy.Sanitize(in.Body)

	in.MetaTitle = strings.TrimSpace(in.MetaTitle)
	if in.MetaTitle == "" {
		in.MetaTitle = in.Title
	}
	in.MetaDescription = strings.TrimSpace(in.MetaDescription)
	if len(in.MetaDescription) > MaxMetaDescriptionLength {
		return in, apperror.ValidationFailed("metaDescription",
			fmt.Sprintf("meta description must be %d characters or less", MaxMetaDescriptionLength))
	}

	in.MetaTags = metaTags(in.MetaTags)
	if len(in.MetaTags) > MaxMetaTags {
		return in, apperror.ValidationFailed("metaTags", fmt.Sprintf("at most %d tags", MaxMetaTags))
	}
	return in, nil
}

// metaTags trims tags, drops blanks and keeps the first of any
// case-insensitive duplicates.
func metaTags(in []string) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]bool, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// Create saves a new post.
func (s *BlogService) Create(ctx context.Context, in PostInput) (*model.Post, error) {
	in, err := s.clean(in)
	if err != nil {
		return nil, err
	}
	if in.Slug == "" {
		if in.Slug, err = s.uniqueSlug(ctx, in.Title, ""); err != nil {
			return nil, err
		}
	}

	post := &model.Post{}
	in.apply(post)
	if err := s.posts.Create(ctx, post); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return nil, apperror.ValidationFailed("slug", fmt.Sprintf("slug %q is already used", post.Slug))
		}
		return nil, fmt.Errorf("creating post: %w", err)
	}

	s.logger.Info("post created", slog.String("id", post.ID), slog.String("slug", post.Slug))
	return post, nil
}

// Update replaces a post's editable fields. An empty slug keeps the
// current one.
func (s *BlogService) Update(ctx context.Context, id string, in PostInput) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err = s.clean(in)
	if err != nil {
		return nil, err
	}
	if in.Slug == "" {
		in.Slug = post.Slug
	} else if in.Slug != post.Slug {
		taken, err := s.posts.SlugExists(ctx, in.Slug, id)
		if err != nil {
			return nil, fmt.Errorf("checking slug: %w", err)
		}
		if taken {
			return nil, apperror.ValidationFailed("slug", fmt.Sprintf("slug %q is already used", in.Slug))
		}
	}

	in.apply(post)
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("updating post %s: %w", id, err)
	}

	s.logger.Info("post updated", slog.String("id", id))
	return post, nil
}

// TogglePublished flips a post between draft and published.
func (s *BlogService) TogglePublished(ctx context.Context, id string) (*model.Post, error) {
	post, err := s.posts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	post.Published = !post.Published
	if err := s.posts.Update(ctx, post); err != nil {
		return nil, fmt.Errorf("toggling post %s: %w", id, err)
	}

	s.logger.Info("post publish state changed", slog.String("id", id), slog.Bool("published", post.Published))
	return post, nil
}

// Delete removes a post.
func (s *BlogService) Delete(ctx context.Context, id string) error {
	if err := s.posts.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("post deleted", slog.String("id", id))
	return nil
}

// Get returns any post by ID, drafts included.
func (s *BlogService) Get(ctx context.Context, id string) (*model.Post, error) {
	return s.posts.GetByID(ctx, id)
}

// Published returns a published post by slug; drafts read as not found.
func (s *BlogService) Published(ctx context.Context, slug string) (*model.Post, error) {
	post, err := s.posts.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !post.Published {
		return nil, apperror.NotFound("post", slug)
	}
	return post, nil
}

// List returns posts newest first. publishedOnly hides drafts.
func (s *BlogService) List(ctx context.Context, publishedOnly bool, limit, offset int) ([]model.Post, error) {
	posts, err := s.posts.List(ctx, repository.PostQuery{
		PublishedOnly: publishedOnly,
		ListOptions:   clampList(limit, offset),
	})
	if err != nil {
		s.logger.Error("failed to list posts", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	return posts, nil
}

func (s *BlogService) uniqueSlug(ctx context.Context, title, excludeID string) (string, error) {
	base := registry.Slugify(title)
	if base == "" {
		base = "post"
	}
	candidate := base
	for i := 2; ; i++ {
		taken, err := s.posts.SlugExists(ctx, candidate, excludeID)
		if err != nil {
			return "", fmt.Errorf("checking slug %s: %w", candidate, err)
		}
		if !taken {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}

func (in PostInput) apply(p *model.Post) {
	p.Title = in.Title
	p.Slug = in.Slug
	p.CoverImageURL = in.CoverImageURL
	p.Body = in.Body
	p.Published = in.Published
	p.MetaTitle = in.MetaTitle
	p.MetaDescription = in.MetaDescription
	p.MetaTags = in.MetaTags
}
