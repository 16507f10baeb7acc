package service

import (
	"context"
	"fmt"

	"github.com/sakif/owners-club/internal/registry"
	"github.com/sakif/owners-club/internal/repository"
)

// DashboardCounts are the tiles on the admin dashboard.
type DashboardCounts struct {
	Members         int `json:"members"`
	PublicMembers   int `json:"publicMembers"`
	FeaturedMembers int `json:"featuredMembers"`
	Countries       int `json:"countries"`

	Posts          int `json:"posts"`
	PublishedPosts int `json:"publishedPosts"`
	DraftPosts     int `json:"draftPosts"`

	Snippets        int `json:"snippets"`
	EnabledSnippets int `json:"enabledSnippets"`
}

// DashboardService gathers the admin dashboard counts.
type DashboardService struct {
	owners   *OwnerService
	posts    repository.PostRepository
	snippets repository.SnippetRepository
}

func NewDashboardService(owners *OwnerService, posts repository.PostRepository, snippets repository.SnippetRepository) *DashboardService {
	return &DashboardService{owners: owners, posts: posts, snippets: snippets}
}

// Counts computes member stats over every usable profile and counts posts
// and snippets in storage.
func (s *DashboardService) Counts(ctx context.Context) (DashboardCounts, error) {
	members, err := s.owners.All(ctx)
	if err != nil {
		return DashboardCounts{}, err
	}
	stats := registry.Compute(members)

	posts, published, err := s.posts.Counts(ctx)
	if err != nil {
		return DashboardCounts{}, fmt.Errorf("counting posts: %w", err)
	}
	snippets, enabled, err := s.snippets.Counts(ctx)
	if err != nil {
		return DashboardCounts{}, fmt.Errorf("counting snippets: %w", err)
	}

	return DashboardCounts{
		Members:         stats.Total,
		PublicMembers:   stats.Public,
		FeaturedMembers: stats.Featured,
		Countries:       stats.Countries,
		Posts:           posts,
		PublishedPosts:  published,
		DraftPosts:      posts - published,
		Snippets:        snippets,
		EnabledSnippets: enabled,
	}, nil
}
