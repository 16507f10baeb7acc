// Package service contains the business rules of the club site.
//
//	Handler (HTTP)     → parses requests, writes responses
//	Service (business) → validates, enforces rules, orchestrates
//	Repository (data)  → reads/writes the database
//
// Services take repository interfaces, never *sqlite.DB, so tests can hand
// them in-memory fakes. They return apperror kinds and know nothing about
// HTTP, which is also what lets cmd/clubctl reuse them.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/repository"
)

const (
	MaxSnippetLength = 100000
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// clampList applies the default and maximum page size.
func clampList(limit, offset int) repository.ListOptions {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return repository.ListOptions{Limit: limit, Offset: offset}
}

// SnippetService manages the code injection snippets admins paste into the
// console (analytics tags, widgets). Content is stored and rendered
// verbatim; only admins can reach these methods.
type SnippetService struct {
	repo   repository.SnippetRepository
	logger *slog.Logger
}

func NewSnippetService(repo repository.SnippetRepository, logger *slog.Logger) *SnippetService {
	return &SnippetService{
		repo:   repo,
		logger: logger,
	}
}

// SnippetInput is the admin-editable part of a snippet.
type SnippetInput struct {
	Location string `json:"location"`
	Content  string `json:"content"`
	Enabled  bool   `json:"enabled"`
}

func (in SnippetInput) validate() (SnippetInput, error) {
	in.Location = strings.ToLower(strings.TrimSpace(in.Location))
	if in.Location != model.SnippetHead && in.Location != model.SnippetBody {
		return in, apperror.ValidationFailed("location", `location must be "head" or "body"`)
	}
	if strings.TrimSpace(in.Content) == "" {
		return in, apperror.ValidationFailed("content", "snippet content is required")
	}
	if len(in.Content) > MaxSnippetLength {
		return in, apperror.ValidationFailed("content",
			fmt.Sprintf("snippet content must be %d characters or less", MaxSnippetLength))
	}
	return in, nil
}

// Create validates and saves a new snippet.
func (s *SnippetService) Create(ctx context.Context, in SnippetInput) (*model.Snippet, error) {
	in, err := in.validate()
	if err != nil {
		return nil, err
	}

	snippet := &model.Snippet{
		Location: in.Location,
		Content:  in.Content,
		Enabled:  in.Enabled,
	}
	if err := s.repo.Create(ctx, snippet); err != nil {
		s.logger.Error("failed to create snippet",
			slog.String("location", in.Location),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("creating snippet: %w", err)
	}

	s.logger.Info("snippet created",
		slog.String("id", snippet.ID),
		slog.String("location", snippet.Location),
		slog.Bool("enabled", snippet.Enabled),
	)
	return snippet, nil
}

// GetByID returns one snippet or apperror.ErrNotFound.
func (s *SnippetService) GetByID(ctx context.Context, id string) (*model.Snippet, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "snippet ID is required")
	}
	return s.repo.GetByID(ctx, id)
}

// List returns snippets newest first, paginated.
func (s *SnippetService) List(ctx context.Context, limit, offset int) ([]model.Snippet, error) {
	snippets, err := s.repo.List(ctx, clampList(limit, offset))
	if err != nil {
		s.logger.Error("failed to list snippets", slog.String("error", err.Error()))
		return nil, fmt.Errorf("listing snippets: %w", err)
	}
	return snippets, nil
}

// Update replaces a snippet's location, content and enabled flag.
func (s *SnippetService) Update(ctx context.Context, id string, in SnippetInput) (*model.Snippet, error) {
	snippet, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	in, err = in.validate()
	if err != nil {
		return nil, err
	}

	snippet.Location = in.Location
	snippet.Content = in.Content
	snippet.Enabled = in.Enabled
	if err := s.repo.Update(ctx, snippet); err != nil {
		return nil, fmt.Errorf("updating snippet %s: %w", id, err)
	}

	s.logger.Info("snippet updated", slog.String("id", id))
	return snippet, nil
}

// Toggle flips the enabled flag.
func (s *SnippetService) Toggle(ctx context.Context, id string) (*model.Snippet, error) {
	snippet, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	snippet.Enabled = !snippet.Enabled
	if err := s.repo.Update(ctx, snippet); err != nil {
		return nil, fmt.Errorf("toggling snippet %s: %w", id, err)
	}

	s.logger.Info("snippet toggled", slog.String("id", id), slog.Bool("enabled", snippet.Enabled))
	return snippet, nil
}

// Delete removes a snippet.
func (s *SnippetService) Delete(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return apperror.ValidationFailed("id", "snippet ID is required")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("snippet deleted", slog.String("id", id))
	return nil
}

// Injection is the enabled snippet content for each location, oldest first.
type Injection struct {
	Head []string
	Body []string
}

// Enabled returns what public pages inject. A storage failure is logged
// and yields no injection rather than a broken page.
func (s *SnippetService) Enabled(ctx context.Context) Injection {
	snippets, err := s.repo.ListEnabled(ctx)
	if err != nil {
		s.logger.Error("failed to load enabled snippets", slog.String("error", err.Error()))
		return Injection{}
	}

	var inj Injection
	for _, sn := range snippets {
		switch sn.Location {
		case model.SnippetHead:
			inj.Head = append(inj.Head, sn.Content)
		case model.SnippetBody:
			inj.Body = append(inj.Body, sn.Content)
		}
	}
	return inj
}
