package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/repository"
)

// =========================================================================
// MOCK REPOSITORY
// =========================================================================

// mockSnippetRepo is an in-memory repository.SnippetRepository. It keeps
// insertion order so ListEnabled can return oldest first.
type mockSnippetRepo struct {
	snippets map[string]*model.Snippet
	order    []string
	nextID   int
	listErr  error
}

func newMockSnippetRepo() *mockSnippetRepo {
	return &mockSnippetRepo{snippets: make(map[string]*model.Snippet)}
}

func (m *mockSnippetRepo) Create(_ context.Context, snippet *model.Snippet) error {
	m.nextID++
	snippet.ID = fmt.Sprintf("mock-%d", m.nextID)
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	m.order = append(m.order, snippet.ID)
	return nil
}

func (m *mockSnippetRepo) GetByID(_ context.Context, id string) (*model.Snippet, error) {
	s, ok := m.snippets[id]
	if !ok {
		return nil, apperror.NotFound("snippet", id)
	}
	out := *s
	return &out, nil
}

func (m *mockSnippetRepo) List(_ context.Context, opts repository.ListOptions) ([]model.Snippet, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []model.Snippet{}
	for i := len(m.order) - 1; i >= 0; i-- {
		if s, ok := m.snippets[m.order[i]]; ok {
			out = append(out, *s)
		}
	}
	if opts.Offset >= len(out) {
		return []model.Snippet{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *mockSnippetRepo) ListEnabled(_ context.Context) ([]model.Snippet, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := []model.Snippet{}
	for _, id := range m.order {
		if s, ok := m.snippets[id]; ok && s.Enabled {
			out = append(out, *s)
		}
	}
	return out, nil
}

func (m *mockSnippetRepo) Update(_ context.Context, snippet *model.Snippet) error {
	if _, ok := m.snippets[snippet.ID]; !ok {
		return apperror.NotFound("snippet", snippet.ID)
	}
	stored := *snippet
	m.snippets[snippet.ID] = &stored
	return nil
}

func (m *mockSnippetRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.snippets[id]; !ok {
		return apperror.NotFound("snippet", id)
	}
	delete(m.snippets, id)
	return nil
}

func (m *mockSnippetRepo) Counts(_ context.Context) (total, enabled int, err error) {
	for _, s := range m.snippets {
		total++
		if s.Enabled {
			enabled++
		}
	}
	return total, enabled, nil
}

func newTestSnippetService(t *testing.T) (*SnippetService, *mockSnippetRepo) {
	t.Helper()
	repo := newMockSnippetRepo()
	return NewSnippetService(repo, quietLogger()), repo
}

// =========================================================================
// CREATE
// =========================================================================

func TestSnippetCreate_Success(t *testing.T) {
	svc, _ := newTestSnippetService(t)

	snippet, err := svc.Create(context.Background(), SnippetInput{
		Location: " HEAD ",
		Content:  `<script src="https://analytics.example/a.js"></script>`,
		Enabled:  true,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if snippet.ID == "" {
		t.Error("expected snippet to have an ID")
	}
	if snippet.Location != model.SnippetHead {
		t.Errorf("Location = %q, want %q", snippet.Location, model.SnippetHead)
	}
}

func TestSnippetCreate_Validation(t *testing.T) {
	tests := []struct {
		name  string
		in    SnippetInput
		field string
	}{
		{"unknown location", SnippetInput{Location: "footer", Content: "x"}, "location"},
		{"empty location", SnippetInput{Content: "x"}, "location"},
		{"empty content", SnippetInput{Location: "body"}, "content"},
		{"whitespace content", SnippetInput{Location: "body", Content: " \n\t"}, "content"},
		{"content too long", SnippetInput{Location: "body", Content: strings.Repeat("a", MaxSnippetLength+1)}, "content"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestSnippetService(t)
			_, err := svc.Create(context.Background(), tt.in)

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Create() error = %v, want validation error", err)
			}
			if appErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", appErr.Field, tt.field)
			}
		})
	}
}

// =========================================================================
// READ / LIST
// =========================================================================

func TestSnippetGetByID(t *testing.T) {
	svc, _ := newTestSnippetService(t)
	ctx := context.Background()

	if _, err := svc.GetByID(ctx, "  "); !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("empty ID error = %v, want ErrValidation", err)
	}
	if _, err := svc.GetByID(ctx, "nope"); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("unknown ID error = %v, want ErrNotFound", err)
	}
}

func TestSnippetList_ClampsBadValues(t *testing.T) {
	svc, _ := newTestSnippetService(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, SnippetInput{Location: "body", Content: fmt.Sprint(i)}); err != nil {
			t.Fatal(err)
		}
	}

	got, err := svc.List(ctx, -5, -10)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(got) != 3 {
		t.Errorf("List() returned %d, want 3", len(got))
	}
	if got[0].Content != "2" {
		t.Errorf("List()[0] = %q, want newest first", got[0].Content)
	}
}

func TestSnippetList_RepositoryError(t *testing.T) {
	svc, repo := newTestSnippetService(t)
	repo.listErr = errors.New("disk gone")

	if _, err := svc.List(context.Background(), 10, 0); err == nil {
		t.Error("List() should propagate repository errors")
	}
}

// =========================================================================
// UPDATE / TOGGLE / DELETE
// =========================================================================

func TestSnippetUpdateToggleDelete(t *testing.T) {
	svc, _ := newTestSnippetService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, SnippetInput{Location: "head", Content: "<meta name=a>", Enabled: true})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := svc.Update(ctx, created.ID, SnippetInput{Location: "body", Content: "<div id=chat></div>", Enabled: true})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Location != "body" || updated.Content != "<div id=chat></div>" {
		t.Errorf("Update() = %+v", updated)
	}

	toggled, err := svc.Toggle(ctx, created.ID)
	if err != nil {
		t.Fatalf("Toggle() error = %v", err)
	}
	if toggled.Enabled {
		t.Error("Toggle() should disable an enabled snippet")
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.GetByID(ctx, created.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetByID() after delete = %v, want ErrNotFound", err)
	}
	if _, err := svc.Update(ctx, created.ID, SnippetInput{Location: "body", Content: "x"}); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("Update() after delete = %v, want ErrNotFound", err)
	}
}

// =========================================================================
// INJECTION
// =========================================================================

func TestSnippetEnabled_GroupsByLocationInCreationOrder(t *testing.T) {
	svc, _ := newTestSnippetService(t)
	ctx := context.Background()

	for _, in := range []SnippetInput{
		{Location: "head", Content: "h1", Enabled: true},
		{Location: "body", Content: "b1", Enabled: true},
		{Location: "head", Content: "off", Enabled: false},
		{Location: "head", Content: "h2", Enabled: true},
	} {
		if _, err := svc.Create(ctx, in); err != nil {
			t.Fatal(err)
		}
	}

	inj := svc.Enabled(ctx)
	if strings.Join(inj.Head, ",") != "h1,h2" {
		t.Errorf("Head = %v, want [h1 h2]", inj.Head)
	}
	if strings.Join(inj.Body, ",") != "b1" {
		t.Errorf("Body = %v, want [b1]", inj.Body)
	}
}

func TestSnippetEnabled_StorageFailureInjectsNothing(t *testing.T) {
	svc, repo := newTestSnippetService(t)
	repo.listErr = errors.New("locked")

	inj := svc.Enabled(context.Background())
	if len(inj.Head) != 0 || len(inj.Body) != 0 {
		t.Errorf("Enabled() = %+v, want empty", inj)
	}
}
