package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/owners-club/internal/apperror"
)

func newTestBlogService(t *testing.T) *BlogService {
	t.Helper()
	return NewBlogService(newTestDB(t).Posts(), quietLogger())
}

func TestBlogCreate_DefaultsAndSanitizes(t *testing.T) {
	svc := newTestBlogService(t)

	post, err := svc.Create(context.Background(), PostInput{
		Title:    "  Spring Meet 2025!  ",
		Body:     `<p onclick="steal()">Hello <script>alert(1)</script><a href="https://example.com">link</a></p>`,
		MetaTags: []string{" meet ", "Meet", "", "gr86"},
	})
	require.NoError(t, err)

	assert.Equal(t, "Spring Meet 2025!", post.Title)
	assert.Equal(t, "spring-meet-2025", post.Slug)
	assert.Equal(t, post.Title, post.MetaTitle, "meta title defaults to title")
	assert.Equal(t, []string{"meet", "gr86"}, post.MetaTags)
	assert.NotContains(t, post.Body, "<script")
	assert.NotContains(t, post.Body, "onclick")
	assert.Contains(t, post.Body, "nofollow")
}

func TestBlogCreate_SlugCollision(t *testing.T) {
	svc := newTestBlogService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, PostInput{Title: "Track Day"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, PostInput{Title: "Track Day"})
	require.NoError(t, err)
	assert.Equal(t, "track-day", a.Slug)
	assert.Equal(t, "track-day-2", b.Slug)

	_, err = svc.Create(ctx, PostInput{Title: "Other", Slug: "Track Day"})
	assert.ErrorIs(t, err, apperror.ErrValidation, "explicit slug already used")
}

func TestBlogCreate_Validation(t *testing.T) {
	svc := newTestBlogService(t)

	_, err := svc.Create(context.Background(), PostInput{Title: "   "})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestBlogUpdate(t *testing.T) {
	svc := newTestBlogService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, PostInput{Title: "First"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, PostInput{Title: "Second"})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, second.ID, PostInput{Title: "Second, revised", MetaTitle: "SEO"})
	require.NoError(t, err)
	assert.Equal(t, "second", updated.Slug, "empty slug keeps the current one")
	assert.Equal(t, "SEO", updated.MetaTitle)

	_, err = svc.Update(ctx, second.ID, PostInput{Title: "x", Slug: first.Slug})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Update(ctx, "missing", PostInput{Title: "x"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestBlogPublishedVisibility(t *testing.T) {
	svc := newTestBlogService(t)
	ctx := context.Background()

	draft, err := svc.Create(ctx, PostInput{Title: "Draft"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, PostInput{Title: "Live", Published: true})
	require.NoError(t, err)

	_, err = svc.Published(ctx, draft.Slug)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	public, err := svc.List(ctx, true, 0, 0)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, "Live", public[0].Title)

	all, err := svc.List(ctx, false, 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	toggled, err := svc.TogglePublished(ctx, draft.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Published)
	_, err = svc.Published(ctx, draft.Slug)
	assert.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, draft.ID))
	_, err = svc.Get(ctx, draft.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}
