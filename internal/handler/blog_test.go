package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/owners-club/internal/handler"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/service"
)

func TestBlogHandler_DraftToPublished(t *testing.T) {
	env := newEnv(t)
	h := handler.NewBlogHandler(env.blog, env.logger)

	rr := httptest.NewRecorder()
	h.HandleCreate(rr, jsonRequest(t, http.MethodPost, "/api/admin/posts", service.PostInput{
		Title: "Track day recap",
		Body:  `<p>Great day</p><script>alert("x")</script>`,
	}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	post := decode[model.Post](t, rr)
	assert.Equal(t, "track-day-recap", post.Slug)
	assert.NotContains(t, post.Body, "<script>")
	assert.False(t, post.Published)

	getPublished := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/posts/"+post.Slug, nil)
		req.SetPathValue("slug", post.Slug)
		rr := httptest.NewRecorder()
		h.HandleGetPublished(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusNotFound, getPublished(), "drafts are hidden")

	req := httptest.NewRequest(http.MethodPost, "/api/admin/posts/"+post.ID+"/published", nil)
	req.SetPathValue("id", post.ID)
	rr = httptest.NewRecorder()
	h.HandleTogglePublished(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[model.Post](t, rr).Published)

	assert.Equal(t, http.StatusOK, getPublished())

	rr = httptest.NewRecorder()
	h.HandleListPublished(rr, httptest.NewRequest(http.MethodGet, "/api/posts", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Post](t, rr), 1)
}

func TestBlogHandler_Validation(t *testing.T) {
	env := newEnv(t)
	h := handler.NewBlogHandler(env.blog, env.logger)

	cases := []struct {
		name   string
		target string
		body   any
		field  string
	}{
		{"missing title", "/api/admin/posts", service.PostInput{Body: "x"}, "title"},
		{"bad json", "/api/admin/posts", `{"title":`, "body"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.HandleCreate(rr, jsonRequest(t, http.MethodPost, tc.target, tc.body))

			assert.Equal(t, http.StatusBadRequest, rr.Code)
			assert.Equal(t, tc.field, decode[handler.ErrorResponse](t, rr).Field)
		})
	}

	t.Run("bad pagination", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleListAll(rr, httptest.NewRequest(http.MethodGet, "/api/admin/posts?limit=-1", nil))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestSnippetHandler_CRUD(t *testing.T) {
	env := newEnv(t)
	h := handler.NewSnippetHandler(env.snippets, env.logger)

	rr := httptest.NewRecorder()
	h.HandleCreate(rr, jsonRequest(t, http.MethodPost, "/api/admin/snippets", service.SnippetInput{
		Location: "HEAD",
		Content:  `<meta name="club" content="86">`,
		Enabled:  true,
	}))

	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	snippet := decode[model.Snippet](t, rr)
	assert.Equal(t, model.SnippetHead, snippet.Location)

	withID := func(method, target string) *http.Request {
		req := httptest.NewRequest(method, target, nil)
		req.SetPathValue("id", snippet.ID)
		return req
	}

	rr = httptest.NewRecorder()
	h.HandleToggle(rr, withID(http.MethodPost, "/api/admin/snippets/"+snippet.ID+"/enabled"))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.False(t, decode[model.Snippet](t, rr).Enabled)

	req := jsonRequest(t, http.MethodPut, "/api/admin/snippets/"+snippet.ID, service.SnippetInput{
		Location: "footer",
		Content:  "x",
	})
	req.SetPathValue("id", snippet.ID)
	rr = httptest.NewRecorder()
	h.HandleUpdate(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleList(rr, httptest.NewRequest(http.MethodGet, "/api/admin/snippets", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]model.Snippet](t, rr), 1)

	rr = httptest.NewRecorder()
	h.HandleDelete(rr, withID(http.MethodDelete, "/api/admin/snippets/"+snippet.ID))
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = httptest.NewRecorder()
	h.HandleGetByID(rr, withID(http.MethodGet, "/api/admin/snippets/"+snippet.ID))
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
