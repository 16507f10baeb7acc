package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/owners-club/internal/service"
)

// BlogHandler serves posts: the public read side and the admin CRUD.
type BlogHandler struct {
	blog   *service.BlogService
	logger *slog.Logger
}

func NewBlogHandler(blog *service.BlogService, logger *slog.Logger) *BlogHandler {
	return &BlogHandler{blog: blog, logger: logger}
}

// HandleListPublished returns published posts, newest first.
//
// HTTP: GET /api/posts?limit=20&offset=0
func (h *BlogHandler) HandleListPublished(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, true)
}

// HandleGetPublished returns a published post by slug. Drafts answer 404.
//
// HTTP: GET /api/posts/{slug}
func (h *BlogHandler) HandleGetPublished(w http.ResponseWriter, r *http.Request) {
	post, err := h.blog.Published(r.Context(), r.PathValue("slug"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleListAll returns every post, drafts included.
//
// HTTP: GET /api/admin/posts?limit=20&offset=0
func (h *BlogHandler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, false)
}

// HandleGet returns any post by ID.
//
// HTTP: GET /api/admin/posts/{id}
func (h *BlogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	post, err := h.blog.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleCreate saves a new post. An empty slug is derived from the title.
//
// HTTP: POST /api/admin/posts
func (h *BlogHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.blog.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

// HandleUpdate replaces a post.
//
// HTTP: PUT /api/admin/posts/{id}
func (h *BlogHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.PostInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	post, err := h.blog.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleTogglePublished flips a post between draft and published.
//
// HTTP: POST /api/admin/posts/{id}/published
func (h *BlogHandler) HandleTogglePublished(w http.ResponseWriter, r *http.Request) {
	post, err := h.blog.TogglePublished(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// HandleDelete removes a post.
//
// HTTP: DELETE /api/admin/posts/{id}
func (h *BlogHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.blog.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *BlogHandler) list(w http.ResponseWriter, r *http.Request, publishedOnly bool) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, err)
		return
	}

	posts, err := h.blog.List(r.Context(), publishedOnly, limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}
