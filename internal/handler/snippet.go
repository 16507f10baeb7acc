package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/owners-club/internal/service"
)

// SnippetHandler manages the code injection snippets from the admin
// console. Enabled snippets are written into every public page's head or
// body by PageHandler.
type SnippetHandler struct {
	snippets *service.SnippetService
	logger   *slog.Logger
}

// NewSnippetHandler creates a new SnippetHandler.
func NewSnippetHandler(snippets *service.SnippetService, logger *slog.Logger) *SnippetHandler {
	return &SnippetHandler{snippets: snippets, logger: logger}
}

// HandleList returns snippets, newest first.
//
// HTTP: GET /api/admin/snippets?limit=20&offset=0
//
// RESPONSE FORMAT:
//
//	[
//	  {"id":"abc","location":"head","content":"<script>…</script>","enabled":true,...},
//	  ...
//	]
func (h *SnippetHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pagination(r)
	if err != nil {
		writeError(w, err)
		return
	}

	snippets, err := h.snippets.List(r.Context(), limit, offset)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippets)
}

// HandleGetByID returns one snippet.
//
// HTTP: GET /api/admin/snippets/{id}
func (h *SnippetHandler) HandleGetByID(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleCreate saves a new snippet.
//
// HTTP: POST /api/admin/snippets
// REQUEST BODY: {"location": "head", "content": "<meta ...>", "enabled": true}
func (h *SnippetHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in service.SnippetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, snippet)
}

// HandleUpdate replaces a snippet.
//
// HTTP: PUT /api/admin/snippets/{id}
func (h *SnippetHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var in service.SnippetInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	snippet, err := h.snippets.Update(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleToggle flips a snippet's enabled flag.
//
// HTTP: POST /api/admin/snippets/{id}/enabled
func (h *SnippetHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	snippet, err := h.snippets.Toggle(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snippet)
}

// HandleDelete removes a snippet.
//
// HTTP: DELETE /api/admin/snippets/{id}
func (h *SnippetHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.snippets.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
