package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/service"
)

// ProfileHandler lets a signed-in member manage their own registry entry.
// Every route sits behind auth.RequireAuth.
type ProfileHandler struct {
	owners *service.OwnerService
	logger *slog.Logger
}

func NewProfileHandler(owners *service.OwnerService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{owners: owners, logger: logger}
}

// HandleGet returns the caller's profile, or 404 before registration.
//
// HTTP: GET /api/me/profile
func (h *ProfileHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	o, err := h.owners.Mine(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleRegister creates the caller's profile. A second registration for
// the same account answers 409.
//
// HTTP: POST /api/me/profile
func (h *ProfileHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.owners.Register(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

// HandleUpdate replaces the member-editable fields of the caller's profile.
//
// HTTP: PUT /api/me/profile
func (h *ProfileHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var in service.ProfileInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, err)
		return
	}

	o, err := h.owners.UpdateMine(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleDelete removes the caller's profile. The account stays.
//
// HTTP: DELETE /api/me/profile
func (h *ProfileHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	if err := h.owners.DeleteMine(r.Context(), userID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
