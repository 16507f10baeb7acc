package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/registry"
	"github.com/sakif/owners-club/internal/service"
)

// AdminHandler serves the admin console: member management, badge edits,
// site settings and the dashboard counts. The server mounts it behind
// auth.RequireAuth and auth.RequireAdmin.
type AdminHandler struct {
	owners    *service.OwnerService
	badges    *service.BadgeSessions
	settings  *service.SettingsService
	dashboard *service.DashboardService
	logger    *slog.Logger
}

func NewAdminHandler(
	owners *service.OwnerService,
	badges *service.BadgeSessions,
	settings *service.SettingsService,
	dashboard *service.DashboardService,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{
		owners:    owners,
		badges:    badges,
		settings:  settings,
		dashboard: dashboard,
		logger:    logger,
	}
}

// HandleDashboard returns the headline counts.
//
// HTTP: GET /api/admin/dashboard
func (h *AdminHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	counts, err := h.dashboard.Counts(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// HandleListOwners returns every profile through the admin filters.
//
// HTTP: GET /api/admin/owners?search=sam&colour=Red&country=Japan&year=2016&status=private&session={sid}
//
// session, when given, is an open badge edit to include in the view.
func (h *AdminHandler) HandleListOwners(w http.ResponseWriter, r *http.Request) {
	c, err := adminCriteria(r)
	if err != nil {
		writeError(w, err)
		return
	}
	adminID, _ := auth.UserIDFromContext(r.Context())

	var session *registry.BadgeSession
	if sid := r.URL.Query().Get("session"); sid != "" {
		s, err := h.badges.Get(adminID, sid)
		if err != nil {
			writeError(w, err)
			return
		}
		session = &s
	}

	vc := registry.ViewContext{
		Settings: h.settings.ForRender(r.Context()),
		Viewer:   registry.Viewer{UserID: adminID, IsAdmin: true},
	}
	view, err := h.owners.AdminView(r.Context(), c, vc, session)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleGetOwner returns one profile, public or not.
//
// HTTP: GET /api/admin/owners/{id}
func (h *AdminHandler) HandleGetOwner(w http.ResponseWriter, r *http.Request) {
	o, err := h.owners.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleTogglePublic flips a profile's visibility.
//
// HTTP: POST /api/admin/owners/{id}/public
func (h *AdminHandler) HandleTogglePublic(w http.ResponseWriter, r *http.Request) {
	o, err := h.owners.TogglePublic(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleToggleFeatured flips a profile's featured flag.
//
// HTTP: POST /api/admin/owners/{id}/featured
func (h *AdminHandler) HandleToggleFeatured(w http.ResponseWriter, r *http.Request) {
	o, err := h.owners.ToggleFeatured(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleDeleteOwner removes a profile.
//
// HTTP: DELETE /api/admin/owners/{id}
func (h *AdminHandler) HandleDeleteOwner(w http.ResponseWriter, r *http.Request) {
	if err := h.owners.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BadgeSessionResponse is an open badge edit as the console renders it.
type BadgeSessionResponse struct {
	SessionID string              `json:"sessionId"`
	Edit      *registry.BadgeEdit `json:"edit"`
}

// HandleOpenBadgeSession starts a badge edit for an owner.
//
// HTTP: POST /api/admin/owners/{id}/badge-sessions
func (h *AdminHandler) HandleOpenBadgeSession(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.UserIDFromContext(r.Context())

	sid, session, err := h.badges.Open(r.Context(), adminID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, badgeSessionResponse(sid, session))
}

// HandleGetBadgeSession returns the current state of a badge edit.
//
// HTTP: GET /api/admin/badge-sessions/{sid}
func (h *AdminHandler) HandleGetBadgeSession(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.UserIDFromContext(r.Context())
	sid := r.PathValue("sid")

	session, err := h.badges.Get(adminID, sid)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, badgeSessionResponse(sid, session))
}

type toggleBadgeRequest struct {
	Label string `json:"label"`
}

// HandleToggleBadge adds or removes one label in a badge edit.
//
// HTTP: POST /api/admin/badge-sessions/{sid}/toggle
// REQUEST BODY: {"label": "Community Host"}
func (h *AdminHandler) HandleToggleBadge(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.UserIDFromContext(r.Context())
	sid := r.PathValue("sid")

	var req toggleBadgeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	session, err := h.badges.Toggle(adminID, sid, req.Label)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, badgeSessionResponse(sid, session))
}

// HandleCommitBadges saves a badge edit and closes it.
//
// HTTP: POST /api/admin/badge-sessions/{sid}/commit
func (h *AdminHandler) HandleCommitBadges(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.UserIDFromContext(r.Context())

	badges, err := h.badges.Commit(r.Context(), adminID, r.PathValue("sid"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"badges": badges})
}

// HandleDiscardBadges closes a badge edit without saving.
//
// HTTP: DELETE /api/admin/badge-sessions/{sid}
func (h *AdminHandler) HandleDiscardBadges(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.UserIDFromContext(r.Context())

	if err := h.badges.Discard(adminID, r.PathValue("sid")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleGetSettings returns every site setting.
//
// HTTP: GET /api/admin/settings
func (h *AdminHandler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// HandleUpdateSettings writes a batch of settings. Unknown keys reject the
// whole batch.
//
// HTTP: PUT /api/admin/settings
// REQUEST BODY: {"homepage_tagline": "...", "hero_cta": "Join the club"}
func (h *AdminHandler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decodeJSON(w, r, &values); err != nil {
		writeError(w, err)
		return
	}

	if err := h.settings.SetMany(r.Context(), values); err != nil {
		writeError(w, err)
		return
	}
	settings, err := h.settings.All(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func badgeSessionResponse(sid string, s registry.BadgeSession) BadgeSessionResponse {
	return BadgeSessionResponse{
		SessionID: sid,
		Edit:      registry.NewBadgeEdit(&s, model.AvailableBadges),
	}
}

// adminCriteria reads the member management filters.
func adminCriteria(r *http.Request) (registry.Criteria, error) {
	q := r.URL.Query()

	year := 0
	if raw := filterValue(strings.TrimSpace(q.Get("year"))); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return registry.Criteria{}, apperror.ValidationFailed("year", "year must be a number")
		}
		year = n
	}
	status, ok := registry.ParseStatus(q.Get("status"))
	if !ok {
		return registry.Criteria{}, apperror.ValidationFailed("status",
			"status must be one of all, public, private, featured")
	}

	return registry.Criteria{
		Colour:  filterValue(q.Get("colour")),
		Country: filterValue(q.Get("country")),
		Year:    year,
		Status:  status,
		Search:  strings.TrimSpace(q.Get("search")),
	}, nil
}
