package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/registry"
	"github.com/sakif/owners-club/internal/service"
)

// DirectoryHandler serves the public read side of the registry as JSON:
// the home page data, the filtered directory and single member profiles.
type DirectoryHandler struct {
	owners   *service.OwnerService
	settings *service.SettingsService
	admins   auth.AdminChecker
	logger   *slog.Logger
}

func NewDirectoryHandler(
	owners *service.OwnerService,
	settings *service.SettingsService,
	admins auth.AdminChecker,
	logger *slog.Logger,
) *DirectoryHandler {
	return &DirectoryHandler{owners: owners, settings: settings, admins: admins, logger: logger}
}

// OptionsResponse lists the fixed choices of the registration form.
type OptionsResponse struct {
	Countries     []string `json:"countries"`
	RegionCountry string   `json:"regionCountry"`
	Regions       []string `json:"regions"`
	Years         []int    `json:"years"`
	Transmissions []string `json:"transmissions"`
	Colours       []string `json:"colours"`
	Badges        []string `json:"badges"`
	MaxPhotos     int      `json:"maxPhotos"`
	MaxPostURLs   int      `json:"maxPostUrls"`
}

// HandleOptions returns the registration form's option sets.
//
// HTTP: GET /api/options
func (h *DirectoryHandler) HandleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, registrationOptions())
}

func registrationOptions() OptionsResponse {
	return OptionsResponse{
		Countries:     model.Countries,
		RegionCountry: model.RegionCountry,
		Regions:       model.Regions,
		Years:         model.Years,
		Transmissions: model.Transmissions,
		Colours:       model.Colours,
		Badges:        model.AvailableBadges,
		MaxPhotos:     model.MaxPhotos,
		MaxPostURLs:   model.MaxPostURLs,
	}
}

// HandleHome returns the newest and featured public members plus stats.
//
// HTTP: GET /api/home
func (h *DirectoryHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	home, err := h.owners.Home(r.Context(), h.viewContext(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, home)
}

// HandleDirectory returns public profiles, newest first.
//
// HTTP: GET /api/directory?colour=Red&country=Japan&transmission=Manual
func (h *DirectoryHandler) HandleDirectory(w http.ResponseWriter, r *http.Request) {
	view, err := h.owners.Directory(r.Context(), directoryCriteria(r), h.viewContext(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// HandleMember returns one profile by username. Private profiles answer
// 404 to everyone except their owner and admins.
//
// HTTP: GET /api/members/{username}
func (h *DirectoryHandler) HandleMember(w http.ResponseWriter, r *http.Request) {
	o, err := h.owners.Member(r.Context(), r.PathValue("username"), viewerOf(r, h.admins, h.logger))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

// HandleSettings returns the public site settings.
//
// HTTP: GET /api/settings
func (h *DirectoryHandler) HandleSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.settings.ForRender(r.Context()))
}

func (h *DirectoryHandler) viewContext(r *http.Request) registry.ViewContext {
	return registry.ViewContext{
		Settings: h.settings.ForRender(r.Context()),
		Viewer:   viewerOf(r, h.admins, h.logger),
	}
}

// directoryCriteria reads the three public filters. Empty or "all" means
// no constraint.
func directoryCriteria(r *http.Request) registry.Criteria {
	q := r.URL.Query()
	return registry.Criteria{
		Colour:       filterValue(q.Get("colour")),
		Country:      filterValue(q.Get("country")),
		Transmission: filterValue(q.Get("transmission")),
	}
}

func filterValue(v string) string {
	if v == "all" {
		return ""
	}
	return v
}
