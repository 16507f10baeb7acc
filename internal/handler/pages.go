// Package handler contains the HTTP handlers for the club site.
//
// WHAT IS A HANDLER?
// In Go, an HTTP handler is anything that implements the http.Handler interface:
//
//	type Handler interface {
//	    ServeHTTP(ResponseWriter, *Request)
//	}
//
// Or more commonly, a function with the http.HandlerFunc signature, which
// chi accepts directly.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (path values, query, body)
// 2. Call a service
// 3. Write the response: JSON for /api, rendered HTML for pages
//
// Handlers hold no business rules; those live in internal/service and
// internal/registry.
package handler

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/csrf"

	"github.com/sakif/owners-club/internal/apperror"
	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/registry"
	"github.com/sakif/owners-club/internal/service"
)

// pageNames are the templates rendered inside base.html.
var pageNames = []string{"home", "directory", "member", "blog", "post", "login", "dashboard", "notfound"}

var pageFuncs = template.FuncMap{
	"displayImage": registry.DisplayImage,
	"location":     registry.Location,
	"join":         strings.Join,
	"date":         func(t time.Time) string { return t.Format("2 Jan 2006") },
	"setting":      func(s model.SiteSettings, key, fallback string) string { return settingOr(s, key, fallback) },
}

// PageHandler renders the public HTML pages.
//
// Templates are parsed once at startup: each page is base.html plus the
// page's own file, which fills {{define "content"}}.
type PageHandler struct {
	pages    map[string]*template.Template
	owners   *service.OwnerService
	blog     *service.BlogService
	settings *service.SettingsService
	snippets *service.SnippetService
	admins   auth.AdminChecker
	github   bool
	logger   *slog.Logger
}

// PageDeps groups what the pages read from.
type PageDeps struct {
	Owners   *service.OwnerService
	Blog     *service.BlogService
	Settings *service.SettingsService
	Snippets *service.SnippetService
	Admins   auth.AdminChecker

	// GitHubLogin shows the GitHub button on the sign-in page.
	GitHubLogin bool
}

// NewPageHandler parses the templates in templateDir.
func NewPageHandler(templateDir string, deps PageDeps, logger *slog.Logger) (*PageHandler, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("base.html").Funcs(pageFuncs).ParseFiles(
			filepath.Join(templateDir, "base.html"),
			filepath.Join(templateDir, name+".html"),
		)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}

	return &PageHandler{
		pages:    pages,
		owners:   deps.Owners,
		blog:     deps.Blog,
		settings: deps.Settings,
		snippets: deps.Snippets,
		admins:   deps.Admins,
		github:   deps.GitHubLogin,
		logger:   logger,
	}, nil
}

// page is what base.html sees. Content is the page-specific data.
type page struct {
	Title       string
	Description string
	Settings    model.SiteSettings
	Viewer      registry.Viewer
	CSRFToken   string
	HeadInject  []template.HTML
	BodyInject  []template.HTML
	Content     any
}

// DirectoryPage is the content of /directory.
type DirectoryPage struct {
	View     registry.View
	Criteria registry.Criteria
}

// DashboardPage is the content of /dashboard. Owner is nil until the
// member registers.
type DashboardPage struct {
	Owner   *model.Owner
	Options OptionsResponse
}

// PostPage is the content of /blog/{slug}. Body was sanitized on save.
type PostPage struct {
	Post *model.Post
	Body template.HTML
}

// HandleHome renders the home page.
//
// HTTP: GET /
func (h *PageHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(r)
	home, err := h.owners.Home(r.Context(), registry.ViewContext{Settings: p.Settings, Viewer: p.Viewer})
	if err != nil {
		h.fail(w, r, p, err)
		return
	}

	p.Title = settingOr(p.Settings, model.SettingSiteTitle, "Owners Club")
	p.Content = home
	h.render(w, http.StatusOK, "home", p)
}

// HandleDirectory renders the member directory.
//
// HTTP: GET /directory?colour=Red&country=Japan&transmission=Manual
func (h *PageHandler) HandleDirectory(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(r)
	c := directoryCriteria(r)
	view, err := h.owners.Directory(r.Context(), c, registry.ViewContext{Settings: p.Settings, Viewer: p.Viewer})
	if err != nil {
		h.fail(w, r, p, err)
		return
	}

	p.Title = "Member Directory"
	p.Content = DirectoryPage{View: view, Criteria: c}
	h.render(w, http.StatusOK, "directory", p)
}

// HandleMember renders one member profile.
//
// HTTP: GET /member/{username}
func (h *PageHandler) HandleMember(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(r)
	o, err := h.owners.Member(r.Context(), r.PathValue("username"), p.Viewer)
	if err != nil {
		h.fail(w, r, p, err)
		return
	}

	p.Title = o.DisplayName
	p.Description = fmt.Sprintf("%s's %d %s in %s", o.DisplayName, o.Year, o.Colour, registry.Location(*o))
	p.Content = *o
	h.render(w, http.StatusOK, "member", p)
}

// HandleBlog renders the published post list.
//
// HTTP: GET /blog
func (h *PageHandler) HandleBlog(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(r)
	posts, err := h.blog.List(r.Context(), true, service.MaxListLimit, 0)
	if err != nil {
		h.fail(w, r, p, err)
		return
	}

	p.Title = "Blog"
	p.Content = posts
	h.render(w, http.StatusOK, "blog", p)
}

// HandlePost renders a published post with its meta tags.
//
// HTTP: GET /blog/{slug}
func (h *PageHandler) HandlePost(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(r)
	post, err := h.blog.Published(r.Context(), r.PathValue("slug"))
	if err != nil {
		h.fail(w, r, p, err)
		return
	}

	p.Title = post.MetaTitle
	p.Description = post.MetaDescription
	// Bodies are sanitized by BlogService before they are stored.
	p.Content = PostPage{Post: post, Body: template.HTML(post.Body)}
	h.render(w, http.StatusOK, "post", p)
}

// HandleLogin renders the sign-in and sign-up forms. Signed-in members go
// straight to their dashboard.
//
// HTTP: GET /login
func (h *PageHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(r)
	if p.Viewer.Authenticated() {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	p.Title = "Sign in"
	p.Content = h.github
	h.render(w, http.StatusOK, "login", p)
}

// HandleDashboard renders the member's registration or edit form.
//
// HTTP: GET /dashboard
func (h *PageHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(r)
	if !p.Viewer.Authenticated() {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
		return
	}

	o, err := h.owners.Mine(r.Context(), p.Viewer.UserID)
	if err != nil && !errors.Is(err, apperror.ErrNotFound) {
		h.fail(w, r, p, err)
		return
	}

	p.Title = "Dashboard"
	p.Content = DashboardPage{Owner: o, Options: registrationOptions()}
	h.render(w, http.StatusOK, "dashboard", p)
}

// HandleNotFound renders the 404 page for unknown paths.
func (h *PageHandler) HandleNotFound(w http.ResponseWriter, r *http.Request) {
	p := h.newPage(r)
	p.Title = "Not found"
	h.render(w, http.StatusNotFound, "notfound", p)
}

// newPage gathers what every page shows: settings, the viewer, the CSRF
// token and the enabled injection snippets.
func (h *PageHandler) newPage(r *http.Request) page {
	inj := h.snippets.Enabled(r.Context())
	settings := h.settings.ForRender(r.Context())
	return page{
		Description: settings.Get(model.SettingMetaDescription),
		Settings:    settings,
		Viewer:      viewerOf(r, h.admins, h.logger),
		CSRFToken:   csrf.Token(r),
		// Snippets are admin-authored markup and are written out verbatim.
		HeadInject: trusted(inj.Head),
		BodyInject: trusted(inj.Body),
	}
}

func (h *PageHandler) fail(w http.ResponseWriter, r *http.Request, p page, err error) {
	if errors.Is(err, apperror.ErrNotFound) {
		p.Title = "Not found"
		h.render(w, http.StatusNotFound, "notfound", p)
		return
	}

	h.logger.Error("page failed",
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// render executes into a buffer first so a template error never leaves a
// half-written page behind.
func (h *PageHandler) render(w http.ResponseWriter, status int, name string, p page) {
	var buf bytes.Buffer
	if err := h.pages[name].ExecuteTemplate(&buf, "base", p); err != nil {
		h.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func trusted(fragments []string) []template.HTML {
	out := make([]template.HTML, len(fragments))
	for i, f := range fragments {
		out[i] = template.HTML(f)
	}
	return out
}

func settingOr(s model.SiteSettings, key, fallback string) string {
	if v := s.Get(key); v != "" {
		return v
	}
	return fallback
}
