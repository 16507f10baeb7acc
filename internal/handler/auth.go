package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/csrf"
	"github.com/rs/xid"

	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler serves sign-up, sign-in and the session endpoints.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignUp / HandleLogin → email + password, sets the JWT cookie
//   - HandleLogout               → clears the JWT cookie
//   - HandleMe                   → the signed-in account and its role
//   - HandleCSRF                 → the token mutating requests must echo
//   - HandleGitHubLogin/Callback → optional GitHub sign-in
//
// github is nil when GitHub sign-in is not configured; the server then
// leaves the /auth/github routes unregistered.
type AuthHandler struct {
	auth   *service.AuthService
	github *auth.GitHubProvider
	ttl    time.Duration
	secure bool
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler. ttl is the session cookie
// lifetime and secure marks cookies HTTPS-only.
func NewAuthHandler(
	authService *service.AuthService,
	github *auth.GitHubProvider,
	ttl time.Duration,
	secure bool,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		auth:   authService,
		github: github,
		ttl:    ttl,
		secure: secure,
		logger: logger,
	}
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// MeResponse is the session state the front end reads on load.
type MeResponse struct {
	User    *model.User `json:"user"`
	IsAdmin bool        `json:"isAdmin"`
}

// HandleSignUp creates an account and signs it in.
//
// HTTP: POST /api/auth/signup
// REQUEST BODY: {"email": "sam@example.com", "password": "..."}
func (h *AuthHandler) HandleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	auth.SetTokenCookie(w, res.Token, h.ttl, h.secure)
	writeJSON(w, http.StatusCreated, MeResponse{User: res.User})
}

// HandleLogin signs an existing account in.
//
// HTTP: POST /api/auth/login
// REQUEST BODY: {"email": "sam@example.com", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	isAdmin, err := h.auth.IsAdmin(r.Context(), res.User.ID)
	if err != nil {
		h.logger.Error("admin lookup failed", slog.String("userID", res.User.ID), slog.String("error", err.Error()))
	}

	auth.SetTokenCookie(w, res.Token, h.ttl, h.secure)
	writeJSON(w, http.StatusOK, MeResponse{User: res.User, IsAdmin: isAdmin})
}

// HandleLogout clears the JWT cookie.
//
// HTTP: POST /api/auth/logout
//
// Logout is a state change, so it is a POST behind the CSRF check. The
// token itself stays valid until it expires; without the cookie the
// browser just stops sending it.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	auth.ClearTokenCookie(w, h.secure)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the signed-in account.
//
// HTTP: GET /api/me
// Auth: Required
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	user, err := h.auth.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Warn("HandleMe: user lookup failed", slog.String("userID", userID), slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	isAdmin, err := h.auth.IsAdmin(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MeResponse{User: user, IsAdmin: isAdmin})
}

// HandleCSRF hands the CSRF token to script clients, which send it back in
// the X-CSRF-Token header.
//
// HTTP: GET /api/csrf
func (h *AuthHandler) HandleCSRF(w http.ResponseWriter, r *http.Request) {
	token := csrf.Token(r)
	w.Header().Set("X-CSRF-Token", token)
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// HandleGitHubLogin redirects the browser to GitHub's authorization page.
//
// HTTP: GET /auth/github/login
//
// A random state value is stored in a short-lived HttpOnly cookie and
// checked on the callback, so only logins this server started complete.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /auth/github/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter
//  2. Exchange the code for a GitHub profile
//  3. Upsert the account
//  4. Set the JWT cookie and send the member to their dashboard
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	http.SetCookie(w, &http.Cookie{
		Name:   stateCookieName,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	res, err := h.auth.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: sign-in failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}

	auth.SetTokenCookie(w, res.Token, h.ttl, h.secure)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
