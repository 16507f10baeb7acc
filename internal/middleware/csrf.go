package middleware

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/csrf"
)

// CSRFHeader is where script clients echo the token.
const CSRFHeader = "X-CSRF-Token"

// CSRF requires a valid token on every unsafe method. Failures answer a
// JSON 403.
//
// secure mirrors the cookie setting: when false the site is served over
// plain HTTP, and requests are marked plaintext so the Referer check that
// gorilla/csrf applies to HTTPS is skipped.
func CSRF(key []byte, secure bool, logger *slog.Logger) func(http.Handler) http.Handler {
	protect := csrf.Protect(key,
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.HttpOnly(true),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			logger.Warn("csrf check failed",
				slog.String("path", r.URL.Path),
				slog.Any("reason", csrf.FailureReason(r)),
			)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden","message":"invalid or missing CSRF token"}`))
		})),
	)

	return func(next http.Handler) http.Handler {
		protected := protect(next)
		if secure {
			return protected
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			protected.ServeHTTP(w, csrf.PlaintextHTTPRequest(r))
		})
	}
}
