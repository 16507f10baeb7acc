package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/registry"
)

// viewerOf identifies who a read is for. A failed admin lookup is logged
// and the request continues as a plain member.
func viewerOf(r *http.Request, admins auth.AdminChecker, logger *slog.Logger) registry.Viewer {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		return registry.Viewer{}
	}

	isAdmin, err := admins.IsAdmin(r.Context(), userID)
	if err != nil {
		logger.Error("admin lookup failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
	}
	return registry.Viewer{UserID: userID, IsAdmin: isAdmin}
}
