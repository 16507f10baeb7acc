package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/handler"
	"github.com/sakif/owners-club/internal/model"
	"github.com/sakif/owners-club/internal/repository/sqlite"
	"github.com/sakif/owners-club/internal/service"
	"github.com/sakif/owners-club/internal/storage"
)

// =========================================================================
// FIXTURES
// =========================================================================

// testEnv is a full service stack over an in-memory database.
type testEnv struct {
	db        *sqlite.DB
	logger    *slog.Logger
	auth      *service.AuthService
	owners    *service.OwnerService
	badges    *service.BadgeSessions
	settings  *service.SettingsService
	blog      *service.BlogService
	snippets  *service.SnippetService
	images    *service.ImageService
	dashboard *service.DashboardService
	uploadDir string
}

const testMaxUpload = 1 << 20

func newEnv(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService("handler-test-secret-0123456789", time.Hour)
	require.NoError(t, err)

	uploadDir := filepath.Join(t.TempDir(), "uploads")
	store, err := storage.New(uploadDir, testMaxUpload, logger)
	require.NoError(t, err)

	owners := service.NewOwnerService(db.Owners(), logger)
	return &testEnv{
		db:        db,
		logger:    logger,
		auth:      service.NewAuthService(db.Users(), tokens, auth.NewPasswordService(4), logger),
		owners:    owners,
		badges:    service.NewBadgeSessions(owners, time.Hour, logger),
		settings:  service.NewSettingsService(db.Settings(), logger),
		blog:      service.NewBlogService(db.Posts(), logger),
		snippets:  service.NewSnippetService(db.Snippets(), logger),
		images:    service.NewImageService(store, testMaxUpload, logger),
		dashboard: service.NewDashboardService(owners, db.Posts(), db.Snippets()),
		uploadDir: uploadDir,
	}
}

// user creates an account and returns its ID.
func (e *testEnv) user(t *testing.T, email string, admin bool) string {
	t.Helper()
	ctx := context.Background()
	u := &model.User{Email: email, PasswordHash: "x"}
	require.NoError(t, e.db.Users().Create(ctx, u))
	if admin {
		require.NoError(t, e.db.Users().SetAdmin(ctx, u.ID, true))
	}
	return u.ID
}

// member creates an account with a profile.
func (e *testEnv) member(t *testing.T, email, name string, public bool) *model.Owner {
	t.Helper()
	in := profile(name)
	in.PublicProfile = public
	o, err := e.owners.Register(context.Background(), e.user(t, email, false), in)
	require.NoError(t, err)
	return o
}

func profile(name string) service.ProfileInput {
	return service.ProfileInput{
		DisplayName:   name,
		Country:       "Japan",
		Year:          2016,
		Transmission:  "Manual",
		Colour:        "Red",
		PublicProfile: true,
	}
}

func (e *testEnv) adminHandler() *handler.AdminHandler {
	return handler.NewAdminHandler(e.owners, e.badges, e.settings, e.dashboard, e.logger)
}

// jsonRequest builds a request with body encoded as JSON. A string body
// is sent as is.
func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var r io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// as marks req as coming from the signed-in userID.
func as(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithUserID(req.Context(), userID))
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v), "body: %s", rr.Body.String())
	return v
}
