package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/owners-club/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Port:            0,
		DBPath:          ":memory:",
		TemplateDir:     "../../web/templates",
		StaticDir:       "../../web/static",
		UploadDir:       t.TempDir(),
		LogLevel:        "error",
		JWTSecret:       "server-test-secret-0123456789",
		SessionTTL:      time.Hour,
		BcryptCost:      4,
		CSRFKey:         strings.Repeat("c", 32),
		SecureCookies:   false,
		BadgeSessionTTL: time.Minute,
		MaxUploadBytes:  1 << 20,
	}
}

// client is a browser-like client: it keeps cookies and echoes the CSRF
// token on unsafe requests.
type client struct {
	t     *testing.T
	base  string
	http  *http.Client
	token string
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:    t,
		base: srv.URL,
		http: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (c *client) do(method, path string, body any) (*http.Response, []byte) {
	c.t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, c.base+path, r)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("X-CSRF-Token", c.token)
	}

	resp, err := c.http.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

// fetchToken reads the CSRF token the way site.js does.
func (c *client) fetchToken() {
	c.t.Helper()
	resp, data := c.do(http.MethodGet, "/api/csrf", nil)
	require.Equal(c.t, http.StatusOK, resp.StatusCode)
	var out map[string]string
	require.NoError(c.t, json.Unmarshal(data, &out))
	require.NotEmpty(c.t, out["token"])
	c.token = out["token"]
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(testConfig(t), slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		s.Close()
	})
	return s, srv
}

func TestServer_Health(t *testing.T) {
	_, srv := newTestServer(t)
	c := newClient(t, srv)

	resp, body := c.do(http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestServer_RejectsMissingCSRFToken(t *testing.T) {
	_, srv := newTestServer(t)
	c := newClient(t, srv)

	resp, _ := c.do(http.MethodPost, "/api/auth/signup",
		map[string]string{"email": "sam@example.com", "password": "correct horse"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServer_MemberJourney(t *testing.T) {
	s, srv := newTestServer(t)
	c := newClient(t, srv)
	c.fetchToken()

	resp, body := c.do(http.MethodPost, "/api/auth/signup",
		map[string]string{"email": "sam@example.com", "password": "correct horse"})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	resp, body = c.do(http.MethodPost, "/api/me/profile", map[string]any{
		"displayName":   "Sam Driver",
		"country":       "Japan",
		"year":          2016,
		"transmission":  "Manual",
		"colour":        "Red",
		"publicProfile": true,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	t.Run("directory lists the member", func(t *testing.T) {
		resp, body := c.do(http.MethodGet, "/api/directory", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), `"username":"sam-driver"`)

		resp, body = c.do(http.MethodGet, "/member/sam-driver", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, string(body), "Sam Driver")
	})

	t.Run("admin routes need the role", func(t *testing.T) {
		resp, _ := c.do(http.MethodGet, "/api/admin/dashboard", nil)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		var me struct {
			User struct {
				ID string `json:"id"`
			} `json:"user"`
		}
		_, body := c.do(http.MethodGet, "/api/me", nil)
		require.NoError(t, json.Unmarshal(body, &me))
		require.NoError(t, s.db.Users().SetAdmin(context.Background(), me.User.ID, true))

		resp, body = c.do(http.MethodGet, "/api/admin/dashboard", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
		assert.Contains(t, string(body), `"members":1`)
	})

	t.Run("logout ends the session", func(t *testing.T) {
		resp, _ := c.do(http.MethodPost, "/api/auth/logout", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp, _ = c.do(http.MethodGet, "/api/me", nil)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

		resp, _ = c.do(http.MethodGet, "/dashboard", nil)
		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
	})
}

func TestServer_NotFoundAndFiles(t *testing.T) {
	_, srv := newTestServer(t)
	c := newClient(t, srv)

	resp, body := c.do(http.MethodGet, "/no/such/page", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, string(body), "Not found")

	resp, _ = c.do(http.MethodGet, "/static/css/site.css", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = c.do(http.MethodGet, "/uploads/", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode, "no directory listings")
}
