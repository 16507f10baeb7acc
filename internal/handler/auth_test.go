package handler_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/owners-club/internal/auth"
	"github.com/sakif/owners-club/internal/handler"
)

func sessionCookie(rr *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestAuthHandler_SignUpAndLogin(t *testing.T) {
	env := newEnv(t)
	h := handler.NewAuthHandler(env.auth, nil, time.Hour, false, env.logger)
	creds := map[string]string{"email": "Sam@Example.com", "password": "correct horse"}

	t.Run("sign up sets the session cookie", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleSignUp(rr, jsonRequest(t, http.MethodPost, "/api/auth/signup", creds))

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		c := sessionCookie(rr)
		require.NotNil(t, c)
		assert.NotEmpty(t, c.Value)
		assert.True(t, c.HttpOnly)

		me := decode[handler.MeResponse](t, rr)
		assert.Equal(t, "sam@example.com", me.User.Email)
		assert.False(t, me.IsAdmin)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleSignUp(rr, jsonRequest(t, http.MethodPost, "/api/auth/signup", creds))
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("short password is rejected", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleSignUp(rr, jsonRequest(t, http.MethodPost, "/api/auth/signup",
			map[string]string{"email": "kim@example.com", "password": "short"}))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "password", decode[handler.ErrorResponse](t, rr).Field)
	})

	t.Run("login", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, jsonRequest(t, http.MethodPost, "/api/auth/login", creds))

		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.NotNil(t, sessionCookie(rr))
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, jsonRequest(t, http.MethodPost, "/api/auth/login",
			map[string]string{"email": "sam@example.com", "password": "wrong password"}))

		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, sessionCookie(rr))
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		rr := httptest.NewRecorder()
		h.HandleLogin(rr, jsonRequest(t, http.MethodPost, "/api/auth/login", `{"email":"a@b.c","pass":"x"}`))
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestAuthHandler_MeAndLogout(t *testing.T) {
	env := newEnv(t)
	h := handler.NewAuthHandler(env.auth, nil, time.Hour, false, env.logger)
	adminID := env.user(t, "admin@example.com", true)

	rr := httptest.NewRecorder()
	h.HandleMe(rr, as(httptest.NewRequest(http.MethodGet, "/api/me", nil), adminID))

	require.Equal(t, http.StatusOK, rr.Code)
	me := decode[handler.MeResponse](t, rr)
	assert.Equal(t, adminID, me.User.ID)
	assert.True(t, me.IsAdmin)

	rr = httptest.NewRecorder()
	h.HandleLogout(rr, httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	c := sessionCookie(rr)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Negative(t, c.MaxAge)
}
