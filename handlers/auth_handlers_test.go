package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/signup", `{"email":" Lead@Example.com ","password":"password123","name":"Lead"}`, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	user := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "lead@example.com", user["email"])

	w = ts.do(http.MethodPost, "/api/signup", `{"email":"lead@example.com","password":"password123"}`, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.do(http.MethodPost, "/api/login", `{"email":"lead@example.com","password":"password123"}`, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)

	w = ts.do(http.MethodGet, "/api/profile", "", map[string]string{"Cookie": cookie.Name + "=" + cookie.Value})
	require.Equal(t, http.StatusOK, w.Code)
	profile := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "Lead", profile["name"])
}

func TestSignupValidation(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/signup", `{"email":"not-an-email","password":"password123"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/signup", `{"email":"a@example.com","password":"short"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSignupStoreFailure(t *testing.T) {
	ts := newTestServer(t)
	ts.users.err = errors.New("connection refused")

	w := ts.do(http.MethodPost, "/api/signup", `{"email":"a@example.com","password":"password123"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = ts.do(http.MethodPost, "/api/login", `{"email":"a@example.com","password":"password123"}`, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	ts := newTestServer(t)
	u := ts.users.add(t, "lead@example.com", "password123")

	w := ts.do(http.MethodPost, "/api/login", `{"email":"lead@example.com","password":"wrong-password"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, sessionCookie(w))

	w = ts.do(http.MethodPost, "/api/login", `{"email":"nobody@example.com","password":"password123"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	u.IsActive = false
	w = ts.do(http.MethodPost, "/api/login", `{"email":"lead@example.com","password":"password123"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutRevokesSession(t *testing.T) {
	ts := newTestServer(t)
	u := ts.users.add(t, "lead@example.com", "password123")
	token := ts.tokenFor(t, u)

	w := ts.do(http.MethodGet, "/api/profile", "", bearer(token))
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodPost, "/api/logout", "", bearer(token))
	require.Equal(t, http.StatusOK, w.Code)
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.Len(t, ts.sessions.revoked, 1)

	w = ts.do(http.MethodGet, "/api/profile", "", bearer(token))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLogoutWithoutSession(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(http.MethodPost, "/api/logout", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, ts.sessions.revoked)
}
