package auth

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"apparel-catalog/internal/gateway"
	"apparel-catalog/internal/gateway/mocks"
)

const testSecret = "super-secret-jwt-token-with-at-least-32-characters"

func signToken(t *testing.T, secret, sub string, ttl time.Duration) string {
	t.Helper()
	claims := Claims{
		Email: "admin@example.com",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return tok
}

func TestParseToken(t *testing.T) {
	claims, err := ParseToken(testSecret, signToken(t, testSecret, "u-1", time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.Subject)
	assert.Equal(t, "admin@example.com", claims.Email)

	_, err = ParseToken(testSecret, signToken(t, "other-secret", "u-1", time.Hour))
	assert.Error(t, err)

	_, err = ParseToken(testSecret, signToken(t, testSecret, "u-1", -time.Minute))
	assert.Error(t, err)

	_, err = ParseToken("", signToken(t, testSecret, "u-1", time.Hour))
	assert.Error(t, err)

	_, err = ParseToken(testSecret, signToken(t, testSecret, "", time.Hour))
	assert.Error(t, err)
}

func TestGetBearerToken(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, "", GetBearerToken(r))

	r.Header.Set("Authorization", "bearer abc")
	assert.Equal(t, "abc", GetBearerToken(r))

	r.Header.Set("Authorization", "Basic abc")
	assert.Equal(t, "", GetBearerToken(r))
}

func protected(g *Guard) http.HandlerFunc {
	return g.Require(func(w http.ResponseWriter, r *http.Request) {
		claims, ok := ClaimsFrom(r.Context())
		if !ok {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(claims.Subject + " " + gateway.AccessToken(r.Context())))
	})
}

func TestGuardBearer(t *testing.T) {
	g := NewGuard(testSecret, NewSessions("cookie-secret", false))
	h := protected(g)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/api/admin/products", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok := signToken(t, testSecret, "u-1", time.Hour)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1 "+tok, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	req.Header.Set("Authorization", "Bearer garbage")
	rec = httptest.NewRecorder()
	h(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginSetsCookieThatPassesGuard(t *testing.T) {
	ctrl := gomock.NewController(t)
	authn := mocks.NewMockAuthenticator(ctrl)
	sessions := NewSessions("cookie-secret", false)
	guard := NewGuard(testSecret, sessions)
	loggedOut := false
	h := NewHandler(authn, sessions, guard, func(http.ResponseWriter, *http.Request) { loggedOut = true })

	tok := signToken(t, testSecret, "u-1", time.Hour)
	authn.EXPECT().
		SignIn(gomock.Any(), "admin@example.com", "secret").
		Return(&gateway.Session{
			AccessToken: tok,
			ExpiresAt:   time.Now().Add(time.Hour),
			User:        gateway.User{ID: "u-1", Email: "admin@example.com"},
		}, nil)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":" admin@example.com ","password":"secret"}`)))
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	protected(guard)(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	authn.EXPECT().SignOut(gomock.Any(), tok).Return(nil)
	req = httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec = httptest.NewRecorder()
	h.Logout(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, loggedOut)
}

func TestLoginRejectsBadInput(t *testing.T) {
	ctrl := gomock.NewController(t)
	authn := mocks.NewMockAuthenticator(ctrl)
	sessions := NewSessions("cookie-secret", false)
	h := NewHandler(authn, sessions, NewGuard(testSecret, sessions), nil)

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"nope"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	authn.EXPECT().SignIn(gomock.Any(), "admin@example.com", "wrong").Return(nil, gateway.ErrInvalidCredentials)
	rec = httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login",
		strings.NewReader(`{"email":"admin@example.com","password":"wrong"}`)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionKeyIsStable(t *testing.T) {
	sessions := NewSessions("cookie-secret", false)

	rec := httptest.NewRecorder()
	key := sessions.Key(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.NotEmpty(t, key)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	assert.Equal(t, key, sessions.Key(httptest.NewRecorder(), req))
	assert.Equal(t, "", sessions.Token(req))
}

func TestGuardKeyForBearerClients(t *testing.T) {
	g := NewGuard(testSecret, NewSessions("cookie-secret", false))
	tok := signToken(t, testSecret, "u-1", time.Hour)

	var keys []string
	var recs []*httptest.ResponseRecorder
	h := g.Require(func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, g.Key(w, r))
	})
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		rec := httptest.NewRecorder()
		h(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
		recs = append(recs, rec)
	}

	assert.Equal(t, []string{"user:u-1", "user:u-1"}, keys)
	for _, rec := range recs {
		assert.Empty(t, rec.Result().Cookies())
	}

	// Outside Require the token is still read straight from the header.
	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	assert.Equal(t, "user:u-1", g.Key(httptest.NewRecorder(), req))
}

func TestGuardKeyPrefersCookie(t *testing.T) {
	sessions := NewSessions("cookie-secret", false)
	g := NewGuard(testSecret, sessions)

	rec := httptest.NewRecorder()
	sid := sessions.Key(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	req := httptest.NewRequest(http.MethodGet, "/api/admin/products", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, testSecret, "u-1", time.Hour))
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	assert.Equal(t, sid, g.Key(httptest.NewRecorder(), req))

	anon := httptest.NewRecorder()
	key := g.Key(anon, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.NotEmpty(t, key)
	assert.False(t, strings.HasPrefix(key, "user:"))
	assert.NotEmpty(t, anon.Result().Cookies())
}
