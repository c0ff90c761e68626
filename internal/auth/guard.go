package auth

import (
	"context"
	"errors"
	"net/http"

	"apparel-catalog/internal/gateway"
	"apparel-catalog/internal/logger"
)

var ErrNoSession = errors.New("no session")

type claimsKey struct{}

// Guard admits requests that carry a valid session, either as a bearer token
// or in the session cookie.
type Guard struct {
	secret   string
	sessions *Sessions
}

// NewGuard creates a guard validating tokens against secret.
func NewGuard(secret string, sessions *Sessions) *Guard {
	return &Guard{secret: secret, sessions: sessions}
}

// Authenticate returns the claims and raw token of the request's session.
func (g *Guard) Authenticate(r *http.Request) (*Claims, string, error) {
	tokenStr := GetBearerToken(r)
	if tokenStr == "" && g.sessions != nil {
		tokenStr = g.sessions.Token(r)
	}
	if tokenStr == "" {
		return nil, "", ErrNoSession
	}
	claims, err := ParseToken(g.secret, tokenStr)
	if err != nil {
		return nil, "", err
	}
	return claims, tokenStr, nil
}

// Require is middleware that rejects requests without a valid session. The
// token is attached to the request context so backend calls run as the user.
func (g *Guard) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, tokenStr, err := g.Authenticate(r)
		if err != nil {
			logger.Debugf("Require: %v", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), claimsKey{}, claims)
		ctx = gateway.WithAccessToken(ctx, tokenStr)
		next(w, r.WithContext(ctx))
	}
}

// ClaimsFrom returns the claims Require attached to ctx.
func ClaimsFrom(ctx context.Context) (*Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(*Claims)
	return c, ok
}

// Key identifies whose per-session state a request reaches. The cookie's
// session id wins; a caller holding only a bearer token is keyed by its
// subject so consecutive requests share state; anyone else gets a new cookie.
func (g *Guard) Key(w http.ResponseWriter, r *http.Request) string {
	if sid := g.sessions.ID(r); sid != "" {
		return sid
	}
	claims, ok := ClaimsFrom(r.Context())
	if !ok && GetBearerToken(r) != "" {
		claims, _, _ = g.Authenticate(r)
	}
	if claims != nil && claims.Subject != "" {
		return "user:" + claims.Subject
	}
	return g.sessions.Key(w, r)
}
