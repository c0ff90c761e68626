package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims carries what the hosted auth service puts in an access token.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

var parser = jwt.NewParser(
	jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	jwt.WithExpirationRequired(),
)

// ParseToken checks an HS256 access token against secret and returns its claims.
func ParseToken(secret, raw string) (*Claims, error) {
	if secret == "" {
		return nil, errors.New("jwt secret not set")
	}

	var claims Claims
	tok, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	switch {
	case err != nil:
		return nil, fmt.Errorf("ParseToken: %w", err)
	case !tok.Valid:
		return nil, errors.New("ParseToken: token not valid")
	case claims.Subject == "":
		return nil, errors.New("ParseToken: token has no subject")
	}
	return &claims, nil
}

// GetBearerToken returns the token of an "Authorization: Bearer" header, or "".
func GetBearerToken(r *http.Request) string {
	scheme, tok, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(tok)
}
