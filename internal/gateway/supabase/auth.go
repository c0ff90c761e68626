package supabase

import (
	"context"
	"net/http"
	"time"

	"github.com/guonaihong/gout"
	"github.com/pkg/errors"

	"apparel-catalog/internal/gateway"
)

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int64        `json:"expires_in"`
	ExpiresAt    int64        `json:"expires_at"`
	User         gateway.User `json:"user"`
}

// SignIn performs a password grant against GoTrue.
func (c *Client) SignIn(ctx context.Context, email, password string) (*gateway.Session, error) {
	body, err := jsonBody(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	const p = "/auth/v1/token"
	code, resp, err := c.do(ctx, call{
		method:  http.MethodPost,
		path:    p,
		query:   gout.H{"grant_type": "password"},
		headers: gout.H{"Content-Type": "application/json"},
		body:    body,
	})
	if err != nil {
		return nil, err
	}
	if code == http.StatusBadRequest || code == http.StatusUnauthorized {
		return nil, gateway.ErrInvalidCredentials
	}
	if !ok(code) {
		return nil, statusError(http.MethodPost, p, code, resp)
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp, &tr); err != nil {
		return nil, errors.Wrap(err, "supabase: decode token response")
	}
	if tr.AccessToken == "" {
		return nil, errors.New("supabase: token response without access_token")
	}

	expires := time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	if tr.ExpiresAt > 0 {
		expires = time.Unix(tr.ExpiresAt, 0)
	}
	return &gateway.Session{
		AccessToken:  tr.AccessToken,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    expires,
		User:         tr.User,
	}, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	const p = "/auth/v1/logout"
	code, resp, err := c.do(gateway.WithAccessToken(ctx, accessToken), call{
		method: http.MethodPost,
		path:   p,
	})
	if err != nil {
		return err
	}
	if !ok(code) && code != http.StatusUnauthorized {
		return statusError(http.MethodPost, p, code, resp)
	}
	return nil
}
