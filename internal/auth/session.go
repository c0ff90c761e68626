package auth

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"apparel-catalog/internal/logger"
)

const (
	sessionName = "catalog_session"
	keySID      = "sid"
	keyToken    = "access_token"
	keyExpires  = "expires_at"
)

// Sessions stores the browser session id and the signed-in user's access
// token in a signed cookie.
type Sessions struct {
	store *sessions.CookieStore
}

// NewSessions creates the cookie store. secure marks cookies HTTPS-only.
func NewSessions(secret string, secure bool) *Sessions {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &Sessions{store: store}
}

func (s *Sessions) get(r *http.Request) *sessions.Session {
	sess, err := s.store.Get(r, sessionName)
	if err != nil {
		logger.Debugf("session decode: %v", err)
	}
	return sess
}

// ID returns the session id the browser already carries, or "".
func (s *Sessions) ID(r *http.Request) string {
	sid, _ := s.get(r).Values[keySID].(string)
	return sid
}

// Key returns the session id, issuing one when the browser has none yet.
func (s *Sessions) Key(w http.ResponseWriter, r *http.Request) string {
	sess := s.get(r)
	if sid, ok := sess.Values[keySID].(string); ok && sid != "" {
		return sid
	}
	sid := uuid.New().String()
	sess.Values[keySID] = sid
	if err := sess.Save(r, w); err != nil {
		logger.Warnf("session save: %v", err)
	}
	return sid
}

// SetToken remembers the access token for this browser.
func (s *Sessions) SetToken(w http.ResponseWriter, r *http.Request, token string, expires time.Time) error {
	sess := s.get(r)
	if _, ok := sess.Values[keySID].(string); !ok {
		sess.Values[keySID] = uuid.New().String()
	}
	sess.Values[keyToken] = token
	sess.Values[keyExpires] = expires.Unix()
	return sess.Save(r, w)
}

// Token returns the stored access token unless it has expired.
func (s *Sessions) Token(r *http.Request) string {
	sess := s.get(r)
	tok, _ := sess.Values[keyToken].(string)
	if exp, ok := sess.Values[keyExpires].(int64); ok && exp > 0 && time.Now().Unix() >= exp {
		return ""
	}
	return tok
}

// Clear removes the token but keeps the session id.
func (s *Sessions) Clear(w http.ResponseWriter, r *http.Request) error {
	sess := s.get(r)
	delete(sess.Values, keyToken)
	delete(sess.Values, keyExpires)
	return sess.Save(r, w)
}
