package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"

	"apparel-catalog/internal/gateway"
	"apparel-catalog/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Handler serves sign-in, sign-out and session lookups.
type Handler struct {
	authn    gateway.Authenticator
	sessions *Sessions
	guard    *Guard
	validate *validator.Validate
	onLogout func(w http.ResponseWriter, r *http.Request)
}

// NewHandler creates the auth handler. onLogout, when set, runs after a
// successful sign-out so per-session state can be dropped.
func NewHandler(authn gateway.Authenticator, sessions *Sessions, guard *Guard, onLogout func(http.ResponseWriter, *http.Request)) *Handler {
	return &Handler{
		authn:    authn,
		sessions: sessions,
		guard:    guard,
		validate: validator.New(),
		onLogout: onLogout,
	}
}

// Login handles POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if err := h.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "email and password are required"})
		return
	}

	session, err := h.authn.SignIn(r.Context(), req.Email, req.Password)
	if errors.Is(err, gateway.ErrInvalidCredentials) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		logger.Errorf("Login: %v", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "Failed to sign in"})
		return
	}

	if err := h.sessions.SetToken(w, r, session.AccessToken, session.ExpiresAt); err != nil {
		logger.Errorf("Login: save session: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to sign in"})
		return
	}
	logger.Infof("Login: %s signed in", session.User.Email)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":       session.User,
		"expires_at": session.ExpiresAt,
	})
}

// Logout handles POST /api/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if _, tokenStr, err := h.guard.Authenticate(r); err == nil {
		if err := h.authn.SignOut(r.Context(), tokenStr); err != nil {
			logger.Warnf("Logout: %v", err)
		}
	}
	if err := h.sessions.Clear(w, r); err != nil {
		logger.Warnf("Logout: clear session: %v", err)
	}
	if h.onLogout != nil {
		h.onLogout(w, r)
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/auth/session
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	claims, _, err := h.guard.Authenticate(r)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{"authenticated": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"authenticated": true,
		"user":          gateway.User{ID: claims.Subject, Email: claims.Email},
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
