package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"quizdeck-service/internal/domain"
	"go.uber.org/zap"
)

// CredentialChecker verifies a login against the user store.
type CredentialChecker interface {
	Authenticate(ctx context.Context, email, password string) (domain.User, error)
}

// SessionManager is the full session lifecycle the auth endpoints need;
// the websocket endpoint only resolves tokens (UserResolver).
type SessionManager interface {
	Create(ctx context.Context, user domain.User) (string, error)
	Get(ctx context.Context, token string) (domain.User, error)
	Destroy(ctx context.Context, token string) error
}

// AuthHandler issues and revokes the session tokens every other endpoint
// authenticates with.
type AuthHandler struct {
	users    CredentialChecker
	sessions SessionManager
	log      *zap.Logger
}

func NewAuthHandler(users CredentialChecker, sessions SessionManager, log *zap.Logger) *AuthHandler {
	return &AuthHandler{users: users, sessions: sessions, log: log}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string `json:"token"`
	Username  string `json:"username"`
	IsCreator bool   `json:"isCreator"`
}

// ServeLogin checks credentials and issues a session token. Unknown
// emails and wrong passwords produce the same response.
func (h *AuthHandler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		http.Error(w, "email and password required", http.StatusBadRequest)
		return
	}

	user, err := h.users.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, domain.ErrInvalidCredentials) {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	if err != nil {
		h.log.Warn("authenticate failed", zap.Error(err))
		http.Error(w, "login unavailable", http.StatusInternalServerError)
		return
	}

	token, err := h.sessions.Create(r.Context(), user)
	if err != nil {
		h.log.Warn("create session failed", zap.Error(err))
		http.Error(w, "login unavailable", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(loginResponse{
		Token:     token,
		Username:  user.Username,
		IsCreator: user.IsCreator,
	})
}

// ServeLogout revokes the presented session token. Revoking a token that
// is already gone still succeeds.
func (h *AuthHandler) ServeLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	token := r.URL.Query().Get("session")
	if token == "" {
		http.Error(w, "missing session", http.StatusBadRequest)
		return
	}
	if err := h.sessions.Destroy(r.Context(), token); err != nil {
		h.log.Warn("destroy session failed", zap.Error(err))
		http.Error(w, "logout unavailable", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
