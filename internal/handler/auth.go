package handler

import (
	"net/http"
	"strings"

	"redcode-api/internal/middleware"
	"redcode-api/internal/model"
	"redcode-api/internal/service"
	"redcode-api/pkg/apierror"
	"redcode-api/pkg/response"
)

// AuthHandler handles account and token requests.
type AuthHandler struct {
	users *service.UserService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// UserView is the public shape of an account.
type UserView struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	APIKey   string `json:"apiKey,omitempty"`
}

func newUserView(u *model.User, withKey bool) UserView {
	v := UserView{ID: u.ID, Username: u.Username}
	if withKey {
		v.APIKey = u.APIKey
	}
	return v
}

// CredentialsRequest is the body of register and login.
type CredentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SessionResponse carries a session token.
type SessionResponse struct {
	Token string   `json:"token"`
	User  UserView `json:"user"`
}

// Register handles POST /api/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	user, err := h.users.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	response.Created(w, map[string]interface{}{
		"user": newUserView(user, false),
	})
}

// Login handles POST /api/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	session, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	response.OK(w, SessionResponse{
		Token: session.Token,
		User:  newUserView(session.User, true),
	})
}

// Verify handles POST /api/verify. A valid bearer token is exchanged for a
// fresh one.
func (h *AuthHandler) Verify(w http.ResponseWriter, r *http.Request) {
	header := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		response.Error(w, apierror.Unauthorized("JWT token required"))
		return
	}

	userID, err := h.users.ParseSession(token)
	if err != nil {
		response.Error(w, apierror.Unauthorized("Invalid JWT token"))
		return
	}

	session, err := h.users.Verify(r.Context(), userID)
	if err != nil {
		response.Error(w, apierror.Unauthorized("Session no longer valid").WithCause(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"valid": true,
		"token": session.Token,
		"user":  newUserView(session.User, true),
	})
}

// RoleTokenRequest is the body of POST /api/auth/token.
type RoleTokenRequest struct {
	UserID string `json:"userId"`
}

// RoleToken handles POST /api/auth/token
func (h *AuthHandler) RoleToken(w http.ResponseWriter, r *http.Request) {
	var req RoleTokenRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	if req.UserID == "" {
		response.Error(w, apierror.BadRequest("User ID required"))
		return
	}

	token, user, err := h.users.RoleToken(r.Context(), req.UserID)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"token": token,
		"user":  newUserView(user, false),
	})
}

// SettingsRequest is the body of PUT /api/user/settings.
type SettingsRequest struct {
	Username string `json:"username"`
}

// UpdateSettings handles PUT /api/user/settings
func (h *AuthHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}

	user, err := h.users.UpdateUsername(r.Context(), middleware.GetUserID(r.Context()), req.Username)
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	response.OK(w, map[string]interface{}{
		"user": newUserView(user, true),
	})
}

// RegenerateAPIKey handles POST /api/user/apikey
func (h *AuthHandler) RegenerateAPIKey(w http.ResponseWriter, r *http.Request) {
	key, err := h.users.RegenerateAPIKey(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		response.Error(w, toAPIError(err))
		return
	}

	response.OK(w, map[string]string{"apiKey": key})
}
