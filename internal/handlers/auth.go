package handlers

import (
	"context"
	"net/http"

	"github.com/yalmoalm/JaMoveo/internal/db"
	"github.com/yalmoalm/JaMoveo/internal/models"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

// AuthHandler serves signup, admin creation and login.
type AuthHandler struct {
	users *services.UserService
}

func NewAuthHandler(users *services.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Signup registers a player.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.users.Signup)
}

// CreateAdmin registers an admin.
func (h *AuthHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	h.register(w, r, h.users.CreateAdmin)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request, create func(ctx context.Context, p services.SignupParams) (db.UserWithRole, error)) {
	var req models.SignupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, err := create(r.Context(), services.SignupParams{
		Username:   req.Username,
		Password:   req.Password,
		Instrument: req.Instrument,
	})
	if err != nil {
		writeServiceError(r.Context(), w, err, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, models.SignupResponse{
		Message: "User created successfully",
		User:    toUserResponse(user),
	})
}

// Login returns the identity to send as X-User and a bearer token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	result, err := h.users.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeServiceError(r.Context(), w, err, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, models.LoginResponse{
		Message: "Login successful",
		XUser:   models.XUser{ID: result.Identity.ID, Role: string(result.Identity.Role)},
		Token:   result.Token,
	})
}
