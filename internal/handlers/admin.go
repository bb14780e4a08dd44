package handlers

import (
	"net/http"

	"github.com/yalmoalm/JaMoveo/internal/broker"
	"github.com/yalmoalm/JaMoveo/internal/models"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

// AdminHandler serves admin-only views of users and the realtime registry.
type AdminHandler struct {
	users  *services.UserService
	broker *broker.Broker
}

func NewAdminHandler(users *services.UserService, b *broker.Broker) *AdminHandler {
	return &AdminHandler{users: users, broker: b}
}

// ListUsers returns every user with its role.
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.List(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "Internal server error: failed to retrieve users", err)
		return
	}

	resp := make([]models.UserResponse, 0, len(users))
	for _, u := range users {
		resp = append(resp, toUserResponse(u))
	}
	writeJSON(w, http.StatusOK, resp)
}

// RealtimeStats reports connection and group counts.
func (h *AdminHandler) RealtimeStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.broker.Stats())
}
