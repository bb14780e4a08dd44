package handlers

import (
	"errors"
	"net/http"

	"github.com/yalmoalm/JaMoveo/internal/logging"
	"github.com/yalmoalm/JaMoveo/internal/models"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

// SessionHandler manages the durable session lifecycle. Broadcasting the
// change to connected members is done by the admin client over the realtime
// channel.
type SessionHandler struct {
	sessions *services.SessionService
}

// NewSessionHandler creates a SessionHandler with the required dependencies.
func NewSessionHandler(sessions *services.SessionService) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Create opens a new active session for an admin.
func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.sessions.Create(r.Context(), services.CreateSessionParams{
		AdminID:       req.AdminID,
		CurrentSongID: req.CurrentSongID,
	})
	if err != nil {
		var validation *services.ValidationError
		if errors.As(err, &validation) {
			writeError(w, http.StatusBadRequest, validation.Message)
			return
		}
		logging.LogErrorWithStatus(r.Context(), http.StatusInternalServerError, "error response", logging.WrapError(err, "failed to create session"))
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Message: "Failed to create session",
			Error:   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusCreated, models.SessionEnvelope{
		Message: "Session created successfully.",
		Session: toSessionResponse(session),
	})
}

// Get returns one session.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "Invalid session id.")
		return
	}

	session, err := h.sessions.Get(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(session))
}

// ListActive returns active sessions, newest first.
func (h *SessionHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.sessions.ListActive(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	resp := make([]models.SessionResponse, 0, len(sessions))
	for _, s := range sessions {
		resp = append(resp, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// End marks a session inactive. Ending it again also succeeds.
func (h *SessionHandler) End(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found.")
		return
	}

	session, err := h.sessions.End(r.Context(), id)
	if err != nil {
		writeServiceError(r.Context(), w, err, "Failed to end session.")
		return
	}

	writeJSON(w, http.StatusOK, models.SessionEnvelope{
		Message: "Session ended successfully.",
		Session: toSessionResponse(session),
	})
}

// UpdateSong records the session's current song.
func (h *SessionHandler) UpdateSong(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		writeError(w, http.StatusNotFound, "Session not found.")
		return
	}

	var req models.UpdateSessionSongRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	session, err := h.sessions.SetCurrentSong(r.Context(), id, req.CurrentSongID)
	if err != nil {
		writeServiceError(r.Context(), w, err, "Failed to update session.")
		return
	}

	writeJSON(w, http.StatusOK, models.SessionEnvelope{
		Message: "Session song updated successfully.",
		Session: toSessionResponse(session),
	})
}
