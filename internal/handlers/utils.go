package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yalmoalm/JaMoveo/internal/db"
	"github.com/yalmoalm/JaMoveo/internal/logging"
	"github.com/yalmoalm/JaMoveo/internal/models"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

// writeJSON serializes data as JSON and writes it to the response.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a {"message": ...} error body.
// For server errors with a cause, use writeErrorWithCause.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, models.ErrorResponse{Message: message})
}

// writeErrorWithCause writes an error response and logs the error with stack trace.
func writeErrorWithCause(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	writeError(w, status, message)

	// 401/403 are covered by security event logging
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		return
	}

	if status >= 400 && err != nil {
		wrappedErr := logging.WrapError(err, message)
		logging.LogErrorWithStatus(ctx, status, "error response", wrappedErr)
	}
}

// writeServiceError maps typed service errors to their status codes.
// Anything untyped is logged and answered with a 500 carrying fallback.
func writeServiceError(ctx context.Context, w http.ResponseWriter, err error, fallback string) {
	var (
		validation      *services.ValidationError
		notFound        *services.NotFoundError
		conflict        *services.ConflictError
		unauthenticated *services.UnauthenticatedError
		denied          *services.AccessDeniedError
	)

	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Message)
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Message)
	case errors.As(err, &conflict):
		writeError(w, http.StatusConflict, conflict.Message)
	case errors.As(err, &unauthenticated):
		logging.LogSecurityEvent(ctx, logging.SecurityEventBadCredentials, unauthenticated.Message)
		writeError(w, http.StatusUnauthorized, unauthenticated.Message)
	case errors.As(err, &denied):
		logging.LogSecurityEvent(ctx, logging.SecurityEventRoleDenied, denied.Message)
		writeError(w, http.StatusForbidden, denied.Message)
	default:
		writeErrorWithCause(ctx, w, http.StatusInternalServerError, fallback, err)
	}
}

// decodeJSON decodes the request body into dst.
func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}

// idParam parses the {id} URL parameter.
func idParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func toSessionResponse(s db.Session) models.SessionResponse {
	resp := models.SessionResponse{
		ID:        s.ID,
		AdminID:   s.AdminID,
		IsActive:  s.IsActive,
		CreatedAt: s.CreatedAt,
	}
	if s.CurrentSongID.Valid {
		id := s.CurrentSongID.Int64
		resp.CurrentSongID = &id
	}
	return resp
}

func toSongResponse(detail services.SongDetail) models.SongResponse {
	lines := make([]models.SongLineResponse, 0, len(detail.Lines))
	for _, l := range detail.Lines {
		line := models.SongLineResponse{
			ID:         l.ID,
			LineNumber: l.LineNumber,
			WordOrder:  l.WordOrder,
			Lyrics:     l.Lyrics,
		}
		if l.Chords.Valid {
			chords := l.Chords.String
			line.Chords = &chords
		}
		lines = append(lines, line)
	}
	return models.SongResponse{ID: detail.Song.ID, Name: detail.Song.Name, Lines: lines}
}

func toUserResponse(u db.UserWithRole) models.UserResponse {
	return models.UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		Instrument: u.Instrument,
		Role:       u.RoleName,
	}
}
