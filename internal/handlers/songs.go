package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/yalmoalm/JaMoveo/internal/models"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

// maxSongUploadBytes bounds the multipart body of a song upload.
const maxSongUploadBytes = 5 << 20

// SongHandler manages the song library.
type SongHandler struct {
	songs *services.SongService
}

func NewSongHandler(songs *services.SongService) *SongHandler {
	return &SongHandler{songs: songs}
}

// List returns the id and name of every song.
func (h *SongHandler) List(w http.ResponseWriter, r *http.Request) {
	songs, err := h.songs.List(r.Context())
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "Internal server error", err)
		return
	}

	resp := make([]models.SongSummary, 0, len(songs))
	for _, s := range songs {
		resp = append(resp, models.SongSummary{ID: s.ID, Name: s.Name})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetByName returns a song with its lines.
func (h *SongHandler) GetByName(w http.ResponseWriter, r *http.Request) {
	detail, err := h.songs.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(r.Context(), w, err, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, toSongResponse(detail))
}

// UploadJSON stores a song from the multipart field "jsonFile". The song is
// named after the file, without its extension.
func (h *SongHandler) UploadJSON(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSongUploadBytes)

	file, header, err := r.FormFile("jsonFile")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	lines, err := services.ParseSongFile(file)
	if err != nil {
		writeServiceError(r.Context(), w, err, "Internal server error")
		return
	}

	base := filepath.Base(header.Filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))

	detail, err := h.songs.Create(r.Context(), name, lines)
	if err != nil {
		writeServiceError(r.Context(), w, err, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, models.UploadSongResponse{
		Message: "Song uploaded successfully",
		Song:    toSongResponse(detail),
	})
}

// DeleteByName removes a song and its lines.
func (h *SongHandler) DeleteByName(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if _, err := h.songs.DeleteByName(r.Context(), name); err != nil {
		writeServiceError(r.Context(), w, err, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, models.MessageResponse{
		Message: fmt.Sprintf("Song '%s' deleted successfully.", name),
	})
}
