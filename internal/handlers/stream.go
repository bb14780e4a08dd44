package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/yalmoalm/JaMoveo/internal/broker"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

// StreamHandler serves a read-only Server-Sent Events feed of a session for
// viewers that cannot hold a WebSocket.
type StreamHandler struct {
	broker   *broker.Broker
	sessions *services.SessionService
}

// NewStreamHandler creates a StreamHandler backed by the given broker.
func NewStreamHandler(b *broker.Broker, sessions *services.SessionService) *StreamHandler {
	return &StreamHandler{broker: b, sessions: sessions}
}

// Stream joins the request to the session's group and relays force-logout
// and song-updated events until the client goes away. A heartbeat comment is
// sent every 30 seconds to keep the connection alive through proxies.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
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
	if !session.IsActive {
		writeError(w, http.StatusConflict, "Session is not active.")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := broker.NewClient(uuid.NewString(), 0)
	h.broker.Register(client)
	h.broker.Join(client.ID, strconv.FormatInt(session.ID, 10))
	defer h.broker.Disconnect(client.ID)

	writeEvent(w, "connected", []byte(client.ID))
	flusher.Flush()

	heartbeat := time.NewTicker(30 * time.Second)
	defer heartbeat.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-client.Messages():
			if !ok {
				return
			}
			writeEvent(w, msg.Event, msg.Data)
			flusher.Flush()
		case <-heartbeat.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

// writeEvent writes one SSE event. Multi-line data is split over several
// data fields, which clients join back with newlines. CR and CRLF end a
// line in SSE too, so they arrive as LF; in JSON they are only whitespace.
func writeEvent(w io.Writer, event string, data []byte) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))

	fmt.Fprintf(w, "event: %s\n", event)
	for _, line := range bytes.Split(data, []byte("\n")) {
		fmt.Fprintf(w, "data: %s\n", line)
	}
	fmt.Fprint(w, "\n")
}
