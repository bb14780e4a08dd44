package handlers

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/yalmoalm/JaMoveo/internal/config"
)

// maxEnvelopeBytes bounds a tunnelled Sentry envelope.
const maxEnvelopeBytes = 1 << 20

// SentryTunnelHandler forwards Sentry envelopes from the browser so the
// client reports errors through the API origin instead of Sentry's.
type SentryTunnelHandler struct {
	dsn    string
	client *http.Client
}

func NewSentryTunnelHandler(cfg *config.Config) *SentryTunnelHandler {
	return &SentryTunnelHandler{
		dsn:    cfg.SentryDSNFrontend,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Tunnel reads an envelope, checks that its header names the configured
// frontend DSN and posts it to that project's envelope endpoint.
func (h *SentryTunnelHandler) Tunnel(w http.ResponseWriter, r *http.Request) {
	if h.dsn == "" {
		writeError(w, http.StatusNotFound, "Sentry tunnel is disabled")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEnvelopeBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid envelope")
		return
	}

	// The first line of an envelope is a JSON header carrying the DSN.
	scanner := bufio.NewScanner(bytes.NewReader(body))
	if !scanner.Scan() {
		writeError(w, http.StatusBadRequest, "Invalid envelope")
		return
	}
	var header struct {
		DSN string `json:"dsn"`
	}
	if err := json.Unmarshal(scanner.Bytes(), &header); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid envelope")
		return
	}
	if header.DSN != h.dsn {
		writeError(w, http.StatusUnauthorized, "Unknown DSN")
		return
	}

	ingestURL, err := envelopeURL(header.DSN)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid DSN")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, ingestURL, bytes.NewReader(body))
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "Failed to forward envelope", err)
		return
	}
	req.Header.Set("Content-Type", "application/x-sentry-envelope")

	resp, err := h.client.Do(req)
	if err != nil {
		slog.Warn("sentry tunnel upstream failed", slog.String("error", err.Error()))
		writeError(w, http.StatusBadGateway, "Failed to forward envelope")
		return
	}
	defer resp.Body.Close()

	w.WriteHeader(resp.StatusCode)
}

// envelopeURL maps a DSN of the form scheme://key@host/project to the
// project's envelope endpoint.
func envelopeURL(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	projectID := strings.Trim(u.Path, "/")
	if u.Host == "" || projectID == "" {
		return "", fmt.Errorf("dsn %q has no host or project", dsn)
	}
	scheme := u.Scheme
	if scheme == "" {
		scheme = "https"
	}
	return scheme + "://" + u.Host + "/api/" + projectID + "/envelope/", nil
}
