package handlers

import (
	"net/http"
	"time"

	"github.com/yalmoalm/JaMoveo/internal/broker"
	"github.com/yalmoalm/JaMoveo/internal/config"
	"github.com/yalmoalm/JaMoveo/internal/models"
)

// RealtimePath is where the realtime session channel is served.
const RealtimePath = "/sessions"

type ConfigHandler struct {
	cfg *config.Config
}

func NewConfigHandler(cfg *config.Config) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// PublicConfig returns what a client needs to talk to the realtime channel.
func (h *ConfigHandler) PublicConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.PublicConfigResponse{
		RealtimePath:        RealtimePath,
		PingIntervalSeconds: int(h.cfg.WSPingInterval.Seconds()),
		DeliveryPolicy:      broker.DeliveryPolicy,
		InboundEvents:       []string{broker.EventJoinSession, broker.EventEndSession, broker.EventSongUpdated},
		OutboundEvents:      []string{broker.EventForceLogout, broker.EventSongUpdated},
	})
}

// Health reports that the API is up.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, models.HealthResponse{
		Status:    "ok",
		Message:   "JaMoveo API is running",
		Timestamp: time.Now().UTC(),
	})
}
