// Package gateway attaches WebSocket connections to the session broker and
// turns their inbound events into broker operations.
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/yalmoalm/JaMoveo/internal/broker"
	"github.com/yalmoalm/JaMoveo/internal/logging"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

// Options tunes the per-connection behaviour of the gateway.
type Options struct {
	SendBuffer      int
	PingInterval    time.Duration
	WriteWait       time.Duration
	MaxMessageBytes int64
	// EventsPerSecond limits inbound events per connection; 0 disables the limit.
	EventsPerSecond float64
	EventBurst      int
	// AllowedOrigins lists browser origins allowed to connect; "*" or an
	// empty list allows any.
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = broker.DefaultSendBuffer
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MaxMessageBytes <= 0 {
		o.MaxMessageBytes = 1 << 20
	}
	if o.EventBurst <= 0 {
		o.EventBurst = 1
	}
	return o
}

// Gateway is the realtime endpoint. Each accepted connection gets a fresh id,
// a reader that demultiplexes events and a writer that drains the client's
// outbound buffer.
type Gateway struct {
	broker   *broker.Broker
	auth     *services.AuthService
	opts     Options
	upgrader websocket.Upgrader
}

// New creates a Gateway. auth may be nil; identities are only used to label
// log lines and are never enforced.
func New(b *broker.Broker, auth *services.AuthService, opts Options) *Gateway {
	opts = opts.withDefaults()
	return &Gateway{
		broker: b,
		auth:   auth,
		opts:   opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(opts.AllowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, a := range allowed {
			if a == "*" || strings.EqualFold(a, origin) {
				return true
			}
		}
		return false
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("realtime upgrade failed", slog.String("ip", logging.ExtractClientIP(r)), slog.Any("error", err))
		return
	}

	client := broker.NewClient(uuid.NewString(), g.opts.SendBuffer)
	log := slog.With(
		slog.String("conn_id", client.ID),
		slog.String("ip", logging.ExtractClientIP(r)),
	)
	if identity, ok := g.identify(r); ok {
		log = log.With(slog.Int64("user_id", identity.ID), slog.String("role", string(identity.Role)))
	}

	g.broker.Register(client)
	log.Info("realtime connection opened")

	go g.writePump(conn, client, log)
	g.readPump(r.Context(), conn, client, log)
}

// identify reads an optional identity from a token query parameter, a bearer
// token or the X-User header.
func (g *Gateway) identify(r *http.Request) (services.Identity, bool) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token != "" && g.auth != nil {
		if claims, err := g.auth.ValidateToken(token); err == nil {
			return claims.Identity(), true
		}
	}
	if identity, err := services.ParseIdentityHeader(r.Header.Get("X-User")); err == nil {
		return identity, true
	}
	return services.Identity{}, false
}

func (g *Gateway) newLimiter() *rate.Limiter {
	if g.opts.EventsPerSecond <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Limit(g.opts.EventsPerSecond), g.opts.EventBurst)
}

// readPump dispatches inbound events until the connection fails. Leaving
// the pump is the implicit leave of the client's group.
func (g *Gateway) readPump(ctx context.Context, conn *websocket.Conn, client *broker.Client, log *slog.Logger) {
	defer func() {
		g.broker.Disconnect(client.ID)
		conn.Close()
		log.Info("realtime connection closed")
	}()

	pongWait := 2 * g.opts.PingInterval
	conn.SetReadLimit(g.opts.MaxMessageBytes)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	limiter := g.newLimiter()
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				log.Warn("realtime connection lost", slog.Any("error", err))
			}
			return
		}

		if limiter != nil && !limiter.Allow() {
			log.Warn("realtime event rate limit exceeded, event dropped",
				slog.String("security_event", string(logging.SecurityEventRateLimited)))
			continue
		}

		if err := g.Dispatch(ctx, client.ID, frame); err != nil {
			log.Warn("realtime event dropped", slog.Any("error", err))
		}
	}
}

// writePump writes outbound messages and keep-alive pings. It exits when the
// client's buffer is closed or a write fails.
func (g *Gateway) writePump(conn *websocket.Conn, client *broker.Client, log *slog.Logger) {
	ticker := time.NewTicker(g.opts.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case msg, ok := <-client.Messages():
			_ = conn.SetWriteDeadline(time.Now().Add(g.opts.WriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg.Frame()); err != nil {
				log.Debug("realtime write failed", slog.Any("error", err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(g.opts.WriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
