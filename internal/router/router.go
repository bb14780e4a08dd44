// Package router wires handlers, middleware and the realtime endpoints into
// a single http.Handler.
package router

import (
	"database/sql"
	"net/http"
	"os"

	sentryhttp "github.com/getsentry/sentry-go/http"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/yalmoalm/JaMoveo/internal/broker"
	"github.com/yalmoalm/JaMoveo/internal/config"
	"github.com/yalmoalm/JaMoveo/internal/db"
	"github.com/yalmoalm/JaMoveo/internal/gateway"
	"github.com/yalmoalm/JaMoveo/internal/handlers"
	"github.com/yalmoalm/JaMoveo/internal/middleware"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

// Router is the application's HTTP handler. Close releases the background
// work started by its middleware.
type Router struct {
	http.Handler
	authLimiter *middleware.RateLimiter
}

// Close stops the auth rate limiter's cleanup goroutine.
func (r *Router) Close() {
	r.authLimiter.Close()
}

func New(cfg *config.Config, sqlDB *sql.DB, b *broker.Broker) *Router {
	r := chi.NewRouter()
	queries := db.New(sqlDB)

	// Global middleware
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	if cfg.SentryDSN != "" {
		r.Use(sentryhttp.New(sentryhttp.Options{Repanic: true}).Handle)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: !allowsAnyOrigin(cfg.CORSAllowedOrigins),
		MaxAge:           300,
	}))
	r.Use(middleware.RequestContextMiddleware)

	// Services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.TokenDuration)
	userService := services.NewUserService(queries, authService)
	songService := services.NewSongService(sqlDB, queries)
	sessionService := services.NewSessionService(queries)

	// Handlers
	authHandler := handlers.NewAuthHandler(userService)
	adminHandler := handlers.NewAdminHandler(userService, b)
	songHandler := handlers.NewSongHandler(songService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	streamHandler := handlers.NewStreamHandler(b, sessionService)
	configHandler := handlers.NewConfigHandler(cfg)
	tunnelHandler := handlers.NewSentryTunnelHandler(cfg)

	// Realtime channel
	realtime := gateway.New(b, authService, gateway.Options{
		SendBuffer:      cfg.WSSendBuffer,
		PingInterval:    cfg.WSPingInterval,
		MaxMessageBytes: cfg.WSMaxMessageBytes,
		EventsPerSecond: cfg.WSEventsPerSecond,
		EventBurst:      cfg.WSEventBurst,
		AllowedOrigins:  cfg.CORSAllowedOrigins,
	})
	r.Handle(handlers.RealtimePath, realtime)

	authLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", handlers.Health)
		r.Get("/config", configHandler.PublicConfig)
		r.Post("/sentry-tunnel", tunnelHandler.Tunnel)
		r.Handle("/realtime/sessions", realtime)

		r.Route("/auth", func(r chi.Router) {
			r.Use(authLimiter.Middleware)
			r.Post("/signup", authHandler.Signup)
			r.Post("/create-admin", authHandler.CreateAdmin)
			r.Post("/login", authHandler.Login)
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(authService))
			r.Use(middleware.UpdateRequestContextMiddleware)

			// Any signed-in role
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(services.RoleAdmin, services.RolePlayer))
				r.Get("/sessions", sessionHandler.ListActive)
				r.Get("/sessions/{id}", sessionHandler.Get)
				r.Get("/sessions/{id}/events", streamHandler.Stream)
			})

			// Admin only
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(services.RoleAdmin))

				r.Get("/users", adminHandler.ListUsers)
				r.Get("/realtime/stats", adminHandler.RealtimeStats)

				r.Route("/songs", func(r chi.Router) {
					r.Get("/", songHandler.List)
					r.Get("/by-name/{name}", songHandler.GetByName)
					r.Post("/upload-json", songHandler.UploadJSON)
					r.Delete("/by-name/{name}", songHandler.DeleteByName)
				})

				r.Post("/sessions", sessionHandler.Create)
				r.Patch("/sessions/{id}/end", sessionHandler.End)
				r.Patch("/sessions/{id}/song", sessionHandler.UpdateSong)
			})
		})
	})

	if cfg.StaticDir != "" {
		if info, err := os.Stat(cfg.StaticDir); err == nil && info.IsDir() {
			r.Handle("/*", http.FileServer(http.Dir(cfg.StaticDir)))
		}
	}

	return &Router{Handler: r, authLimiter: authLimiter}
}

func allowsAnyOrigin(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return len(origins) == 0
}
