package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"
	"github.com/valkey-io/valkey-go"
	"golang.org/x/sync/errgroup"

	"github.com/yalmoalm/JaMoveo/internal/broker"
	"github.com/yalmoalm/JaMoveo/internal/config"
	"github.com/yalmoalm/JaMoveo/internal/db"
	"github.com/yalmoalm/JaMoveo/internal/jobs"
	"github.com/yalmoalm/JaMoveo/internal/router"
	appsentry "github.com/yalmoalm/JaMoveo/internal/sentry"
	"github.com/yalmoalm/JaMoveo/internal/services"
	"github.com/yalmoalm/JaMoveo/internal/songsync"
)

func newServeCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and realtime server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context(), cfg())
		},
	}
}

// serve runs until ctx is cancelled, which Execute ties to SIGINT/SIGTERM.
func serve(ctx context.Context, cfg *config.Config) error {
	if cfg.SentryDSN != "" {
		if err := sentry.Init(appsentry.Options(cfg.SentryDSN, cfg.SentryEnvironment)); err != nil {
			slog.Warn("sentry disabled", slog.String("error", err.Error()))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	sqlDB, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer sqlDB.Close()
	queries := db.New(sqlDB)

	var opts []broker.Option
	if cfg.ValkeyAddr != "" {
		client, err := valkey.NewClient(valkey.ClientOption{InitAddress: []string{cfg.ValkeyAddr}})
		if err != nil {
			return err
		}
		defer client.Close()
		opts = append(opts, broker.WithRelay(broker.NewValkeyRelay(client, cfg.ValkeyChannel)))
		slog.Info("realtime relay enabled", slog.String("addr", cfg.ValkeyAddr), slog.String("channel", cfg.ValkeyChannel))
	}
	b := broker.New(opts...)

	if cfg.SessionMaxAge > 0 {
		reaper := jobs.NewSessionReaper(services.NewSessionService(queries), b, cfg.SessionMaxAge, cfg.SessionSweepSchedule, slog.Default())
		if err := reaper.Start(); err != nil {
			return err
		}
		defer reaper.Stop()
	}

	r := router.New(cfg, sqlDB, b)
	defer r.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The broker outlives the request context so in-flight handlers can
	// still disconnect during shutdown.
	brokerCtx, stopBroker := context.WithCancel(context.Background())
	defer stopBroker()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.Run(brokerCtx)
		return nil
	})

	g.Go(func() error {
		slog.Info("starting server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	if cfg.SongWatchDir != "" {
		importer := songsync.NewImporter(services.NewSongService(sqlDB, queries), slog.Default())
		g.Go(func() error {
			return importer.Watch(gctx, cfg.SongWatchDir)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down", slog.Duration("timeout", cfg.ShutdownTimeout))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Stopping the broker closes every outbound buffer, which ends the
		// realtime writers; hijacked connections are not tracked by Shutdown.
		stopBroker()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
