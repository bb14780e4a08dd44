// Package jobs runs scheduled maintenance against the session store.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/yalmoalm/JaMoveo/internal/broker"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

// SessionReaper ends sessions left active longer than maxAge and logs their
// members out, for rehearsals the admin never closed.
type SessionReaper struct {
	cron     *cron.Cron
	sessions *services.SessionService
	broker   *broker.Broker
	maxAge   time.Duration
	schedule string
	now      func() time.Time
	logger   *slog.Logger
}

func NewSessionReaper(sessions *services.SessionService, b *broker.Broker, maxAge time.Duration, schedule string, logger *slog.Logger) *SessionReaper {
	return &SessionReaper{
		cron:     cron.New(),
		sessions: sessions,
		broker:   b,
		maxAge:   maxAge,
		schedule: schedule,
		now:      time.Now,
		logger:   logger,
	}
}

// Start registers the sweep on the schedule and starts the scheduler.
func (r *SessionReaper) Start() error {
	if _, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.Sweep(context.Background()); err != nil {
			r.logger.Warn("session sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.logger.Info("session reaper started", "schedule", r.schedule, "max_age", r.maxAge)
	return nil
}

// Stop waits for a running sweep to finish.
func (r *SessionReaper) Stop() {
	<-r.cron.Stop().Done()
	r.logger.Info("session reaper stopped")
}

// Sweep ends every expired session and returns how many it ended.
func (r *SessionReaper) Sweep(ctx context.Context) (int, error) {
	active, err := r.sessions.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := r.now().Add(-r.maxAge)
	ended := 0
	for _, s := range active {
		if !s.CreatedAt.Before(cutoff) {
			continue
		}
		if _, err := r.sessions.End(ctx, s.ID); err != nil {
			return ended, fmt.Errorf("end session %d: %w", s.ID, err)
		}
		r.broker.EndSession(ctx, strconv.FormatInt(s.ID, 10))
		r.logger.Info("ended stale session", "session_id", s.ID, "created_at", s.CreatedAt)
		ended++
	}
	return ended, nil
}
