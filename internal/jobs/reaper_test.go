package jobs

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yalmoalm/JaMoveo/internal/broker"
	"github.com/yalmoalm/JaMoveo/internal/database/dbtest"
	"github.com/yalmoalm/JaMoveo/internal/db"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

func TestSessionReaper_Sweep(t *testing.T) {
	ctx := context.Background()
	sqlDB := dbtest.Open(t)
	queries := db.New(sqlDB)
	require.NoError(t, services.SeedRoles(ctx, queries))

	users := services.NewUserService(queries, services.NewAuthService("test-secret", time.Hour))
	admin, err := users.CreateAdmin(ctx, services.SignupParams{Username: "admin", Password: "pw", Instrument: "vocals"})
	require.NoError(t, err)

	sessions := services.NewSessionService(queries)
	old, err := sessions.Create(ctx, services.CreateSessionParams{AdminID: &admin.ID})
	require.NoError(t, err)

	b := broker.New()
	runCtx, cancel := context.WithCancel(ctx)
	stopped := make(chan struct{})
	go func() {
		b.Run(runCtx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	member := broker.NewClient("m1", 4)
	b.Register(member)
	b.Join("m1", strconv.FormatInt(old.ID, 10))

	reaper := NewSessionReaper(sessions, b, time.Hour, "@every 1h", slog.New(slog.NewTextHandler(io.Discard, nil)))

	// Nothing is old enough yet.
	n, err := reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	reaper.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	n, err = reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := sessions.Get(ctx, old.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	select {
	case msg := <-member.Messages():
		assert.Equal(t, broker.EventForceLogout, msg.Event)
	case <-time.After(2 * time.Second):
		t.Fatal("member was not logged out")
	}

	n, err = reaper.Sweep(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "ended sessions are not swept again")
}

func TestSessionReaper_StartRejectsBadSchedule(t *testing.T) {
	reaper := NewSessionReaper(nil, nil, time.Hour, "every now and then", slog.New(slog.NewTextHandler(io.Discard, nil)))
	assert.Error(t, reaper.Start())
}
