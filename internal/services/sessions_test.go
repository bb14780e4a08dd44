package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "admin")

	fixed := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	env.sessions.now = func() time.Time { return fixed }

	session, err := env.sessions.Create(ctx, CreateSessionParams{AdminID: &admin.ID})
	require.NoError(t, err)
	assert.Equal(t, admin.ID, session.AdminID)
	assert.True(t, session.IsActive)
	assert.False(t, session.CurrentSongID.Valid)
	assert.True(t, fixed.Equal(session.CreatedAt), "created_at = %v", session.CreatedAt)
}

func TestSessionService_ZeroSongIDMeansNoSong(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "admin")

	session, err := env.sessions.Create(ctx, CreateSessionParams{AdminID: &admin.ID, CurrentSongID: int64Ptr(0)})
	require.NoError(t, err)
	assert.False(t, session.CurrentSongID.Valid)

	song, err := env.songs.Create(ctx, "Yellow", [][]Word{{{Lyrics: strPtr("Look")}}})
	require.NoError(t, err)
	session, err = env.sessions.SetCurrentSong(ctx, session.ID, &song.Song.ID)
	require.NoError(t, err)
	require.True(t, session.CurrentSongID.Valid)

	session, err = env.sessions.SetCurrentSong(ctx, session.ID, int64Ptr(0))
	require.NoError(t, err)
	assert.False(t, session.CurrentSongID.Valid, "zero clears the current song")
}

func TestSessionService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "admin")
	player := env.player(t, "player")

	tests := []struct {
		name    string
		params  CreateSessionParams
		message string
	}{
		{"missing admin", CreateSessionParams{}, "Field 'admin_id' is required to create a session."},
		{"unknown admin", CreateSessionParams{AdminID: int64Ptr(999)}, "Invalid admin_id. User not found or not an admin."},
		{"player as admin", CreateSessionParams{AdminID: &player.ID}, "Invalid admin_id. User not found or not an admin."},
		{"unknown song", CreateSessionParams{AdminID: &admin.ID, CurrentSongID: int64Ptr(999)}, "Invalid current_song_id. Song not found."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.sessions.Create(ctx, tt.params)
			var validation *ValidationError
			require.ErrorAs(t, err, &validation)
			assert.Equal(t, tt.message, validation.Message)
		})
	}

	active, err := env.sessions.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, active, "rejected creates must not write anything")
}

func TestSessionService_EndIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "admin")

	session, err := env.sessions.Create(ctx, CreateSessionParams{AdminID: &admin.ID})
	require.NoError(t, err)

	ended, err := env.sessions.End(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, ended.IsActive)

	again, err := env.sessions.End(ctx, session.ID)
	require.NoError(t, err)
	assert.False(t, again.IsActive)

	_, err = env.sessions.End(ctx, 999)
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "Session not found.", notFound.Message)
}

func TestSessionService_ListActive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "admin")

	base := time.Date(2024, 5, 1, 20, 0, 0, 0, time.UTC)
	var ids []int64
	for i := 0; i < 3; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		env.sessions.now = func() time.Time { return at }
		s, err := env.sessions.Create(ctx, CreateSessionParams{AdminID: &admin.ID})
		require.NoError(t, err)
		ids = append(ids, s.ID)
	}

	_, err := env.sessions.End(ctx, ids[1])
	require.NoError(t, err)

	active, err := env.sessions.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, ids[2], active[0].ID, "newest first")
	assert.Equal(t, ids[0], active[1].ID)
}

func TestSessionService_SetCurrentSong(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.admin(t, "admin")

	song, err := env.songs.Create(ctx, "Help", [][]Word{{{Lyrics: strPtr("Help!")}}})
	require.NoError(t, err)

	session, err := env.sessions.Create(ctx, CreateSessionParams{AdminID: &admin.ID})
	require.NoError(t, err)

	updated, err := env.sessions.SetCurrentSong(ctx, session.ID, &song.Song.ID)
	require.NoError(t, err)
	require.True(t, updated.CurrentSongID.Valid)
	assert.Equal(t, song.Song.ID, updated.CurrentSongID.Int64)

	_, err = env.sessions.SetCurrentSong(ctx, session.ID, int64Ptr(999))
	var validation *ValidationError
	require.ErrorAs(t, err, &validation)

	cleared, err := env.sessions.SetCurrentSong(ctx, session.ID, nil)
	require.NoError(t, err)
	assert.False(t, cleared.CurrentSongID.Valid)

	_, err = env.sessions.End(ctx, session.ID)
	require.NoError(t, err)

	_, err = env.sessions.SetCurrentSong(ctx, session.ID, &song.Song.ID)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "Session is not active.", conflict.Message)
}
