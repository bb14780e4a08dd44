package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/yalmoalm/JaMoveo/internal/db"
)

// CreateSessionParams are the inputs of SessionService.Create.
type CreateSessionParams struct {
	AdminID       *int64
	CurrentSongID *int64
}

// SessionService owns the durable session lifecycle: create, move the
// current song, end. The realtime fan-out is driven separately by clients.
type SessionService struct {
	queries *db.Queries
	now     func() time.Time
}

func NewSessionService(queries *db.Queries) *SessionService {
	return &SessionService{queries: queries, now: time.Now}
}

// Create opens a session owned by an admin. Nothing is written when the
// admin or the song fails validation.
func (s *SessionService) Create(ctx context.Context, p CreateSessionParams) (db.Session, error) {
	if p.AdminID == nil {
		return db.Session{}, ErrValidation("Field 'admin_id' is required to create a session.")
	}

	admin, err := s.queries.GetUserByID(ctx, *p.AdminID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return db.Session{}, ErrValidation("Invalid admin_id. User not found or not an admin.")
	case err != nil:
		return db.Session{}, fmt.Errorf("lookup admin %d: %w", *p.AdminID, err)
	case Role(admin.RoleName) != RoleAdmin:
		return db.Session{}, ErrValidation("Invalid admin_id. User not found or not an admin.")
	}

	songID, err := s.resolveSong(ctx, p.CurrentSongID)
	if err != nil {
		return db.Session{}, err
	}

	id, err := s.queries.CreateSession(ctx, db.CreateSessionParams{
		AdminID:       admin.ID,
		CurrentSongID: songID,
		CreatedAt:     s.now().UTC(),
	})
	if err != nil {
		return db.Session{}, fmt.Errorf("create session: %w", err)
	}

	return s.Get(ctx, id)
}

// Get returns a session by id.
func (s *SessionService) Get(ctx context.Context, id int64) (db.Session, error) {
	session, err := s.queries.GetSession(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.Session{}, ErrNotFound("Session not found.")
		}
		return db.Session{}, fmt.Errorf("get session %d: %w", id, err)
	}
	return session, nil
}

// ListActive returns active sessions, newest first.
func (s *SessionService) ListActive(ctx context.Context) ([]db.Session, error) {
	sessions, err := s.queries.ListActiveSessions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

// End marks a session inactive. Ending an already ended session succeeds.
func (s *SessionService) End(ctx context.Context, id int64) (db.Session, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return db.Session{}, err
	}

	if _, err := s.queries.EndSession(ctx, id); err != nil {
		return db.Session{}, fmt.Errorf("end session %d: %w", id, err)
	}

	return s.Get(ctx, id)
}

// SetCurrentSong moves the current-song pointer of an active session.
// A nil songID clears it.
func (s *SessionService) SetCurrentSong(ctx context.Context, id int64, songID *int64) (db.Session, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return db.Session{}, err
	}
	if !session.IsActive {
		return db.Session{}, ErrConflict("Session is not active.")
	}

	current, err := s.resolveSong(ctx, songID)
	if err != nil {
		return db.Session{}, err
	}

	if _, err := s.queries.UpdateSessionSong(ctx, db.UpdateSessionSongParams{
		CurrentSongID: current,
		ID:            id,
	}); err != nil {
		return db.Session{}, fmt.Errorf("update song of session %d: %w", id, err)
	}

	return s.Get(ctx, id)
}

// resolveSong treats a nil or zero id as no song.
func (s *SessionService) resolveSong(ctx context.Context, songID *int64) (sql.NullInt64, error) {
	if songID == nil || *songID == 0 {
		return sql.NullInt64{}, nil
	}
	if _, err := s.queries.GetSongByID(ctx, *songID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return sql.NullInt64{}, ErrValidation("Invalid current_song_id. Song not found.")
		}
		return sql.NullInt64{}, fmt.Errorf("lookup song %d: %w", *songID, err)
	}
	return sql.NullInt64{Int64: *songID, Valid: true}, nil
}
