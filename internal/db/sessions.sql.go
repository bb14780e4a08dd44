package db

import (
	"context"
	"database/sql"
	"time"
)

const createSession = `INSERT INTO sessions (admin_id, current_song_id, is_active, created_at)
VALUES (?, ?, 1, ?)`

type CreateSessionParams struct {
	AdminID       int64
	CurrentSongID sql.NullInt64
	CreatedAt     time.Time
}

// CreateSession inserts an active session and returns its id.
func (q *Queries) CreateSession(ctx context.Context, arg CreateSessionParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createSession, arg.AdminID, arg.CurrentSongID, arg.CreatedAt)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const selectSession = `SELECT id, admin_id, current_song_id, is_active, created_at FROM sessions`

const getSession = selectSession + `
WHERE id = ?`

func (q *Queries) GetSession(ctx context.Context, id int64) (Session, error) {
	row := q.db.QueryRowContext(ctx, getSession, id)
	return scanSession(row)
}

const listActiveSessions = selectSession + `
WHERE is_active = 1
ORDER BY created_at DESC, id DESC`

func (q *Queries) ListActiveSessions(ctx context.Context) ([]Session, error) {
	rows, err := q.db.QueryContext(ctx, listActiveSessions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Session
	for rows.Next() {
		i, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const endSession = `UPDATE sessions SET is_active = 0 WHERE id = ?`

// EndSession marks the session inactive. Ending an inactive session still
// affects its row.
func (q *Queries) EndSession(ctx context.Context, id int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, endSession, id)
}

const updateSessionSong = `UPDATE sessions SET current_song_id = ? WHERE id = ?`

type UpdateSessionSongParams struct {
	CurrentSongID sql.NullInt64
	ID            int64
}

func (q *Queries) UpdateSessionSong(ctx context.Context, arg UpdateSessionSongParams) (sql.Result, error) {
	return q.db.ExecContext(ctx, updateSessionSong, arg.CurrentSongID, arg.ID)
}

func scanSession(s scanner) (Session, error) {
	var i Session
	err := s.Scan(
		&i.ID,
		&i.AdminID,
		&i.CurrentSongID,
		&i.IsActive,
		&i.CreatedAt,
	)
	return i, err
}
