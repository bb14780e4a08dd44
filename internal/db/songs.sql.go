package db

import (
	"context"
	"database/sql"
)

const createSong = `INSERT INTO songs (name) VALUES (?) RETURNING id, name`

func (q *Queries) CreateSong(ctx context.Context, name string) (Song, error) {
	row := q.db.QueryRowContext(ctx, createSong, name)
	var i Song
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const getSongByID = `SELECT id, name FROM songs WHERE id = ?`

func (q *Queries) GetSongByID(ctx context.Context, id int64) (Song, error) {
	row := q.db.QueryRowContext(ctx, getSongByID, id)
	var i Song
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

// Names are not unique; the oldest song wins.
const getSongByName = `SELECT id, name FROM songs
WHERE lower(name) = lower(?)
ORDER BY id
LIMIT 1`

// GetSongByName matches name case-insensitively.
func (q *Queries) GetSongByName(ctx context.Context, name string) (Song, error) {
	row := q.db.QueryRowContext(ctx, getSongByName, name)
	var i Song
	err := row.Scan(&i.ID, &i.Name)
	return i, err
}

const listSongs = `SELECT id, name FROM songs ORDER BY id`

func (q *Queries) ListSongs(ctx context.Context) ([]Song, error) {
	rows, err := q.db.QueryContext(ctx, listSongs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Song
	for rows.Next() {
		var i Song
		if err := rows.Scan(&i.ID, &i.Name); err != nil {
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

const deleteSong = `DELETE FROM songs WHERE id = ?`

func (q *Queries) DeleteSong(ctx context.Context, id int64) (sql.Result, error) {
	return q.db.ExecContext(ctx, deleteSong, id)
}

const createSongLine = `INSERT INTO song_lines (song_id, line_number, word_order, lyrics, chords)
VALUES (?, ?, ?, ?, ?)`

type CreateSongLineParams struct {
	SongID     int64
	LineNumber int64
	WordOrder  int64
	Lyrics     string
	Chords     sql.NullString
}

func (q *Queries) CreateSongLine(ctx context.Context, arg CreateSongLineParams) error {
	_, err := q.db.ExecContext(ctx, createSongLine,
		arg.SongID,
		arg.LineNumber,
		arg.WordOrder,
		arg.Lyrics,
		arg.Chords,
	)
	return err
}

const listSongLines = `SELECT id, song_id, line_number, word_order, lyrics, chords
FROM song_lines
WHERE song_id = ?
ORDER BY line_number, word_order, id`

func (q *Queries) ListSongLines(ctx context.Context, songID int64) ([]SongLine, error) {
	rows, err := q.db.QueryContext(ctx, listSongLines, songID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SongLine
	for rows.Next() {
		var i SongLine
		if err := rows.Scan(
			&i.ID,
			&i.SongID,
			&i.LineNumber,
			&i.WordOrder,
			&i.Lyrics,
			&i.Chords,
		); err != nil {
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

const deleteSongLines = `DELETE FROM song_lines WHERE song_id = ?`

func (q *Queries) DeleteSongLines(ctx context.Context, songID int64) error {
	_, err := q.db.ExecContext(ctx, deleteSongLines, songID)
	return err
}
