package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/yalmoalm/JaMoveo/internal/database"
	"github.com/yalmoalm/JaMoveo/internal/db"
)

// Word is one entry of an uploaded song file. A song file is a JSON array of
// lines, each line an array of words.
type Word struct {
	Lyrics *string `json:"lyrics"`
	Chords *string `json:"chords,omitempty"`
}

// SongDetail is a song with its words in display order.
type SongDetail struct {
	Song  db.Song
	Lines []db.SongLine
}

// SongService manages the song library.
type SongService struct {
	sqlDB   *sql.DB
	queries *db.Queries
}

func NewSongService(sqlDB *sql.DB, queries *db.Queries) *SongService {
	return &SongService{sqlDB: sqlDB, queries: queries}
}

// ParseSongFile decodes an uploaded song file.
func ParseSongFile(r io.Reader) ([][]Word, error) {
	var lines [][]Word
	if err := json.NewDecoder(r).Decode(&lines); err != nil {
		return nil, ErrValidation("Invalid song file: %v", err)
	}
	for i, line := range lines {
		for j, w := range line {
			if w.Lyrics == nil {
				return nil, ErrValidation("Invalid song file: line %d word %d has no lyrics", i+1, j+1)
			}
		}
	}
	return lines, nil
}

// List returns every song ordered by id.
func (s *SongService) List(ctx context.Context) ([]db.Song, error) {
	songs, err := s.queries.ListSongs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return songs, nil
}

// GetByName finds a song by case-insensitive name. When several songs share
// the name, the one with the lowest id is returned.
func (s *SongService) GetByName(ctx context.Context, name string) (SongDetail, error) {
	song, err := s.queries.GetSongByName(ctx, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SongDetail{}, ErrNotFound("Song not found")
		}
		return SongDetail{}, fmt.Errorf("get song %q: %w", name, err)
	}

	lines, err := s.queries.ListSongLines(ctx, song.ID)
	if err != nil {
		return SongDetail{}, fmt.Errorf("list lines of song %d: %w", song.ID, err)
	}

	return SongDetail{Song: song, Lines: lines}, nil
}

// Create stores a song and all of its words in one transaction.
// line_number and word_order are assigned from array positions, starting at 1.
func (s *SongService) Create(ctx context.Context, name string, lines [][]Word) (SongDetail, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return SongDetail{}, ErrValidation("Song name is required")
	}

	var detail SongDetail
	err := database.Tx(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		q := s.queries.WithTx(tx)

		song, err := q.CreateSong(ctx, name)
		if err != nil {
			return fmt.Errorf("create song: %w", err)
		}

		for i, line := range lines {
			for j, w := range line {
				var chords sql.NullString
				if w.Chords != nil && *w.Chords != "" {
					chords = sql.NullString{String: *w.Chords, Valid: true}
				}
				if err := q.CreateSongLine(ctx, db.CreateSongLineParams{
					SongID:     song.ID,
					LineNumber: int64(i + 1),
					WordOrder:  int64(j + 1),
					Lyrics:     *w.Lyrics,
					Chords:     chords,
				}); err != nil {
					return fmt.Errorf("create line %d word %d: %w", i+1, j+1, err)
				}
			}
		}

		stored, err := q.ListSongLines(ctx, song.ID)
		if err != nil {
			return fmt.Errorf("list lines of song %d: %w", song.ID, err)
		}
		detail = SongDetail{Song: song, Lines: stored}
		return nil
	})
	if err != nil {
		return SongDetail{}, err
	}

	return detail, nil
}

// DeleteByName removes the song GetByName would return, together with its
// lines. Sessions pointing at it lose their current song.
func (s *SongService) DeleteByName(ctx context.Context, name string) (db.Song, error) {
	var deleted db.Song
	err := database.Tx(ctx, s.sqlDB, func(ctx context.Context, tx *sql.Tx) error {
		q := s.queries.WithTx(tx)

		song, err := q.GetSongByName(ctx, name)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrNotFound("Song not found")
			}
			return fmt.Errorf("get song %q: %w", name, err)
		}

		if err := q.DeleteSongLines(ctx, song.ID); err != nil {
			return fmt.Errorf("delete lines of song %d: %w", song.ID, err)
		}
		if _, err := q.DeleteSong(ctx, song.ID); err != nil {
			return fmt.Errorf("delete song %d: %w", song.ID, err)
		}

		deleted = song
		return nil
	})
	if err != nil {
		return db.Song{}, err
	}

	return deleted, nil
}
