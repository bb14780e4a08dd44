package db

import (
	"database/sql"
	"time"
)

type Role struct {
	ID   int64
	Name string
}

type User struct {
	ID         int64
	Username   string
	Password   string
	Instrument string
	RoleID     int64
}

// UserWithRole is a user joined with its role name.
type UserWithRole struct {
	ID         int64
	Username   string
	Password   string
	Instrument string
	RoleID     int64
	RoleName   string
}

type Song struct {
	ID   int64
	Name string
}

// SongLine is one word of a song. LineNumber and WordOrder are 1-based.
type SongLine struct {
	ID         int64
	SongID     int64
	LineNumber int64
	WordOrder  int64
	Lyrics     string
	Chords     sql.NullString
}

type Session struct {
	ID            int64
	AdminID       int64
	CurrentSongID sql.NullInt64
	IsActive      bool
	CreatedAt     time.Time
}
