package models

import "time"

// ErrorResponse is the body of every error reply. Error carries the
// underlying cause only where a handler chooses to expose it.
type ErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

// Auth
type SignupRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Instrument string `json:"instrument"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID         int64  `json:"id"`
	Username   string `json:"username"`
	Instrument string `json:"instrument"`
	Role       string `json:"role"`
}

type SignupResponse struct {
	Message string       `json:"message"`
	User    UserResponse `json:"user"`
}

// XUser is the identity a client echoes back in the X-User header.
type XUser struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

type LoginResponse struct {
	Message string `json:"message"`
	XUser   XUser  `json:"x_user"`
	Token   string `json:"token"`
}

// Songs
type SongSummary struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type SongLineResponse struct {
	ID         int64   `json:"id"`
	LineNumber int64   `json:"line_number"`
	WordOrder  int64   `json:"word_order"`
	Lyrics     string  `json:"lyrics"`
	Chords     *string `json:"chords"`
}

type SongResponse struct {
	ID    int64              `json:"id"`
	Name  string             `json:"name"`
	Lines []SongLineResponse `json:"lines"`
}

type UploadSongResponse struct {
	Message string       `json:"message"`
	Song    SongResponse `json:"song"`
}

// Sessions
type CreateSessionRequest struct {
	AdminID       *int64 `json:"admin_id"`
	CurrentSongID *int64 `json:"current_song_id,omitempty"`
}

type UpdateSessionSongRequest struct {
	CurrentSongID *int64 `json:"current_song_id"`
}

type SessionResponse struct {
	ID            int64     `json:"id"`
	AdminID       int64     `json:"admin_id"`
	CurrentSongID *int64    `json:"current_song_id"`
	IsActive      bool      `json:"is_active"`
	CreatedAt     time.Time `json:"created_at"`
}

type SessionEnvelope struct {
	Message string          `json:"message"`
	Session SessionResponse `json:"session"`
}

// Misc
type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type PublicConfigResponse struct {
	RealtimePath        string   `json:"realtimePath"`
	PingIntervalSeconds int      `json:"pingIntervalSeconds"`
	DeliveryPolicy      string   `json:"deliveryPolicy"`
	InboundEvents       []string `json:"inboundEvents"`
	OutboundEvents      []string `json:"outboundEvents"`
}
