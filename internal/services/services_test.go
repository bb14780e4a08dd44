package services

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/yalmoalm/JaMoveo/internal/database/dbtest"
	"github.com/yalmoalm/JaMoveo/internal/db"
)

type testEnv struct {
	sqlDB    *sql.DB
	queries  *db.Queries
	auth     *AuthService
	users    *UserService
	songs    *SongService
	sessions *SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sqlDB := dbtest.Open(t)
	queries := db.New(sqlDB)
	require.NoError(t, SeedRoles(context.Background(), queries))

	auth := NewAuthService("test-secret", time.Hour)
	return &testEnv{
		sqlDB:    sqlDB,
		queries:  queries,
		auth:     auth,
		users:    NewUserService(queries, auth),
		songs:    NewSongService(sqlDB, queries),
		sessions: NewSessionService(queries),
	}
}

func (e *testEnv) admin(t *testing.T, username string) db.UserWithRole {
	t.Helper()
	u, err := e.users.CreateAdmin(context.Background(), SignupParams{Username: username, Password: "pw", Instrument: "vocals"})
	require.NoError(t, err)
	return u
}

func (e *testEnv) player(t *testing.T, username string) db.UserWithRole {
	t.Helper()
	u, err := e.users.Signup(context.Background(), SignupParams{Username: username, Password: "pw", Instrument: "guitar"})
	require.NoError(t, err)
	return u
}

func strPtr(s string) *string { return &s }

func int64Ptr(n int64) *int64 { return &n }
