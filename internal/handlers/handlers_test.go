package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yalmoalm/JaMoveo/internal/broker"
	"github.com/yalmoalm/JaMoveo/internal/config"
	"github.com/yalmoalm/JaMoveo/internal/database/dbtest"
	"github.com/yalmoalm/JaMoveo/internal/db"
	"github.com/yalmoalm/JaMoveo/internal/models"
	"github.com/yalmoalm/JaMoveo/internal/services"
)

type testEnv struct {
	broker   *broker.Broker
	users    *services.UserService
	songs    *services.SongService
	sessions *services.SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	sqlDB := dbtest.Open(t)
	queries := db.New(sqlDB)
	require.NoError(t, services.SeedRoles(context.Background(), queries))

	b := broker.New()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	return &testEnv{
		broker:   b,
		users:    services.NewUserService(queries, services.NewAuthService("test-secret", time.Hour)),
		songs:    services.NewSongService(sqlDB, queries),
		sessions: services.NewSessionService(queries),
	}
}

func (e *testEnv) admin(t *testing.T) db.UserWithRole {
	t.Helper()
	u, err := e.users.CreateAdmin(context.Background(), services.SignupParams{Username: "admin", Password: "pw", Instrument: "vocals"})
	require.NoError(t, err)
	return u
}

// createTestRequest builds a request carrying chi URL params.
func createTestRequest(method, path string, body []byte, urlParams map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, path, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	req.Header.Set("Content-Type", "application/json")

	rctx := chi.NewRouteContext()
	for k, v := range urlParams {
		rctx.URLParams.Add(k, v)
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func mustJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(dst))
}

func TestAuthHandler_Signup(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAuthHandler(env.users)

	tests := []struct {
		name           string
		body           []byte
		expectedStatus int
		expectedMsg    string
	}{
		{
			name:           "creates player",
			body:           mustJSON(t, models.SignupRequest{Username: "john", Password: "pw", Instrument: "guitar"}),
			expectedStatus: http.StatusCreated,
			expectedMsg:    "User created successfully",
		},
		{
			name:           "duplicate username",
			body:           mustJSON(t, models.SignupRequest{Username: "john", Password: "pw2", Instrument: "piano"}),
			expectedStatus: http.StatusConflict,
			expectedMsg:    "Username already exists",
		},
		{
			name:           "missing instrument",
			body:           mustJSON(t, models.SignupRequest{Username: "paul", Password: "pw"}),
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "All fields are required: username, password, and instrument",
		},
		{
			name:           "invalid json",
			body:           []byte("{"),
			expectedStatus: http.StatusBadRequest,
			expectedMsg:    "Invalid request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Signup(rec, createTestRequest(http.MethodPost, "/api/auth/signup", tt.body, nil))

			assert.Equal(t, tt.expectedStatus, rec.Code)
			var resp models.SignupResponse
			decodeBody(t, rec, &resp)
			assert.Equal(t, tt.expectedMsg, resp.Message)
			if tt.expectedStatus == http.StatusCreated {
				assert.Equal(t, "john", resp.User.Username)
				assert.Equal(t, "player", resp.User.Role)
			}
		})
	}
}

func TestAuthHandler_CreateAdminAndLogin(t *testing.T) {
	env := newTestEnv(t)
	handler := NewAuthHandler(env.users)

	rec := httptest.NewRecorder()
	handler.CreateAdmin(rec, createTestRequest(http.MethodPost, "/api/auth/create-admin",
		mustJSON(t, models.SignupRequest{Username: "boss", Password: "secret", Instrument: "keys"}), nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var created models.SignupResponse
	decodeBody(t, rec, &created)
	assert.Equal(t, "admin", created.User.Role)

	rec = httptest.NewRecorder()
	handler.Login(rec, createTestRequest(http.MethodPost, "/api/auth/login",
		mustJSON(t, models.LoginRequest{Username: "boss", Password: "secret"}), nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var login models.LoginResponse
	decodeBody(t, rec, &login)
	assert.Equal(t, "Login successful", login.Message)
	assert.Equal(t, models.XUser{ID: created.User.ID, Role: "admin"}, login.XUser)
	assert.NotEmpty(t, login.Token)

	rec = httptest.NewRecorder()
	handler.Login(rec, createTestRequest(http.MethodPost, "/api/auth/login",
		mustJSON(t, models.LoginRequest{Username: "boss", Password: "nope"}), nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("jsonFile", filename)
	require.NoError(t, err)
	_, err = io.WriteString(part, content)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/songs/upload-json", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestSongHandler_UploadGetDelete(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSongHandler(env.songs)

	rec := httptest.NewRecorder()
	handler.UploadJSON(rec, uploadRequest(t, "hey_jude.json", `[[{"lyrics":"Hey","chords":"F"},{"lyrics":"Jude","chords":""}]]`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var uploaded models.UploadSongResponse
	decodeBody(t, rec, &uploaded)
	assert.Equal(t, "hey_jude", uploaded.Song.Name)
	require.Len(t, uploaded.Song.Lines, 2)

	rec = httptest.NewRecorder()
	handler.List(rec, createTestRequest(http.MethodGet, "/api/songs", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list []models.SongSummary
	decodeBody(t, rec, &list)
	assert.Equal(t, []models.SongSummary{{ID: uploaded.Song.ID, Name: "hey_jude"}}, list)

	rec = httptest.NewRecorder()
	handler.GetByName(rec, createTestRequest(http.MethodGet, "/api/songs/by-name/HEY_JUDE", nil, map[string]string{"name": "HEY_JUDE"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var song models.SongResponse
	decodeBody(t, rec, &song)
	require.Len(t, song.Lines, 2)
	require.NotNil(t, song.Lines[0].Chords)
	assert.Equal(t, "F", *song.Lines[0].Chords)
	assert.Nil(t, song.Lines[1].Chords)

	rec = httptest.NewRecorder()
	handler.DeleteByName(rec, createTestRequest(http.MethodDelete, "/api/songs/by-name/hey_jude", nil, map[string]string{"name": "hey_jude"}))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"Song 'hey_jude' deleted successfully."}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.GetByName(rec, createTestRequest(http.MethodGet, "/api/songs/by-name/hey_jude", nil, map[string]string{"name": "hey_jude"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"message":"Song not found"}`, rec.Body.String())
}

func TestSongHandler_UploadRejectsBadInput(t *testing.T) {
	env := newTestEnv(t)
	handler := NewSongHandler(env.songs)

	rec := httptest.NewRecorder()
	handler.UploadJSON(rec, createTestRequest(http.MethodPost, "/api/songs/upload-json", []byte(`{}`), nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"message":"No file uploaded"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.UploadJSON(rec, uploadRequest(t, "broken.json", `[[{"chords":"G"}]]`))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandler(t *testing.T) {
	env := newTestEnv(t)
	env.admin(t)
	handler := NewAdminHandler(env.users, env.broker)

	rec := httptest.NewRecorder()
	handler.ListUsers(rec, createTestRequest(http.MethodGet, "/api/users", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var users []models.UserResponse
	decodeBody(t, rec, &users)
	require.Len(t, users, 1)
	assert.Equal(t, "admin", users[0].Role)

	c := broker.NewClient("c1", 1)
	env.broker.Register(c)
	env.broker.Join("c1", "7")

	rec = httptest.NewRecorder()
	handler.RealtimeStats(rec, createTestRequest(http.MethodGet, "/api/realtime/stats", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var stats broker.Stats
	decodeBody(t, rec, &stats)
	assert.Equal(t, 1, stats.Clients)
	assert.Equal(t, 1, stats.Groups)
	assert.Equal(t, broker.DeliveryPolicy, stats.DeliveryPolicy)
}

func TestConfigAndHealth(t *testing.T) {
	handler := NewConfigHandler(&config.Config{WSPingInterval: 25 * time.Second})

	rec := httptest.NewRecorder()
	handler.PublicConfig(rec, createTestRequest(http.MethodGet, "/api/config", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var cfg models.PublicConfigResponse
	decodeBody(t, rec, &cfg)
	assert.Equal(t, "/sessions", cfg.RealtimePath)
	assert.Equal(t, 25, cfg.PingIntervalSeconds)
	assert.Contains(t, cfg.OutboundEvents, "force-logout")

	rec = httptest.NewRecorder()
	Health(rec, createTestRequest(http.MethodGet, "/api/health", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var health models.HealthResponse
	decodeBody(t, rec, &health)
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, "JaMoveo API is running", health.Message)
	assert.False(t, health.Timestamp.IsZero())
}
