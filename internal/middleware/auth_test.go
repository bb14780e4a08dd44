package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yalmoalm/JaMoveo/internal/services"
)

func echoIdentity(w http.ResponseWriter, r *http.Request) {
	identity, ok := GetIdentity(r.Context())
	if !ok {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(identity)
}

func TestAuthenticate(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Hour)
	token, err := auth.GenerateToken(services.Identity{ID: 9, Role: services.RolePlayer})
	require.NoError(t, err)

	handler := Authenticate(auth)(http.HandlerFunc(echoIdentity))

	tests := []struct {
		name           string
		headers        map[string]string
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "x-user admin",
			headers:        map[string]string{"X-User": `{"id":1,"role":"admin"}`},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"id":1,"role":"admin"}`,
		},
		{
			name:           "bearer token",
			headers:        map[string]string{"Authorization": "Bearer " + token},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"id":9,"role":"player"}`,
		},
		{
			name:           "bearer wins over x-user",
			headers:        map[string]string{"Authorization": "Bearer " + token, "X-User": `{"id":1,"role":"admin"}`},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"id":9,"role":"player"}`,
		},
		{
			name:           "missing identity",
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"message":"Unauthorized: 'x-user' header is missing"}`,
		},
		{
			name:           "x-user not json",
			headers:        map[string]string{"X-User": `admin`},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"message":"Invalid 'x-user' header: must be valid JSON"}`,
		},
		{
			name:           "x-user missing id",
			headers:        map[string]string{"X-User": `{"role":"admin"}`},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"message":"'x-user' must include 'id' (number) and 'role' (string)"}`,
		},
		{
			name:           "malformed authorization",
			headers:        map[string]string{"Authorization": "Token abc"},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"message":"Invalid authorization header format"}`,
		},
		{
			name:           "invalid token",
			headers:        map[string]string{"Authorization": "Bearer abc.def.ghi"},
			expectedStatus: http.StatusUnauthorized,
			expectedBody:   `{"message":"Invalid or expired token"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
		})
	}
}

func TestRequireRole(t *testing.T) {
	auth := services.NewAuthService("test-secret", time.Hour)
	handler := Authenticate(auth)(RequireRole(services.RoleAdmin)(http.HandlerFunc(echoIdentity)))

	tests := []struct {
		name           string
		xUser          string
		expectedStatus int
		expectedBody   string
	}{
		{"admin allowed", `{"id":1,"role":"admin"}`, http.StatusOK, `{"id":1,"role":"admin"}`},
		{"player denied", `{"id":2,"role":"player"}`, http.StatusForbidden, `{"message":"Access denied: role 'player' is not authorized for this resource"}`},
		{"unknown role denied", `{"id":3,"role":"roadie"}`, http.StatusForbidden, `{"message":"Access denied: role 'roadie' is not authorized for this resource"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/sessions", nil)
			req.Header.Set("X-User", tt.xUser)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.JSONEq(t, tt.expectedBody, rec.Body.String())
		})
	}
}

func TestRequireRoleWithoutAuthenticate(t *testing.T) {
	handler := RequireRole(services.RoleAdmin)(http.HandlerFunc(echoIdentity))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
