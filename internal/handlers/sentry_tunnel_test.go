package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yalmoalm/JaMoveo/internal/config"
)

func TestSentryTunnel(t *testing.T) {
	var (
		gotPath string
		gotBody string
	)
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(upstream.Close)

	dsn := strings.Replace(upstream.URL, "http://", "http://publickey@", 1) + "/42"
	handler := NewSentryTunnelHandler(&config.Config{SentryDSNFrontend: dsn})

	envelope := `{"dsn":"` + dsn + `"}` + "\n" + `{"type":"event"}` + "\n" + `{}`

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"forwards", envelope, http.StatusOK},
		{"other dsn", `{"dsn":"https://k@sentry.example/1"}` + "\n{}", http.StatusUnauthorized},
		{"bad header", "not json\n{}", http.StatusBadRequest},
		{"empty", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.Tunnel(rec, httptest.NewRequest(http.MethodPost, "/api/sentry-tunnel", strings.NewReader(tt.body)))
			assert.Equal(t, tt.status, rec.Code)
		})
	}

	assert.Equal(t, "/api/42/envelope/", gotPath)
	assert.Equal(t, envelope, gotBody)
}

func TestSentryTunnelDisabled(t *testing.T) {
	handler := NewSentryTunnelHandler(&config.Config{})
	rec := httptest.NewRecorder()
	handler.Tunnel(rec, httptest.NewRequest(http.MethodPost, "/api/sentry-tunnel", strings.NewReader("{}")))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnvelopeURL(t *testing.T) {
	got, err := envelopeURL("https://abc@o1.ingest.sentry.io/123")
	require.NoError(t, err)
	assert.Equal(t, "https://o1.ingest.sentry.io/api/123/envelope/", got)

	_, err = envelopeURL("https://abc@o1.ingest.sentry.io/")
	assert.Error(t, err)
}
