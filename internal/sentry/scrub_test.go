package sentry

import (
	"net/url"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScrubEvent_RedactsSensitiveHeaders(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{
			Headers: map[string]string{
				"Authorization": "Bearer secret-token",
				"Cookie":        "session=abc123",
				"Set-Cookie":    "session=abc123; HttpOnly",
				"X-User":        `{"id":1,"role":"admin"}`,
				"x-user":        `{"id":2,"role":"player"}`,
				"Content-Type":  "application/json",
			},
		},
	}

	result := ScrubEvent(event, nil)

	for _, header := range []string{"Authorization", "Cookie", "Set-Cookie", "X-User", "x-user"} {
		assert.Equal(t, "[Filtered]", result.Request.Headers[header], header)
	}
	assert.Equal(t, "application/json", result.Request.Headers["Content-Type"])
}

func TestScrubEvent_StripsRequestBody(t *testing.T) {
	event := &sentry.Event{
		Request: &sentry.Request{
			Data:    `{"username":"ringo","password":"hunter2"}`,
			Cookies: "session=abc",
		},
	}

	result := ScrubEvent(event, nil)

	assert.Empty(t, result.Request.Data)
	assert.Empty(t, result.Request.Cookies)
}

func TestScrubEvent_ScrubsQueryString(t *testing.T) {
	tests := []struct {
		name  string
		query string
		check func(t *testing.T, got string)
	}{
		{"empty", "", func(t *testing.T, got string) { assert.Empty(t, got) }},
		{"untouched", "active=true", func(t *testing.T, got string) { assert.Equal(t, "active=true", got) }},
		{"token", "token=abc.def.ghi&v=2", func(t *testing.T, got string) {
			values, err := url.ParseQuery(got)
			require.NoError(t, err)
			assert.Equal(t, "[Filtered]", values.Get("token"))
			assert.Equal(t, "2", values.Get("v"))
		}},
		{"unparseable", "token=%zz", func(t *testing.T, got string) { assert.Equal(t, "[Filtered]", got) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ScrubEvent(&sentry.Event{Request: &sentry.Request{QueryString: tt.query}}, nil)
			tt.check(t, result.Request.QueryString)
		})
	}
}

func TestScrubEvent_ScrubsTagsExtrasAndBreadcrumbs(t *testing.T) {
	event := &sentry.Event{
		Tags: map[string]string{
			"environment": "production",
			"Token":       "secret-value",
		},
		Extra: map[string]interface{}{
			"x_user":     map[string]interface{}{"id": 1},
			"session_id": "42",
		},
		Breadcrumbs: []*sentry.Breadcrumb{
			{Data: map[string]interface{}{
				"url":      "/api/auth/login",
				"password": "hunter2",
			}},
		},
	}

	result := ScrubEvent(event, nil)

	assert.Equal(t, "production", result.Tags["environment"])
	assert.Equal(t, "[Filtered]", result.Tags["Token"])
	assert.Equal(t, "[Filtered]", result.Extra["x_user"])
	assert.Equal(t, "42", result.Extra["session_id"])
	assert.Equal(t, "/api/auth/login", result.Breadcrumbs[0].Data["url"])
	assert.Equal(t, "[Filtered]", result.Breadcrumbs[0].Data["password"])
}

func TestScrubEvent_NilRequest(t *testing.T) {
	event := &sentry.Event{Message: "no request"}
	result := ScrubEvent(event, nil)
	require.NotNil(t, result)
	assert.Nil(t, result.Request)
}

func TestOptions(t *testing.T) {
	opts := Options("https://key@sentry.example/1", "staging")

	assert.Equal(t, "https://key@sentry.example/1", opts.Dsn)
	assert.Equal(t, "staging", opts.Environment)
	require.NotNil(t, opts.BeforeSend)
	require.NotNil(t, opts.BeforeSendTransaction)

	event := opts.BeforeSend(&sentry.Event{Tags: map[string]string{"jwt": "x"}}, nil)
	assert.Equal(t, "[Filtered]", event.Tags["jwt"])
}
