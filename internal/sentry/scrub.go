// Package sentry configures error reporting and keeps credentials out of
// the events sent to Sentry.
package sentry

import (
	"net/url"
	"strings"

	"github.com/getsentry/sentry-go"
)

const filtered = "[Filtered]"

// sensitiveHeaders are compared case-insensitively.
var sensitiveHeaders = map[string]bool{
	"authorization": true,
	"cookie":        true,
	"set-cookie":    true,
	"x-user":        true,
}

// sensitiveKeys are field names that may carry credentials in tags, extras,
// breadcrumb data or query strings.
var sensitiveKeys = map[string]bool{
	"password":      true,
	"token":         true,
	"secret":        true,
	"jwt":           true,
	"x_user":        true,
	"x-user":        true,
	"authorization": true,
	"cookie":        true,
}

func isSensitiveKey(key string) bool {
	return sensitiveKeys[strings.ToLower(key)]
}

// Options builds the client options used at startup.
func Options(dsn, environment string) sentry.ClientOptions {
	return sentry.ClientOptions{
		Dsn:                   dsn,
		Environment:           environment,
		AttachStacktrace:      true,
		BeforeSend:            ScrubEvent,
		BeforeSendTransaction: ScrubTransaction,
	}
}

// ScrubEvent redacts credential headers, strips request bodies, and filters
// sensitive tags, extras, breadcrumb data and query parameters. The realtime
// channel accepts ?token= so query strings are scrubbed too.
func ScrubEvent(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	if event.Request != nil {
		for header := range event.Request.Headers {
			if sensitiveHeaders[strings.ToLower(header)] {
				event.Request.Headers[header] = filtered
			}
		}
		// Signup and login bodies carry passwords.
		event.Request.Data = ""
		event.Request.Cookies = ""
		event.Request.QueryString = scrubQuery(event.Request.QueryString)
	}

	for key := range event.Tags {
		if isSensitiveKey(key) {
			event.Tags[key] = filtered
		}
	}
	for key := range event.Extra {
		if isSensitiveKey(key) {
			event.Extra[key] = filtered
		}
	}

	for i := range event.Breadcrumbs {
		for key := range event.Breadcrumbs[i].Data {
			if isSensitiveKey(key) {
				event.Breadcrumbs[i].Data[key] = filtered
			}
		}
	}

	return event
}

// ScrubTransaction applies the same scrubbing logic to transaction events.
func ScrubTransaction(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
	return ScrubEvent(event, hint)
}

func scrubQuery(raw string) string {
	if raw == "" {
		return raw
	}
	values, err := url.ParseQuery(raw)
	if err != nil {
		return filtered
	}
	changed := false
	for key := range values {
		if isSensitiveKey(key) {
			values[key] = []string{filtered}
			changed = true
		}
	}
	if !changed {
		return raw
	}
	return values.Encode()
}
