package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/yalmoalm/JaMoveo/internal/broker"
)

var (
	// ErrMalformedEvent is returned for frames whose payload has the wrong shape.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrUnknownEvent is returned for frames naming an event the gateway does not handle.
	ErrUnknownEvent = errors.New("unknown event")
)

// inbound is a client frame: {"event": <name>, "data": <payload>}.
type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type songUpdate struct {
	SessionID json.RawMessage `json:"sessionId"`
	Song      json.RawMessage `json:"song"`
}

// Dispatch decodes one inbound frame from clientID and applies it to the
// broker. Rejected frames change nothing and return an error wrapping
// ErrMalformedEvent or ErrUnknownEvent.
func (g *Gateway) Dispatch(ctx context.Context, clientID string, frame []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrMalformedEvent, r)
		}
	}()

	var in inbound
	if err := json.Unmarshal(frame, &in); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}

	switch in.Event {
	case broker.EventJoinSession:
		sessionID, err := ParseSessionID(in.Data)
		if err != nil {
			return err
		}
		g.broker.Join(clientID, sessionID)

	case broker.EventEndSession:
		sessionID, err := ParseSessionID(in.Data)
		if err != nil {
			return err
		}
		g.broker.EndSession(ctx, sessionID)

	case broker.EventSongUpdated:
		var p songUpdate
		if err := json.Unmarshal(in.Data, &p); err != nil {
			return fmt.Errorf("%w: song-updated payload: %v", ErrMalformedEvent, err)
		}
		sessionID, err := ParseSessionID(p.SessionID)
		if err != nil {
			return err
		}
		if isNull(p.Song) {
			return fmt.Errorf("%w: song-updated without song", ErrMalformedEvent)
		}
		g.broker.SongUpdated(ctx, sessionID, p.Song)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, in.Event)
	}

	return nil
}

// ParseSessionID normalizes a session id sent as a JSON integer or string.
// 42, "42" and " 42 " all name the same group.
func ParseSessionID(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if isNull(raw) {
		return "", fmt.Errorf("%w: missing session id", ErrMalformedEvent)
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: session id: %v", ErrMalformedEvent, err)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return "", fmt.Errorf("%w: empty session id", ErrMalformedEvent)
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
		return s, nil
	}

	var num json.Number
	if err := json.Unmarshal(raw, &num); err != nil {
		return "", fmt.Errorf("%w: session id must be a string or integer", ErrMalformedEvent)
	}
	n, err := num.Int64()
	if err != nil {
		return "", fmt.Errorf("%w: session id %s is not an integer", ErrMalformedEvent, num)
	}
	return strconv.FormatInt(n, 10), nil
}

func isNull(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) == 0 || bytes.Equal(raw, []byte("null"))
}
