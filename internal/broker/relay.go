package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/valkey-io/valkey-go"
)

// Relay carries session broadcasts between processes. Membership always
// stays local: each subscribed process fans a relayed message out to its
// own members only.
//
// Ordering between a local join and a relayed broadcast only holds within
// one process.
type Relay interface {
	Publish(ctx context.Context, sessionID string, msg Message) error
	// Subscribe blocks, calling deliver for every relayed message, until
	// ctx is canceled.
	Subscribe(ctx context.Context, deliver func(sessionID string, msg Message)) error
}

// ValkeyRelay is a Relay on a single Valkey pub/sub channel.
type ValkeyRelay struct {
	client  valkey.Client
	channel string
}

// NewValkeyRelay creates a relay publishing on channel.
func NewValkeyRelay(client valkey.Client, channel string) *ValkeyRelay {
	return &ValkeyRelay{client: client, channel: channel}
}

func (r *ValkeyRelay) Publish(ctx context.Context, sessionID string, msg Message) error {
	cmd := r.client.B().Publish().Channel(r.channel).Message(string(encodeRelay(sessionID, msg))).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("publish to %s: %w", r.channel, err)
	}
	return nil
}

func (r *ValkeyRelay) Subscribe(ctx context.Context, deliver func(sessionID string, msg Message)) error {
	cmd := r.client.B().Subscribe().Channel(r.channel).Build()
	return r.client.Receive(ctx, cmd, func(m valkey.PubSubMessage) {
		sessionID, msg, err := decodeRelay([]byte(m.Message))
		if err != nil {
			slog.Warn("realtime relay message dropped", slog.String("channel", m.Channel), slog.Any("error", err))
			return
		}
		deliver(sessionID, msg)
	})
}

// encodeRelay wraps a frame with its session id. The frame is embedded as is
// so the payload survives the hop unchanged.
func encodeRelay(sessionID string, msg Message) []byte {
	id, _ := json.Marshal(sessionID)
	buf := append([]byte(`{"session_id":`), id...)
	buf = append(buf, `,"frame":`...)
	buf = append(buf, msg.Frame()...)
	return append(buf, '}')
}

func decodeRelay(payload []byte) (string, Message, error) {
	var env struct {
		SessionID string          `json:"session_id"`
		Frame     json.RawMessage `json:"frame"`
	}
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", Message{}, err
	}
	if env.SessionID == "" {
		return "", Message{}, fmt.Errorf("relay message has no session id")
	}
	msg, err := ParseFrame(env.Frame)
	if err != nil {
		return "", Message{}, err
	}
	return env.SessionID, msg, nil
}
