package broker

import (
	"encoding/json"
	"errors"
)

// Message is an event sent to realtime clients.
type Message struct {
	Event string
	Data  json.RawMessage
}

// Frame encodes m as {"event":<name>,"data":<data>}. Data is copied as is,
// without re-encoding, so the payload reaches clients byte for byte. The
// data member is omitted when there is no payload.
func (m Message) Frame() []byte {
	event, _ := json.Marshal(m.Event)

	buf := make([]byte, 0, len(event)+len(m.Data)+len(`{"event":,"data":}`))
	buf = append(buf, `{"event":`...)
	buf = append(buf, event...)
	if len(m.Data) > 0 {
		buf = append(buf, `,"data":`...)
		buf = append(buf, m.Data...)
	}
	return append(buf, '}')
}

// ParseFrame decodes a frame produced by Frame, keeping data verbatim.
func ParseFrame(frame []byte) (Message, error) {
	var raw struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(frame, &raw); err != nil {
		return Message{}, err
	}
	if raw.Event == "" {
		return Message{}, errors.New("frame has no event")
	}
	return Message{Event: raw.Event, Data: raw.Data}, nil
}
