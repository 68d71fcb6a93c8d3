package chat

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Event names. Collaborator events are opaque to the gateway; they are listed
// here so callers share the spelling.
const (
	EventConnected        = "connected"
	EventPing             = "ping"
	EventPong             = "pong"
	EventMessageNew       = "message:new"
	EventConversationRead = "conversation:read"
)

// Envelope is the JSON frame exchanged in both directions: {"event":..,"data":..}.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type ConnectedData struct {
	UserID string `json:"userId"`
}

var errEmptyEvent = errors.New("frame without event")

var pongFrame = mustFrame(Envelope{Event: EventPong})

func ParseFrame(raw []byte) (*Envelope, error) {
	f := &Envelope{}
	if err := json.Unmarshal(raw, f); err != nil {
		return nil, fmt.Errorf("unmarshal frame failed: %w", err)
	}
	if f.Event == "" {
		return nil, errEmptyEvent
	}
	return f, nil
}

// EncodeFrame serializes {event, data: payload}. A nil payload is sent as null.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal payload for %q: %w", event, err)
	}
	out, err := json.Marshal(Envelope{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("marshal frame %q: %w", event, err)
	}
	return out, nil
}

func ConnectedFrame(userID string) ([]byte, error) {
	return EncodeFrame(EventConnected, ConnectedData{UserID: userID})
}

// PongFrame is {"event":"pong"}.
func PongFrame() []byte { return pongFrame }

func mustFrame(e Envelope) []byte {
	b, err := json.Marshal(e)
	if err != nil {
		panic(err)
	}
	return b
}
