package event

import (
	"encoding/json"
	"fmt"
)

// Frame type tags on the websocket wire.
const (
	TypeNewMessage       = "new-message"
	TypeTranslationReady = "translation-ready"
	TypePresenceSnapshot = "presence-snapshot"
)

// Frame is the JSON envelope carrying one event over a connection.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode wraps an event into its wire frame.
func Encode(e DomainEvent) (Frame, error) {
	var t string
	switch e.(type) {
	case NewMessage:
		t = TypeNewMessage
	case TranslationReady:
		t = TypeTranslationReady
	case PresenceSnapshot:
		t = TypePresenceSnapshot
	default:
		return Frame{}, fmt.Errorf("unencodable event %T", e)
	}
	payload, err := json.Marshal(e)
	if err != nil {
		return Frame{}, err
	}
	return Frame{Type: t, Payload: payload}, nil
}

// Decode unwraps a wire frame into its event. Unknown frame types are
// an error so protocol drift surfaces at the consumer instead of being
// silently dropped.
func Decode(f Frame) (DomainEvent, error) {
	switch f.Type {
	case TypeNewMessage:
		var e NewMessage
		if err := json.Unmarshal(f.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case TypeTranslationReady:
		var e TranslationReady
		if err := json.Unmarshal(f.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	case TypePresenceSnapshot:
		var e PresenceSnapshot
		if err := json.Unmarshal(f.Payload, &e); err != nil {
			return nil, err
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown frame type %q", f.Type)
	}
}
