package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RelayID is the sender id the relay uses for envelopes it originates.
const RelayID = "god"

var (
	ErrMalformedEnvelope = errors.New("malformed envelope")
	ErrMalformedPayload  = errors.New("malformed payload")
)

type Kind string

const (
	KindConnect        Kind = "connect"
	KindPing           Kind = "ping"
	KindPong           Kind = "pong"
	KindStatus         Kind = "status"
	KindPlaybackStatus Kind = "playbackStatus"
	KindSetRuler       Kind = "setRuler"
	KindSetLeader      Kind = "setLeader"
	KindPlay           Kind = "play"
	KindPause          Kind = "pause"
	KindSeek           Kind = "seek"
	KindSetMedia       Kind = "setMedia"
	KindDisconnect     Kind = "disconnect"
)

// Known reports whether k belongs to the closed set of message kinds.
func (k Kind) Known() bool {
	switch k {
	case KindConnect, KindPing, KindPong, KindStatus, KindPlaybackStatus,
		KindSetRuler, KindSetLeader, KindPlay, KindPause, KindSeek,
		KindSetMedia, KindDisconnect:
		return true
	}

	return false
}

// Envelope is the unit of wire communication. ID is the sender's participant id.
type Envelope struct {
	ID   string          `json:"id"`
	Type Kind            `json:"type"`
	Data json.RawMessage `json:"data"`
}

// New builds an envelope from sender id, kind and payload.
func New(senderID string, kind Kind, data any) (Envelope, error) {
	if data == nil {
		data = struct{}{}
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", kind, err)
	}

	return Envelope{
		ID:   senderID,
		Type: kind,
		Data: raw,
	}, nil
}

func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Parse reads the outer envelope without decoding the payload.
func Parse(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformedEnvelope, err)
	}

	if env.Type == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformedEnvelope)
	}

	return env, nil
}
