package protocol

import (
	"encoding/json"
	"fmt"
)

// Message is a decoded envelope. The set of implementations is closed; anything the
// decoder does not recognise becomes *Unknown.
type Message interface {
	Sender() string
	Kind() Kind
	sealed()
}

type header struct {
	from string
	kind Kind
}

func (h header) Sender() string { return h.from }
func (h header) Kind() Kind      { return h.kind }
func (header) sealed()           {}

type (
	Connect struct {
		header
		Data ConnectData
	}
	Ping struct {
		header
		Data PingData
	}
	Pong struct {
		header
		Data PongData
	}
	Status struct {
		header
		Data StatusData
	}
	PlaybackStatus struct {
		header
		Data PlaybackStatusData
	}
	// SetRuler covers both setRuler and setLeader.
	SetRuler struct {
		header
		Data SetRulerData
	}
	Play struct {
		header
	}
	Pause struct {
		header
	}
	Seek struct {
		header
		Data SeekData
	}
	SetMedia struct {
		header
		Data SetMediaData
	}
	Disconnect struct {
		header
		Data DisconnectData
	}
	Unknown struct {
		header
		Data json.RawMessage
	}
)

// Decode parses raw bytes into a typed Message.
func Decode(raw []byte) (Message, error) {
	env, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	return DecodeEnvelope(env)
}

func DecodeEnvelope(env Envelope) (Message, error) {
	h := header{from: env.ID, kind: env.Type}

	var (
		msg  Message
		data any
	)
	switch env.Type {
	case KindConnect:
		m := &Connect{header: h}
		msg, data = m, &m.Data
	case KindPing:
		m := &Ping{header: h}
		msg, data = m, &m.Data
	case KindPong:
		m := &Pong{header: h}
		msg, data = m, &m.Data
	case KindStatus:
		m := &Status{header: h}
		msg, data = m, &m.Data
	case KindPlaybackStatus:
		m := &PlaybackStatus{header: h}
		msg, data = m, &m.Data
	case KindSetRuler, KindSetLeader:
		m := &SetRuler{header: h}
		msg, data = m, &m.Data
	case KindPlay:
		msg = &Play{header: h}
	case KindPause:
		msg = &Pause{header: h}
	case KindSeek:
		m := &Seek{header: h}
		msg, data = m, &m.Data
	case KindSetMedia:
		m := &SetMedia{header: h}
		msg, data = m, &m.Data
	case KindDisconnect:
		m := &Disconnect{header: h}
		msg, data = m, &m.Data
	default:
		return &Unknown{header: h, Data: env.Data}, nil
	}

	if data != nil {
		if err := unmarshalData(env, data); err != nil {
			return nil, err
		}
	}

	return msg, nil
}

func unmarshalData(env Envelope, v any) error {
	if len(env.Data) == 0 {
		return nil
	}

	if err := json.Unmarshal(env.Data, v); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrMalformedPayload, env.Type, err)
	}

	return nil
}
