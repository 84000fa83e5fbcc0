package playback

import "errors"

var ErrInvalidSource = errors.New("invalid media source")

type EventType string

const (
	EventPlay   EventType = "play"
	EventPause  EventType = "pause"
	EventSeek   EventType = "seek"
	EventSource EventType = "source"
)

// Event is emitted by a device whenever its state changes, whoever caused the change.
type Event struct {
	Type       EventType
	PositionMs int
	URL        string
}

type State struct {
	SourceURL  string
	Playing    bool
	PositionMs int
	Rate       float64
}

// Adapter is the local playback device.
type Adapter interface {
	Play()
	Pause()
	Seek(positionMs int)
	SetRate(rate float64)
	SetSource(url string) error
	Position() int
	State() State
	Events() <-chan Event
}
