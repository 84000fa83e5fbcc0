package playback

import (
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gotheater/lockstep/pkg/validator"
)

const eventsBuffer = 64

// Virtual is a headless device whose position advances with the clock at the current rate.
type Virtual struct {
	mu       sync.Mutex
	clock    clockwork.Clock
	validate *validator.Validator
	logger   *slog.Logger
	events   chan Event

	source  string
	playing bool
	rate    float64
	// position at anchor, advanced by elapsed*rate while playing
	basePos int
	anchor  time.Time
}

func NewVirtual(clock clockwork.Clock, logger *slog.Logger) *Virtual {
	return &Virtual{
		clock:    clock,
		validate: validator.NewValidator(),
		logger:   logger,
		events:   make(chan Event, eventsBuffer),
		rate:     1,
		anchor:   clock.Now(),
	}
}

func (v *Virtual) Play() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rebase()
	v.playing = true
	v.emit(Event{Type: EventPlay, PositionMs: v.basePos})
}

func (v *Virtual) Pause() {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rebase()
	v.playing = false
	v.emit(Event{Type: EventPause, PositionMs: v.basePos})
}

func (v *Virtual) Seek(positionMs int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if positionMs < 0 {
		positionMs = 0
	}

	v.basePos = positionMs
	v.anchor = v.clock.Now()
	v.emit(Event{Type: EventSeek, PositionMs: positionMs})
}

func (v *Virtual) SetRate(rate float64) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.rebase()
	v.rate = rate
}

// SetSource loads url at position zero, paused. An invalid url leaves the device untouched.
func (v *Virtual) SetSource(url string) error {
	if err := v.validate.Var(url, "required,url"); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidSource, url)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.source = url
	v.playing = false
	v.basePos = 0
	v.anchor = v.clock.Now()
	v.emit(Event{Type: EventSource, URL: url})

	return nil
}

func (v *Virtual) Position() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.position()
}

func (v *Virtual) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()

	return State{
		SourceURL:  v.source,
		Playing:    v.playing,
		PositionMs: v.position(),
		Rate:       v.rate,
	}
}

func (v *Virtual) Events() <-chan Event {
	return v.events
}

func (v *Virtual) position() int {
	if !v.playing {
		return v.basePos
	}

	elapsed := v.clock.Since(v.anchor)
	return v.basePos + int(math.Round(float64(elapsed.Milliseconds())*v.rate))
}

func (v *Virtual) rebase() {
	v.basePos = v.position()
	v.anchor = v.clock.Now()
}

func (v *Virtual) emit(e Event) {
	select {
	case v.events <- e:
	default:
		v.logger.Warn("playback event dropped", "type", e.Type)
	}
}
