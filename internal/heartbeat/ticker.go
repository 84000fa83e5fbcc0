package heartbeat

import (
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	MinInterval     = 1000 * time.Millisecond
	MaxInterval     = 1500 * time.Millisecond
	DefaultInterval = MaxInterval
)

var ErrInterval = errors.New("heartbeat interval out of range")

func ValidateInterval(d time.Duration) error {
	if d < MinInterval || d > MaxInterval {
		return fmt.Errorf("%w: %s not in [%s, %s]", ErrInterval, d, MinInterval, MaxInterval)
	}

	return nil
}

// Ticker is a cancellable self-rescheduling timer. It is not safe for concurrent use;
// the owner calls Reschedule after consuming each tick.
type Ticker struct {
	clock    clockwork.Clock
	interval time.Duration
	timer    clockwork.Timer
}

func NewTicker(clock clockwork.Clock, interval time.Duration) *Ticker {
	return &Ticker{clock: clock, interval: interval}
}

// Start arms the first tick. It restarts the ticker if already running.
func (t *Ticker) Start() {
	t.Stop()
	t.timer = t.clock.NewTimer(t.interval)
}

// Reschedule arms the next tick. No-op when stopped.
func (t *Ticker) Reschedule() {
	if t.timer == nil {
		return
	}

	stopAndDrainTimer(t.timer)
	t.timer.Reset(t.interval)
}

// Stop cancels the pending tick. Safe to call any number of times.
func (t *Ticker) Stop() {
	if t.timer == nil {
		return
	}

	stopAndDrainTimer(t.timer)
	t.timer = nil
}

// C returns the tick channel, or nil when stopped so a select never fires on it.
func (t *Ticker) C() <-chan time.Time {
	if t.timer == nil {
		return nil
	}

	return t.timer.Chan()
}

func (t *Ticker) Active() bool {
	return t.timer != nil
}

func (t *Ticker) Interval() time.Duration {
	return t.interval
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
