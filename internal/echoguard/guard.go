package echoguard

import (
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const DefaultWindow = time.Second

// Guard remembers when an action was last performed and reports whether its window has passed.
type Guard struct {
	mu     sync.Mutex
	clock  clockwork.Clock
	window time.Duration
	last   time.Time
}

func New(clock clockwork.Clock, window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultWindow
	}

	return &Guard{clock: clock, window: window}
}

// Open reports whether strictly more than the window has elapsed since the last Mark.
func (g *Guard) Open() bool {
	return g.Elapsed() > g.window
}

func (g *Guard) Mark() {
	g.mu.Lock()
	g.last = g.clock.Now()
	g.mu.Unlock()
}

// TryMark marks the guard and returns true only if it was open.
func (g *Guard) TryMark() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.last.IsZero() && g.clock.Since(g.last) <= g.window {
		return false
	}

	g.last = g.clock.Now()
	return true
}

// Elapsed is the time since the last Mark, or the maximum duration if never marked.
func (g *Guard) Elapsed() time.Duration {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.last.IsZero() {
		return time.Duration(math.MaxInt64)
	}

	return g.clock.Since(g.last)
}

func (g *Guard) Window() time.Duration {
	return g.window
}
