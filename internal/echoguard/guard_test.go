package echoguard

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
)

func TestGuardWindow(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := New(clock, time.Second)

	assert.True(t, g.Open(), "never marked guard must be open")

	g.Mark()
	assert.False(t, g.Open())

	clock.Advance(time.Second)
	assert.False(t, g.Open(), "window boundary is still closed")

	clock.Advance(time.Millisecond)
	assert.True(t, g.Open())
}

func TestGuardTryMark(t *testing.T) {
	clock := clockwork.NewFakeClock()
	g := New(clock, time.Second)

	assert.True(t, g.TryMark())
	clock.Advance(500 * time.Millisecond)
	assert.False(t, g.TryMark())
	assert.Equal(t, 500*time.Millisecond, g.Elapsed(), "failed TryMark must not move the mark")

	clock.Advance(501 * time.Millisecond)
	assert.True(t, g.TryMark())
	assert.Zero(t, g.Elapsed())
}

func TestGuardDefaultWindow(t *testing.T) {
	g := New(clockwork.NewFakeClock(), 0)
	assert.Equal(t, DefaultWindow, g.Window())
}
