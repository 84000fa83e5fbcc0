package playback

import (
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVirtual(t *testing.T) (*Virtual, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	return NewVirtual(clock, slog.Default()), clock
}

func drain(v *Virtual) []Event {
	var events []Event
	for {
		select {
		case e := <-v.Events():
			events = append(events, e)
		default:
			return events
		}
	}
}

func TestVirtualAdvancesWhilePlaying(t *testing.T) {
	v, clock := newTestVirtual(t)
	require.NoError(t, v.SetSource("https://example.com/movie.mp4"))

	clock.Advance(time.Second)
	assert.Equal(t, 0, v.Position(), "paused device must not advance")

	v.Play()
	clock.Advance(2 * time.Second)
	assert.Equal(t, 2000, v.Position())

	v.Pause()
	clock.Advance(time.Second)
	assert.Equal(t, 2000, v.Position())
}

func TestVirtualRateIsAbsolute(t *testing.T) {
	v, clock := newTestVirtual(t)
	v.Play()

	v.SetRate(0.97)
	clock.Advance(10 * time.Second)
	assert.Equal(t, 9700, v.Position())

	v.SetRate(0.97)
	clock.Advance(10 * time.Second)
	assert.Equal(t, 19400, v.Position())
	assert.Equal(t, 0.97, v.State().Rate)

	v.SetRate(1)
	clock.Advance(time.Second)
	assert.Equal(t, 20400, v.Position())
}

func TestVirtualSeek(t *testing.T) {
	v, clock := newTestVirtual(t)
	v.Play()
	clock.Advance(time.Second)

	v.Seek(100000)
	assert.Equal(t, 100000, v.Position())

	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, 100200, v.Position())

	v.Seek(-5)
	assert.Equal(t, 0, v.Position())
}

func TestVirtualInvalidSourceKeepsState(t *testing.T) {
	v, _ := newTestVirtual(t)
	require.NoError(t, v.SetSource("https://example.com/a.mp4"))
	v.Seek(1500)
	drain(v)

	for _, url := range []string{"", "not a url", "example"} {
		err := v.SetSource(url)
		assert.ErrorIs(t, err, ErrInvalidSource, url)
	}

	state := v.State()
	assert.Equal(t, "https://example.com/a.mp4", state.SourceURL)
	assert.Equal(t, 1500, state.PositionMs)
	assert.Empty(t, drain(v), "rejected source must not emit")
}

func TestVirtualEmitsEvents(t *testing.T) {
	v, _ := newTestVirtual(t)

	require.NoError(t, v.SetSource("https://example.com/a.mp4"))
	v.Play()
	v.Seek(42)
	v.Pause()

	events := drain(v)
	require.Len(t, events, 4)
	assert.Equal(t, Event{Type: EventSource, URL: "https://example.com/a.mp4"}, events[0])
	assert.Equal(t, EventPlay, events[1].Type)
	assert.Equal(t, Event{Type: EventSeek, PositionMs: 42}, events[2])
	assert.Equal(t, Event{Type: EventPause, PositionMs: 42}, events[3])
}
