package drift

import (
	"log/slog"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotheater/lockstep/internal/echoguard"
	"github.com/gotheater/lockstep/internal/playback"
)

func TestDecide(t *testing.T) {
	tests := []struct {
		name   string
		in     Input
		action Action
		rate   float64
	}{
		{
			name:   "far behind with guard open seeks",
			in:     Input{RulerTimestampMs: 16000, LocalPositionMs: 10000, GuardOpen: true},
			action: ActionSeek,
			rate:   RateNormal,
		},
		{
			name:   "far behind with guard closed speeds up",
			in:     Input{RulerTimestampMs: 16000, LocalPositionMs: 10000},
			action: ActionSpeedUp,
			rate:   RateCatchUp,
		},
		{
			name:   "far ahead with guard closed slows down",
			in:     Input{RulerTimestampMs: 10000, LocalPositionMs: 16000},
			action: ActionSlowDown,
			rate:   RateSlowDown,
		},
		{
			name:   "behind by 50",
			in:     Input{RulerTimestampMs: 10050, LocalPositionMs: 10000, GuardOpen: true},
			action: ActionSpeedUp,
			rate:   RateCatchUp,
		},
		{
			name:   "ahead by 50",
			in:     Input{RulerTimestampMs: 10000, LocalPositionMs: 10050, GuardOpen: true},
			action: ActionSlowDown,
			rate:   RateSlowDown,
		},
		{
			name:   "within noise floor",
			in:     Input{RulerTimestampMs: 10000, LocalPositionMs: 10005, GuardOpen: true},
			action: ActionHold,
			rate:   RateNormal,
		},
		{
			name:   "noise floor is inclusive",
			in:     Input{RulerTimestampMs: 10000, LocalPositionMs: 9990},
			action: ActionHold,
			rate:   RateNormal,
		},
		{
			name:   "exactly hard seek threshold does not seek",
			in:     Input{RulerTimestampMs: 15000, LocalPositionMs: 10000, GuardOpen: true},
			action: ActionSpeedUp,
			rate:   RateCatchUp,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Decide(tt.in)
			assert.Equal(t, tt.action, d.Action)
			assert.Equal(t, tt.rate, d.Rate)
		})
	}
}

func TestDecideProjection(t *testing.T) {
	d := Decide(Input{
		RulerTimestampMs: 100000,
		RulerPingMs:      20,
		LocalRTTMs:       40,
		LocalPositionMs:  100200,
		GuardOpen:        true,
	})

	assert.Equal(t, 100040, d.Projected)
	assert.Equal(t, 160, d.Delta)
	assert.Equal(t, ActionSlowDown, d.Action)
	assert.Equal(t, RateSlowDown, d.Rate)
}

func TestDecideSeekTarget(t *testing.T) {
	d := Decide(Input{RulerTimestampMs: 60000, RulerPingMs: 30, LocalRTTMs: 20, GuardOpen: true})

	assert.Equal(t, ActionSeek, d.Action)
	assert.Equal(t, 60040, d.SeekTo)
}

func newTestCorrector(t *testing.T) (*Corrector, *playback.Virtual, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClock()
	player := playback.NewVirtual(clock, slog.Default())
	require.NoError(t, player.SetSource("https://example.com/movie.mp4"))
	player.Play()

	return NewCorrector(player, echoguard.New(clock, time.Second), slog.Default()), player, clock
}

func TestCorrectorSeekGuard(t *testing.T) {
	c, player, clock := newTestCorrector(t)

	d := c.Correct(60000, 0, 0)
	require.Equal(t, ActionSeek, d.Action)
	assert.Equal(t, 60000, player.Position())

	// a second far-off report inside the window must not seek again
	clock.Advance(500 * time.Millisecond)
	d = c.Correct(120000, 0, 0)
	assert.Equal(t, ActionSpeedUp, d.Action)
	assert.Equal(t, 60500, player.Position())

	clock.Advance(501 * time.Millisecond)
	d = c.Correct(120000, 0, 0)
	assert.Equal(t, ActionSeek, d.Action)
	assert.Equal(t, 120000, player.Position())
}

func TestCorrectorRatesDoNotCompound(t *testing.T) {
	c, player, _ := newTestCorrector(t)
	player.Seek(10050)

	c.Correct(10000, 0, 0)
	c.Correct(10000, 0, 0)
	assert.Equal(t, RateSlowDown, player.State().Rate)

	c.Correct(10050, 0, 0)
	assert.Equal(t, RateNormal, player.State().Rate)
}

func TestCorrectorRoundTrip(t *testing.T) {
	c, player, _ := newTestCorrector(t)
	player.Seek(100200)

	d := c.Correct(100000, 20, 40)
	assert.Equal(t, RateSlowDown, d.Rate)
	assert.Equal(t, RateSlowDown, player.State().Rate)
	assert.Equal(t, 100200, player.Position(), "no seek for small drift")
}
