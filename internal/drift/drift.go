package drift

import (
	"log/slog"

	"github.com/gotheater/lockstep/internal/echoguard"
	"github.com/gotheater/lockstep/internal/playback"
)

const (
	NoiseFloorMs = 10
	HardSeekMs   = 5000

	RateNormal   = 1.0
	RateCatchUp  = 1.03
	RateSlowDown = 0.97
)

type Action int

const (
	ActionHold Action = iota
	ActionSeek
	ActionSpeedUp
	ActionSlowDown
)

func (a Action) String() string {
	switch a {
	case ActionHold:
		return "hold"
	case ActionSeek:
		return "seek"
	case ActionSpeedUp:
		return "speed_up"
	case ActionSlowDown:
		return "slow_down"
	}

	return "unknown"
}

type Input struct {
	RulerTimestampMs int
	RulerPingMs      int
	LocalRTTMs       int
	LocalPositionMs  int
	// GuardOpen is true when no seek happened within the guard window.
	GuardOpen bool
}

type Decision struct {
	Action    Action
	Rate      float64
	SeekTo    int
	Projected int
	// Delta is local minus projected; negative means the local device is behind.
	Delta int
}

// Decide computes the correction for one ruler status report.
func Decide(in Input) Decision {
	projected := in.RulerTimestampMs + in.RulerPingMs + in.LocalRTTMs/2
	delta := in.LocalPositionMs - projected

	d := Decision{Projected: projected, Delta: delta}

	switch {
	case abs(delta) <= NoiseFloorMs:
		d.Action, d.Rate = ActionHold, RateNormal
	case abs(delta) > HardSeekMs && in.GuardOpen:
		d.Action, d.Rate, d.SeekTo = ActionSeek, RateNormal, projected
	case delta < 0:
		d.Action, d.Rate = ActionSpeedUp, RateCatchUp
	default:
		d.Action, d.Rate = ActionSlowDown, RateSlowDown
	}

	return d
}

// Corrector applies Decide to a playback device, gating seeks through the guard.
type Corrector struct {
	adapter playback.Adapter
	guard   *echoguard.Guard
	logger  *slog.Logger
}

func NewCorrector(adapter playback.Adapter, guard *echoguard.Guard, logger *slog.Logger) *Corrector {
	return &Corrector{adapter: adapter, guard: guard, logger: logger}
}

func (c *Corrector) Correct(rulerTimestampMs, rulerPingMs, localRTTMs int) Decision {
	d := Decide(Input{
		RulerTimestampMs: rulerTimestampMs,
		RulerPingMs:      rulerPingMs,
		LocalRTTMs:       localRTTMs,
		LocalPositionMs:  c.adapter.Position(),
		GuardOpen:        c.guard.Open(),
	})

	if d.Action == ActionSeek {
		c.guard.Mark()
		c.adapter.Seek(d.SeekTo)
	}
	c.adapter.SetRate(d.Rate)

	c.logger.Debug("drift corrected",
		"action", d.Action.String(),
		"delta_ms", d.Delta,
		"projected_ms", d.Projected,
		"rate", d.Rate,
	)

	return d
}

func abs(n int) int {
	if n < 0 {
		return -n
	}

	return n
}
