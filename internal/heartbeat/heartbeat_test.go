package heartbeat

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEstimatorPong(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	var e Estimator

	sent := e.Ping(clock.Now())
	clock.Advance(40 * time.Millisecond)

	rtt, err := e.Pong(clock.Now(), sent)
	require.NoError(t, err)
	assert.Equal(t, 40, rtt)
	assert.Equal(t, 20, e.OneWay())

	sent = e.Ping(clock.Now())
	clock.Advance(100 * time.Millisecond)
	rtt, err = e.Pong(clock.Now(), sent)
	require.NoError(t, err)
	assert.Equal(t, 100, rtt, "no smoothing")
}

func TestEstimatorRejectsFuturePong(t *testing.T) {
	clock := clockwork.NewFakeClockAt(time.UnixMilli(1_700_000_000_000))
	var e Estimator

	_, err := e.Pong(clock.Now(), e.Ping(clock.Now().Add(-30*time.Millisecond)))
	require.NoError(t, err)

	rtt, err := e.Pong(clock.Now(), clock.Now().Add(time.Second).UnixMilli())
	assert.ErrorIs(t, err, ErrFutureTimestamp)
	assert.Equal(t, 30, rtt)
	assert.Equal(t, 30, e.RTT())
	assert.GreaterOrEqual(t, e.RTT(), 0)
}

func TestValidateInterval(t *testing.T) {
	assert.NoError(t, ValidateInterval(DefaultInterval))
	assert.NoError(t, ValidateInterval(MinInterval))
	assert.ErrorIs(t, ValidateInterval(999*time.Millisecond), ErrInterval)
	assert.ErrorIs(t, ValidateInterval(2*time.Second), ErrInterval)
}

func TestTickerFiresAndReschedules(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ticker := NewTicker(clock, 1500*time.Millisecond)
	ticker.Start()

	clock.Advance(1499 * time.Millisecond)
	assertNoTick(t, ticker)

	clock.Advance(time.Millisecond)
	assertTick(t, ticker)

	ticker.Reschedule()
	clock.Advance(1500 * time.Millisecond)
	assertTick(t, ticker)
}

func TestTickerNeverFiresAfterStop(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ticker := NewTicker(clock, time.Second)
	ticker.Start()

	clock.Advance(time.Second)
	ticker.Stop()
	ticker.Stop()
	assert.False(t, ticker.Active())
	assert.Nil(t, ticker.C())

	ticker.Reschedule()
	assert.False(t, ticker.Active(), "reschedule must not revive a stopped ticker")

	clock.Advance(time.Hour)
	assert.Nil(t, ticker.C())
}

func assertTick(t *testing.T, ticker *Ticker) {
	t.Helper()

	select {
	case <-ticker.C():
	case <-time.After(time.Second):
		t.Fatal("expected tick")
	}
}

func assertNoTick(t *testing.T, ticker *Ticker) {
	t.Helper()

	select {
	case <-ticker.C():
		t.Fatal("unexpected tick")
	default:
	}
}
