package heartbeat

import (
	"errors"
	"fmt"
	"time"
)

var ErrFutureTimestamp = errors.New("pong echoes a timestamp from the future")

// Estimator keeps the latest round-trip time. Every accepted pong overwrites the previous value.
type Estimator struct {
	rtt int
}

// Ping returns the timestamp to send, in unix milliseconds.
func (e *Estimator) Ping(now time.Time) int64 {
	return now.UnixMilli()
}

// Pong records the round trip for an echoed ping timestamp and returns the new rtt in ms.
func (e *Estimator) Pong(now time.Time, echoed int64) (int, error) {
	rtt := now.UnixMilli() - echoed
	if rtt < 0 {
		return e.rtt, fmt.Errorf("%w: %d ms ahead", ErrFutureTimestamp, -rtt)
	}

	e.rtt = int(rtt)
	return e.rtt, nil
}

func (e *Estimator) RTT() int {
	return e.rtt
}

// OneWay is the estimated one-way latency.
func (e *Estimator) OneWay() int {
	return e.rtt / 2
}
