package session

import (
	"context"
	"fmt"

	"github.com/gotheater/lockstep/internal/protocol"
)

// do runs op on the event loop and waits for it to finish.
func (c *Client) do(ctx context.Context, op func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		op()
	}

	select {
	case c.ops <- wrapped:
	case <-c.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) Play(ctx context.Context) error {
	return c.do(ctx, c.adapter.Play)
}

func (c *Client) Pause(ctx context.Context) error {
	return c.do(ctx, c.adapter.Pause)
}

func (c *Client) Seek(ctx context.Context, positionMs int) error {
	return c.do(ctx, func() { c.adapter.Seek(positionMs) })
}

func (c *Client) SetMedia(ctx context.Context, url string) error {
	var err error
	if doErr := c.do(ctx, func() { err = c.adapter.SetSource(url) }); doErr != nil {
		return doErr
	}

	if err != nil {
		return fmt.Errorf("failed to set media: %w", err)
	}

	return nil
}

// TransferRuler hands rulership to target and announces it to the room.
func (c *Client) TransferRuler(ctx context.Context, target string) error {
	if target == "" {
		return ErrEmptyTarget
	}

	return c.do(ctx, func() {
		wasRuler := c.isRuler()
		token := c.coordinator.Transfer(target)
		c.onRulerChange(ctx, wasRuler)
		c.send(ctx, protocol.KindSetRuler, protocol.SetRulerData{NewRulerID: token.RulerID, Epoch: token.Epoch})
		c.logger.InfoContext(ctx, "ruler transferred", "ruler_id", token.RulerID, "epoch", token.Epoch)
	})
}

func (c *Client) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	err := c.do(ctx, func() {
		snap = Snapshot{
			State:        c.state(),
			IsRuler:      c.isRuler(),
			Participants: c.registry.List(),
			Playback:     c.adapter.State(),
		}
	})

	return snap, err
}
