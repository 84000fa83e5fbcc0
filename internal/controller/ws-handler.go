package controller

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"

	"github.com/gotheater/lockstep/internal/protocol"
	"github.com/gotheater/lockstep/internal/service/room"
	"github.com/gotheater/lockstep/pkg/wsrouter"
)

func (c controller) handlePing(ctx context.Context, _ *websocket.Conn, input protocol.PingData) error {
	participantId := c.getParticipantIdFromCtx(ctx)

	env, err := protocol.New(protocol.RelayID, protocol.KindPong, c.roomService.Pong(input))
	if err != nil {
		return err
	}

	if err := c.roomService.SendTo(ctx, participantId, env); err != nil {
		return fmt.Errorf("failed to send pong: %w", err)
	}

	return nil
}

func (c controller) handleStatus(ctx context.Context, _ *websocket.Conn, input protocol.StatusData) error {
	roomId := c.getRoomIdFromCtx(ctx)
	participantId := c.getParticipantIdFromCtx(ctx)

	if err := c.roomService.UpdateStatus(ctx, &room.UpdateStatusParams{
		ParticipantId: participantId,
		RoomId:        roomId,
		Status:        input,
	}); err != nil {
		return fmt.Errorf("failed to update status: %w", err)
	}

	return c.relay(ctx)
}

func (c controller) handleSetRuler(ctx context.Context, _ *websocket.Conn, input protocol.SetRulerData) error {
	roomId := c.getRoomIdFromCtx(ctx)
	participantId := c.getParticipantIdFromCtx(ctx)

	if err := c.validate.Var(input.NewRulerID, "required"); err != nil {
		return fmt.Errorf("invalid ruler transfer: %w", err)
	}

	resp, err := c.roomService.UpdateRuler(ctx, &room.UpdateRulerParams{
		SenderId:   participantId,
		RoomId:     roomId,
		NewRulerId: input.NewRulerID,
		Epoch:      input.Epoch,
	})
	if err != nil {
		return fmt.Errorf("failed to update ruler: %w", err)
	}

	data := protocol.SetRulerData{NewRulerID: resp.Token.RulerID, Epoch: resp.Token.Epoch}

	if !resp.Applied {
		// the sender already applied its transfer locally, correct it
		env, err := protocol.New(protocol.RelayID, protocol.KindSetRuler, data)
		if err != nil {
			return err
		}

		return c.roomService.SendTo(ctx, participantId, env)
	}

	env, err := protocol.New(participantId, protocol.Kind(wsrouter.GetMessageTypeFromCtx(ctx)), data)
	if err != nil {
		return err
	}

	if err := c.roomService.Broadcast(ctx, roomId, participantId, env); err != nil {
		return fmt.Errorf("failed to broadcast ruler: %w", err)
	}

	return nil
}

func (c controller) handleCommand(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	roomId := c.getRoomIdFromCtx(ctx)
	participantId := c.getParticipantIdFromCtx(ctx)

	msg, err := protocol.Decode(wsrouter.GetRawMessageFromCtx(ctx))
	if err != nil {
		return err
	}

	if _, err := c.roomService.ApplyCommand(ctx, &room.ApplyCommandParams{
		SenderId: participantId,
		RoomId:   roomId,
		Message:  msg,
	}); err != nil {
		return fmt.Errorf("failed to apply command: %w", err)
	}

	return c.relay(ctx)
}

func (c controller) handleUnknown(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	return c.relay(ctx)
}

// relay forwards the frame being handled to the rest of the room, stamped with the sender's id.
func (c controller) relay(ctx context.Context) error {
	env, err := protocol.Parse(wsrouter.GetRawMessageFromCtx(ctx))
	if err != nil {
		return err
	}
	env.ID = c.getParticipantIdFromCtx(ctx)

	if err := c.roomService.Broadcast(ctx, c.getRoomIdFromCtx(ctx), env.ID, env); err != nil {
		return fmt.Errorf("failed to relay %s: %w", env.Type, err)
	}

	return nil
}

func (c controller) handleWSError(ctx context.Context, _ *websocket.Conn, err error) {
	if errors.Is(err, wsrouter.ErrMalformedMessage) || errors.Is(err, protocol.ErrMalformedEnvelope) ||
		errors.Is(err, protocol.ErrMalformedPayload) {
		c.logger.InfoContext(ctx, "dropped malformed message", "error", err)
		return
	}

	c.logger.WarnContext(ctx, "failed to handle websocket message", "error", err)
}
