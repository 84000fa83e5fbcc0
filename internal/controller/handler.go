package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gotheater/lockstep/internal/protocol"
	"github.com/gotheater/lockstep/internal/service/room"
	"github.com/gotheater/lockstep/pkg/ctxlogger"
)

const roomIdRules = "required,max=64,printascii,excludesall=/?#"

func (c controller) joinRoom(w http.ResponseWriter, r *http.Request) {
	roomId := chi.URLParam(r, "room-id")
	if err := c.validate.Var(roomId, roomIdRules); err != nil {
		c.logger.DebugContext(r.Context(), "invalid room id", "error", err)
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	if err := c.roomService.CheckCapacity(r.Context(), roomId); err != nil {
		if errors.Is(err, room.ErrRoomFull) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		c.logger.WarnContext(r.Context(), "failed to check room capacity", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}
	defer conn.Close()

	connectResp, err := c.roomService.ConnectParticipant(r.Context(), &room.ConnectParticipantParams{
		Conn:   conn,
		RoomId: roomId,
	})
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to connect participant", "error", err)
		return
	}
	participantId := connectResp.ParticipantId

	ctx := ctxlogger.AppendCtx(r.Context(),
		slog.String("room_id", roomId),
		slog.String("participant_id", participantId),
	)
	defer c.disconnect(ctx, participantId, roomId)

	env, err := protocol.New(protocol.RelayID, protocol.KindConnect, connectResp.Connect)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to build connect envelope", "error", err)
		return
	}

	if err := c.roomService.SendTo(ctx, participantId, env); err != nil {
		c.logger.WarnContext(ctx, "failed to send connect", "error", err)
		return
	}
	c.logger.InfoContext(ctx, "participant connected", "ruler_id", connectResp.Connect.CurrentRulerID)

	ctx = context.WithValue(ctx, roomIdCtxKey, roomId)
	ctx = context.WithValue(ctx, participantIdCtxKey, participantId)

	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(ctx, "connection closed", "error", err)
	}
}

// disconnect removes the participant and tells the room, including any ruler promotion.
func (c controller) disconnect(ctx context.Context, participantId, roomId string) {
	resp, err := c.roomService.DisconnectParticipant(ctx, &room.DisconnectParticipantParams{
		ParticipantId: participantId,
		RoomId:        roomId,
	})
	if err != nil {
		c.logger.WarnContext(ctx, "failed to disconnect participant", "error", err)
		return
	}

	env, err := protocol.New(protocol.RelayID, protocol.KindDisconnect, protocol.DisconnectData{ID: participantId})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to build disconnect envelope", "error", err)
		return
	}

	if err := c.roomService.Broadcast(ctx, roomId, "", env); err != nil {
		c.logger.WarnContext(ctx, "failed to broadcast disconnect", "error", err)
	}

	if resp.NewRuler == nil {
		return
	}

	env, err = protocol.New(protocol.RelayID, protocol.KindSetRuler, protocol.SetRulerData{
		NewRulerID: resp.NewRuler.RulerID,
		Epoch:      resp.NewRuler.Epoch,
	})
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to build ruler envelope", "error", err)
		return
	}

	if err := c.roomService.Broadcast(ctx, roomId, "", env); err != nil {
		c.logger.WarnContext(ctx, "failed to broadcast ruler", "error", err)
	}
	c.logger.InfoContext(ctx, "ruler promoted", "ruler_id", resp.NewRuler.RulerID, "epoch", resp.NewRuler.Epoch)
}
