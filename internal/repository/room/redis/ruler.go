package redis

import (
	"context"

	"github.com/gotheater/lockstep/internal/repository/room"
)

func (r repo) SetRuler(ctx context.Context, params *room.SetRulerParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	key := r.getRulerKey(params.RoomId)
	r.hSetStruct(ctx, pipe, key, room.Ruler{
		RulerId: params.RulerId,
		Epoch:   params.Epoch,
	})
	pipe.Expire(ctx, key, r.roomExp)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

// GetRuler returns the room's ruler token. The epoch survives RemoveRuler.
func (r repo) GetRuler(ctx context.Context, roomId string) (room.Ruler, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	var ruler room.Ruler
	if err := r.rc.HGetAll(ctx, r.getRulerKey(roomId)).Scan(&ruler); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Ruler{}, err
	}

	if ruler.RulerId == "" {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrRulerNotFound)
		return ruler, room.ErrRulerNotFound
	}

	return ruler, nil
}

// RemoveRuler clears the ruler id and keeps the epoch so later transfers still order correctly.
func (r repo) RemoveRuler(ctx context.Context, roomId string) error {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	if err := r.rc.HDel(ctx, r.getRulerKey(roomId), "ruler_id").Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}
