package redis

import (
	"context"

	"github.com/gotheater/lockstep/internal/repository/room"
)

func (r repo) SetMedia(ctx context.Context, params *room.SetMediaParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	key := r.getMediaKey(params.RoomId)
	r.hSetStruct(ctx, pipe, key, room.Media{
		URL:       params.URL,
		Paused:    params.Paused,
		Timestamp: params.Timestamp,
		UpdatedAt: params.UpdatedAt,
	})
	pipe.Expire(ctx, key, r.roomExp)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetMedia(ctx context.Context, roomId string) (room.Media, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	res := r.rc.HGetAll(ctx, r.getMediaKey(roomId))
	if err := res.Err(); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Media{}, err
	}

	if len(res.Val()) == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrMediaNotFound)
		return room.Media{}, room.ErrMediaNotFound
	}

	var media room.Media
	if err := res.Scan(&media); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Media{}, err
	}

	return media, nil
}
