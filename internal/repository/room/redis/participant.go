package redis

import (
	"context"

	"github.com/gotheater/lockstep/internal/repository/room"
)

func (r repo) AddParticipant(ctx context.Context, params *room.AddParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	participantKey := r.getParticipantKey(params.ParticipantId)
	r.hSetStruct(ctx, pipe, participantKey, room.Participant{
		RoomId:              params.RoomId,
		Name:                params.Name,
		CurrentPlaybackRate: 1,
	})
	pipe.Expire(ctx, participantKey, r.roomExp)

	listKey := r.getParticipantListKey(params.RoomId)
	r.addWithIncrement(ctx, pipe, listKey, params.ParticipantId)
	pipe.Expire(ctx, listKey, r.roomExp)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) RemoveParticipant(ctx context.Context, params *room.RemoveParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	pipe := r.rc.TxPipeline()

	zrem := pipe.ZRem(ctx, r.getParticipantListKey(params.RoomId), params.ParticipantId)
	pipe.Del(ctx, r.getParticipantKey(params.ParticipantId))

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	if zrem.Val() == 0 {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.ErrParticipantNotFound
	}

	return nil
}

func (r repo) UpdateParticipant(ctx context.Context, params *room.UpdateParticipantParams) error {
	r.logger.DebugContext(ctx, "called", "params", params)
	key := r.getParticipantKey(params.ParticipantId)

	roomId, err := r.rc.HGet(ctx, key, "room_id").Result()
	if err != nil || roomId != params.RoomId {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.ErrParticipantNotFound
	}

	pipe := r.rc.TxPipeline()
	r.hSetStruct(ctx, pipe, key, room.Participant{
		RoomId:                params.RoomId,
		Name:                  params.Name,
		Playing:               params.Playing,
		CurrentMediaURL:       params.CurrentMediaURL,
		CurrentMediaTimestamp: params.CurrentMediaTimestamp,
		CurrentPing:           params.CurrentPing,
		CurrentPlaybackRate:   params.CurrentPlaybackRate,
	})
	pipe.Expire(ctx, key, r.roomExp)

	if err := r.executePipe(ctx, pipe); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return err
	}

	return nil
}

func (r repo) GetParticipant(ctx context.Context, participantId string) (room.Participant, error) {
	r.logger.DebugContext(ctx, "called", "participant_id", participantId)
	var participant room.Participant
	if err := r.rc.HGetAll(ctx, r.getParticipantKey(participantId)).Scan(&participant); err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return room.Participant{}, err
	}

	if participant.RoomId == "" {
		r.logger.DebugContext(ctx, "returned", "error", room.ErrParticipantNotFound)
		return room.Participant{}, room.ErrParticipantNotFound
	}

	return participant, nil
}

// GetParticipantIds returns the ids of a room ordered by join time.
func (r repo) GetParticipantIds(ctx context.Context, roomId string) ([]string, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	ids, err := r.rc.ZRange(ctx, r.getParticipantListKey(roomId), 0, -1).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return nil, err
	}

	return ids, nil
}

func (r repo) GetParticipantsCount(ctx context.Context, roomId string) (int, error) {
	r.logger.DebugContext(ctx, "called", "room_id", roomId)
	count, err := r.rc.ZCard(ctx, r.getParticipantListKey(roomId)).Result()
	if err != nil {
		r.logger.DebugContext(ctx, "returned", "error", err)
		return 0, err
	}

	return int(count), nil
}
