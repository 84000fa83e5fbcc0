package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotheater/lockstep/internal/repository/room"
)

func (s *service) getParticipants(ctx context.Context, roomId string) ([]Participant, error) {
	ids, err := s.roomRepo.GetParticipantIds(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get participant ids: %w", err)
	}

	participants := make([]Participant, 0, len(ids))
	for _, id := range ids {
		p, err := s.roomRepo.GetParticipant(ctx, id)
		if err != nil {
			if errors.Is(err, room.ErrParticipantNotFound) {
				s.logger.WarnContext(ctx, "participant listed but missing", "participant_id", id)
				continue
			}
			return nil, fmt.Errorf("failed to get participant: %w", err)
		}

		participants = append(participants, Participant{
			Id:                    id,
			Name:                  p.Name,
			Playing:               p.Playing,
			CurrentMediaURL:       p.CurrentMediaURL,
			CurrentMediaTimestamp: p.CurrentMediaTimestamp,
			CurrentPing:           p.CurrentPing,
			CurrentPlaybackRate:   p.CurrentPlaybackRate,
		})
	}

	return participants, nil
}

// getRuler returns the stored token; a room without ruler yields an empty id and the last epoch.
func (s *service) getRuler(ctx context.Context, roomId string) (room.Ruler, error) {
	ruler, err := s.roomRepo.GetRuler(ctx, roomId)
	if err != nil && !errors.Is(err, room.ErrRulerNotFound) {
		return room.Ruler{}, fmt.Errorf("failed to get ruler: %w", err)
	}

	return ruler, nil
}

func (s *service) getMedia(ctx context.Context, roomId string) (room.Media, error) {
	media, err := s.roomRepo.GetMedia(ctx, roomId)
	if err != nil {
		if errors.Is(err, room.ErrMediaNotFound) {
			return room.Media{Paused: true}, nil
		}
		return room.Media{}, fmt.Errorf("failed to get media: %w", err)
	}

	return media, nil
}

// currentTimestamp projects the stored position to now for playing media.
func (s *service) currentTimestamp(media room.Media) int {
	if media.Paused || media.UpdatedAt == 0 {
		return media.Timestamp
	}

	elapsed := s.clock.Now().UnixMilli() - media.UpdatedAt
	if elapsed < 0 {
		elapsed = 0
	}

	return media.Timestamp + int(elapsed)
}
