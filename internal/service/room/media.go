package room

import (
	"context"
	"fmt"

	"github.com/gotheater/lockstep/internal/protocol"
	"github.com/gotheater/lockstep/internal/repository/room"
)

type ApplyCommandParams struct {
	SenderId string
	RoomId   string
	Message  protocol.Message
}

// ApplyCommand records the effect of a playback command on the room's media state.
// Commands from anyone but the ruler leave the state untouched and report false.
func (s *service) ApplyCommand(ctx context.Context, params *ApplyCommandParams) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.getRuler(ctx, params.RoomId)
	if err != nil {
		return false, err
	}

	if current.RulerId == "" || current.RulerId != params.SenderId {
		return false, nil
	}

	media, err := s.getMedia(ctx, params.RoomId)
	if err != nil {
		return false, err
	}

	switch m := params.Message.(type) {
	case *protocol.Play:
		media.Timestamp = s.currentTimestamp(media)
		media.Paused = false
	case *protocol.Pause:
		media.Timestamp = s.currentTimestamp(media)
		media.Paused = true
	case *protocol.Seek:
		media.Timestamp = m.Data.MediaTimestamp
	case *protocol.SetMedia:
		media.URL = m.Data.URL
		media.Timestamp = 0
		media.Paused = true
	case *protocol.PlaybackStatus:
		media.Timestamp = m.Data.CurrentMediaTimestamp
		media.Paused = !m.Data.Playing
	default:
		return false, nil
	}

	if err := s.roomRepo.SetMedia(ctx, &room.SetMediaParams{
		RoomId:    params.RoomId,
		URL:       media.URL,
		Paused:    media.Paused,
		Timestamp: media.Timestamp,
		UpdatedAt: s.clock.Now().UnixMilli(),
	}); err != nil {
		return false, fmt.Errorf("failed to set media: %w", err)
	}

	return true, nil
}

func (s *service) GetRoomState(ctx context.Context, roomId string) (Room, error) {
	participants, err := s.getParticipants(ctx, roomId)
	if err != nil {
		return Room{}, err
	}

	current, err := s.getRuler(ctx, roomId)
	if err != nil {
		return Room{}, err
	}

	media, err := s.getMedia(ctx, roomId)
	if err != nil {
		return Room{}, err
	}

	if len(participants) == 0 && current.Epoch == 0 && media.URL == "" {
		return Room{}, ErrRoomNotFound
	}

	return Room{
		RoomId:     roomId,
		RulerId:    current.RulerId,
		RulerEpoch: current.Epoch,
		Media: Media{
			URL:       media.URL,
			Paused:    media.Paused,
			Timestamp: s.currentTimestamp(media),
		},
		Participants: participants,
	}, nil
}
