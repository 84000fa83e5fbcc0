package room

import (
	"context"
	"fmt"

	"github.com/gotheater/lockstep/internal/protocol"
)

func (s *service) SendTo(ctx context.Context, participantId string, env protocol.Envelope) error {
	raw, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	if err := s.connRepo.Write(participantId, raw); err != nil {
		return fmt.Errorf("failed to write to %s: %w", participantId, err)
	}

	return nil
}

// Broadcast sends env to every participant of the room except exceptId. Failed writes are
// logged and do not stop the broadcast.
func (s *service) Broadcast(ctx context.Context, roomId, exceptId string, env protocol.Envelope) error {
	raw, err := env.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal envelope: %w", err)
	}

	ids, err := s.roomRepo.GetParticipantIds(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get participant ids: %w", err)
	}

	for _, id := range ids {
		if id == exceptId {
			continue
		}

		if err := s.connRepo.Write(id, raw); err != nil {
			s.logger.WarnContext(ctx, "failed to write to participant", "participant_id", id, "error", err)
		}
	}

	return nil
}
