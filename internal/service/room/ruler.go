package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/gotheater/lockstep/internal/repository/room"
	"github.com/gotheater/lockstep/internal/ruler"
)

type UpdateRulerParams struct {
	SenderId   string
	RoomId     string
	NewRulerId string
	Epoch      uint64
}

type UpdateRulerResponse struct {
	// Token is the room's token after the update, stamped with an epoch.
	Token   ruler.Token
	Applied bool
}

// UpdateRuler applies a transfer with the same ordering clients use. Transfers without an
// epoch are stamped with the next one.
func (s *service) UpdateRuler(ctx context.Context, params *UpdateRulerParams) (UpdateRulerResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.roomRepo.GetParticipant(ctx, params.NewRulerId)
	if err != nil {
		if errors.Is(err, room.ErrParticipantNotFound) {
			return UpdateRulerResponse{}, ErrParticipantNotFound
		}
		return UpdateRulerResponse{}, fmt.Errorf("failed to get participant: %w", err)
	}

	if target.RoomId != params.RoomId {
		return UpdateRulerResponse{}, ErrParticipantNotFound
	}

	stored, err := s.getRuler(ctx, params.RoomId)
	if err != nil {
		return UpdateRulerResponse{}, err
	}
	current := ruler.Token{RulerID: stored.RulerId, Epoch: stored.Epoch}

	token := ruler.Token{RulerID: params.NewRulerId, Epoch: params.Epoch}
	if token.Epoch == 0 {
		token.Epoch = current.Epoch + 1
	}

	if !token.Supersedes(current) {
		s.logger.DebugContext(ctx, "stale ruler transfer", "ruler_id", token.RulerID, "epoch", token.Epoch, "current_epoch", current.Epoch)
		return UpdateRulerResponse{Token: current}, nil
	}

	if err := s.roomRepo.SetRuler(ctx, &room.SetRulerParams{
		RoomId:  params.RoomId,
		RulerId: token.RulerID,
		Epoch:   token.Epoch,
	}); err != nil {
		return UpdateRulerResponse{}, fmt.Errorf("failed to set ruler: %w", err)
	}

	return UpdateRulerResponse{Token: token, Applied: true}, nil
}
