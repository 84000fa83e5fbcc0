package room

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gotheater/lockstep/internal/protocol"
	"github.com/gotheater/lockstep/internal/repository/room"
	"github.com/gotheater/lockstep/internal/ruler"
)

func (s *service) CheckCapacity(ctx context.Context, roomId string) error {
	count, err := s.roomRepo.GetParticipantsCount(ctx, roomId)
	if err != nil {
		return fmt.Errorf("failed to get participants count: %w", err)
	}

	if count >= s.participantsLimit {
		return ErrRoomFull
	}

	return nil
}

type ConnectParticipantParams struct {
	Conn   *websocket.Conn
	RoomId string
}

type ConnectParticipantResponse struct {
	ParticipantId string
	Connect       protocol.ConnectData
}

// ConnectParticipant registers a new participant. The first participant of a room becomes its ruler.
func (s *service) ConnectParticipant(ctx context.Context, params *ConnectParticipantParams) (ConnectParticipantResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.CheckCapacity(ctx, params.RoomId); err != nil {
		return ConnectParticipantResponse{}, err
	}

	participantId := uuid.NewString()
	if err := s.roomRepo.AddParticipant(ctx, &room.AddParticipantParams{
		ParticipantId: participantId,
		RoomId:        params.RoomId,
	}); err != nil {
		return ConnectParticipantResponse{}, fmt.Errorf("failed to add participant: %w", err)
	}

	if err := s.connRepo.Add(params.Conn, participantId); err != nil {
		s.logger.WarnContext(ctx, "failed to add conn", "error", err)
		s.rollbackConnect(ctx, participantId, params.RoomId, false, false)
		return ConnectParticipantResponse{}, fmt.Errorf("failed to add conn: %w", err)
	}

	current, err := s.getRuler(ctx, params.RoomId)
	if err != nil {
		s.rollbackConnect(ctx, participantId, params.RoomId, true, false)
		return ConnectParticipantResponse{}, err
	}

	rules := current.RulerId == ""
	if rules {
		current = room.Ruler{RulerId: participantId, Epoch: current.Epoch + 1}
		if err := s.roomRepo.SetRuler(ctx, &room.SetRulerParams{
			RoomId:  params.RoomId,
			RulerId: current.RulerId,
			Epoch:   current.Epoch,
		}); err != nil {
			s.rollbackConnect(ctx, participantId, params.RoomId, true, false)
			return ConnectParticipantResponse{}, fmt.Errorf("failed to set ruler: %w", err)
		}
	}

	participants, err := s.getParticipants(ctx, params.RoomId)
	if err != nil {
		s.rollbackConnect(ctx, participantId, params.RoomId, true, rules)
		return ConnectParticipantResponse{}, err
	}

	sessions := make([]protocol.Session, 0, len(participants))
	for _, p := range participants {
		sessions = append(sessions, p.session())
	}

	media, err := s.getMedia(ctx, params.RoomId)
	if err != nil {
		s.rollbackConnect(ctx, participantId, params.RoomId, true, rules)
		return ConnectParticipantResponse{}, err
	}

	return ConnectParticipantResponse{
		ParticipantId: participantId,
		Connect: protocol.ConnectData{
			ID:                    participantId,
			CurrentRulerID:        current.RulerId,
			CurrentRulerEpoch:     current.Epoch,
			CurrentSessions:       sessions,
			CurrentMediaURL:       media.URL,
			CurrentMediaPaused:    media.Paused,
			CurrentMediaTimestamp: s.currentTimestamp(media),
		},
	}, nil
}

// rollbackConnect undoes a partially applied ConnectParticipant. The ruler hash keeps its epoch.
func (s *service) rollbackConnect(ctx context.Context, participantId, roomId string, hasConn, rules bool) {
	if hasConn {
		if err := s.connRepo.RemoveByParticipantId(participantId); err != nil {
			s.logger.WarnContext(ctx, "failed to remove conn on rollback", "error", err)
		}
	}

	if rules {
		if err := s.roomRepo.RemoveRuler(ctx, roomId); err != nil {
			s.logger.WarnContext(ctx, "failed to remove ruler on rollback", "error", err)
		}
	}

	if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		ParticipantId: participantId,
		RoomId:        roomId,
	}); err != nil {
		s.logger.WarnContext(ctx, "failed to remove participant on rollback", "error", err)
	}
}

type DisconnectParticipantParams struct {
	ParticipantId string
	RoomId        string
}

type DisconnectParticipantResponse struct {
	// NewRuler is set when the leaving participant ruled and someone was promoted.
	NewRuler  *ruler.Token
	Remaining int
}

func (s *service) DisconnectParticipant(ctx context.Context, params *DisconnectParticipantParams) (DisconnectParticipantResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.connRepo.RemoveByParticipantId(params.ParticipantId); err != nil {
		s.logger.DebugContext(ctx, "failed to remove conn", "error", err)
	}

	if err := s.roomRepo.RemoveParticipant(ctx, &room.RemoveParticipantParams{
		ParticipantId: params.ParticipantId,
		RoomId:        params.RoomId,
	}); err != nil {
		if errors.Is(err, room.ErrParticipantNotFound) {
			return DisconnectParticipantResponse{}, ErrParticipantNotFound
		}
		return DisconnectParticipantResponse{}, fmt.Errorf("failed to remove participant: %w", err)
	}

	ids, err := s.roomRepo.GetParticipantIds(ctx, params.RoomId)
	if err != nil {
		return DisconnectParticipantResponse{}, fmt.Errorf("failed to get participant ids: %w", err)
	}

	resp := DisconnectParticipantResponse{Remaining: len(ids)}

	current, err := s.getRuler(ctx, params.RoomId)
	if err != nil {
		return DisconnectParticipantResponse{}, err
	}

	if current.RulerId != params.ParticipantId {
		return resp, nil
	}

	if len(ids) == 0 {
		if err := s.roomRepo.RemoveRuler(ctx, params.RoomId); err != nil {
			return DisconnectParticipantResponse{}, fmt.Errorf("failed to remove ruler: %w", err)
		}
		return resp, nil
	}

	// ids are ordered by join time, the longest connected participant takes over
	token := ruler.Token{RulerID: ids[0], Epoch: current.Epoch + 1}
	if err := s.roomRepo.SetRuler(ctx, &room.SetRulerParams{
		RoomId:  params.RoomId,
		RulerId: token.RulerID,
		Epoch:   token.Epoch,
	}); err != nil {
		return DisconnectParticipantResponse{}, fmt.Errorf("failed to set ruler: %w", err)
	}
	resp.NewRuler = &token

	return resp, nil
}

type UpdateStatusParams struct {
	ParticipantId string
	RoomId        string
	Status        protocol.StatusData
}

func (s *service) UpdateStatus(ctx context.Context, params *UpdateStatusParams) error {
	if err := s.roomRepo.UpdateParticipant(ctx, &room.UpdateParticipantParams{
		ParticipantId:         params.ParticipantId,
		RoomId:                params.RoomId,
		Name:                  params.Status.Name,
		Playing:               params.Status.Playing,
		CurrentMediaURL:       params.Status.CurrentMediaURL,
		CurrentMediaTimestamp: params.Status.CurrentMediaTimestamp,
		CurrentPing:           params.Status.CurrentPing,
		CurrentPlaybackRate:   params.Status.CurrentPlaybackRate,
	}); err != nil {
		if errors.Is(err, room.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return fmt.Errorf("failed to update participant: %w", err)
	}

	return nil
}

// Pong answers a ping with the echoed timestamp and the relay's receive time.
func (s *service) Pong(ping protocol.PingData) protocol.PongData {
	return protocol.PongData{
		Timestamp:  ping.Timestamp,
		ReceivedAt: s.clock.Now().UnixMilli(),
	}
}
