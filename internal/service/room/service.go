package room

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/gotheater/lockstep/internal/repository/room"
)

var (
	ErrRoomFull            = errors.New("room is full")
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
)

type iRoomRepo interface {
	// participant
	AddParticipant(context.Context, *room.AddParticipantParams) error
	RemoveParticipant(context.Context, *room.RemoveParticipantParams) error
	UpdateParticipant(context.Context, *room.UpdateParticipantParams) error
	GetParticipant(context.Context, string) (room.Participant, error)
	GetParticipantIds(context.Context, string) ([]string, error)
	GetParticipantsCount(context.Context, string) (int, error)
	// ruler
	SetRuler(context.Context, *room.SetRulerParams) error
	GetRuler(context.Context, string) (room.Ruler, error)
	RemoveRuler(context.Context, string) error
	// media
	SetMedia(context.Context, *room.SetMediaParams) error
	GetMedia(context.Context, string) (room.Media, error)
}

type iConnRepo interface {
	Add(*websocket.Conn, string) error
	RemoveByParticipantId(string) error
	Write(string, []byte) error
}

type Config struct {
	ParticipantsLimit int
}

// service serializes room mutations with a single lock; read-modify-write of the ruler
// token and media state must not interleave.
type service struct {
	roomRepo          iRoomRepo
	connRepo          iConnRepo
	clock             clockwork.Clock
	logger            *slog.Logger
	participantsLimit int
	mu                sync.Mutex
}

func NewService(roomRepo iRoomRepo, connRepo iConnRepo, clock clockwork.Clock, logger *slog.Logger, cfg *Config) *service {
	return &service{
		roomRepo:          roomRepo,
		connRepo:          connRepo,
		clock:             clock,
		logger:            logger,
		participantsLimit: cfg.ParticipantsLimit,
	}
}
