package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/gotheater/lockstep/internal/protocol"
	"github.com/gotheater/lockstep/internal/service/room"
	"github.com/gotheater/lockstep/pkg/validator"
	"github.com/gotheater/lockstep/pkg/wsrouter"
)

type iRoomService interface {
	CheckCapacity(context.Context, string) error
	ConnectParticipant(context.Context, *room.ConnectParticipantParams) (room.ConnectParticipantResponse, error)
	DisconnectParticipant(context.Context, *room.DisconnectParticipantParams) (room.DisconnectParticipantResponse, error)
	UpdateStatus(context.Context, *room.UpdateStatusParams) error
	UpdateRuler(context.Context, *room.UpdateRulerParams) (room.UpdateRulerResponse, error)
	ApplyCommand(context.Context, *room.ApplyCommandParams) (bool, error)
	GetRoomState(context.Context, string) (room.Room, error)
	Pong(protocol.PingData) protocol.PongData
	SendTo(context.Context, string, protocol.Envelope) error
	Broadcast(ctx context.Context, roomId, exceptId string, env protocol.Envelope) error
}

type controller struct {
	roomService iRoomService
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	wsmux       *wsrouter.WSRouter
	logger      *slog.Logger
}

func NewController(roomService iRoomService, logger *slog.Logger) *controller {
	c := &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
	c.wsmux = c.getWSRouter()

	return c
}
