package inmemory

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gotheater/lockstep/internal/repository/connection"
)

const writeWait = 10 * time.Second

// entry serializes writes, gorilla connections support one concurrent writer.
type entry struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type repo struct {
	connList map[*websocket.Conn]string
	idList   map[string]*entry
	mu       sync.RWMutex
	logger   *slog.Logger
}

func NewRepo(logger *slog.Logger) *repo {
	return &repo{
		connList: make(map[*websocket.Conn]string),
		idList:   make(map[string]*entry),
		logger:   logger,
	}
}

func (r *repo) Add(conn *websocket.Conn, participantId string) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "participant_id", participantId)
	if r.connList[conn] != "" || r.idList[participantId] != nil {
		r.logger.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	r.connList[conn] = participantId
	r.idList[participantId] = &entry{conn: conn}

	return nil
}

func (r *repo) RemoveByParticipantId(participantId string) error {
	funcName := "connection.inmemory.RemoveByParticipantId"
	r.mu.Lock()
	defer r.mu.Unlock()

	r.logger.Debug(funcName, "participant_id", participantId)
	e, ok := r.idList[participantId]
	if !ok {
		r.logger.Info(funcName, "error", connection.ErrNotFound)
		return connection.ErrNotFound
	}

	delete(r.connList, e.conn)
	delete(r.idList, participantId)

	return nil
}

func (r *repo) GetParticipantId(conn *websocket.Conn) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	participantId, ok := r.connList[conn]
	if !ok {
		return "", connection.ErrNotFound
	}

	return participantId, nil
}

// Write sends one text frame to the participant's connection.
func (r *repo) Write(participantId string, raw []byte) error {
	r.mu.RLock()
	e, ok := r.idList[participantId]
	r.mu.RUnlock()

	if !ok {
		return connection.ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return e.conn.WriteMessage(websocket.TextMessage, raw)
}

func (r *repo) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.idList)
}
