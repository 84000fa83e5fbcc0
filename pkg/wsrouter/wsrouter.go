package wsrouter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
)

var (
	ErrMalformedMessage = errors.New("malformed message")
	ErrUnknownType      = errors.New("unknown message type")
)

type message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type HandlerFunc[T any] func(ctx context.Context, conn *websocket.Conn, payload T) error

type Middleware func(next HandlerFunc[any]) HandlerFunc[any]

type ErrorHandlerFunc func(ctx context.Context, conn *websocket.Conn, err error)

type WSRouter struct {
	routes      map[string]HandlerFunc[json.RawMessage]
	middlewares []Middleware
	notFound    HandlerFunc[json.RawMessage]
	onError     ErrorHandlerFunc
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc[json.RawMessage])}
}

// Use appends middlewares. They wrap every handler registered afterwards, in the order given.
func (r *WSRouter) Use(mws ...Middleware) {
	r.middlewares = append(r.middlewares, mws...)
}

// NotFound sets the handler for message types without a route. The raw data is passed through.
func (r *WSRouter) NotFound(handler HandlerFunc[json.RawMessage]) {
	w := r.wrap(func(ctx context.Context, conn *websocket.Conn, payload any) error {
		data, _ := payload.(json.RawMessage)
		return handler(ctx, conn, data)
	})
	r.notFound = func(ctx context.Context, conn *websocket.Conn, data json.RawMessage) error {
		return w(ctx, conn, data)
	}
}

func (r *WSRouter) OnError(handler ErrorHandlerFunc) {
	r.onError = handler
}

// Handle registers handler for messageType; data is decoded into T before the middleware chain runs.
func Handle[T any](r *WSRouter, messageType string, handler HandlerFunc[T]) {
	wrapped := r.wrap(func(ctx context.Context, conn *websocket.Conn, payload any) error {
		input, ok := payload.(T)
		if !ok {
			return fmt.Errorf("%w: unexpected payload %T", ErrMalformedMessage, payload)
		}

		return handler(ctx, conn, input)
	})

	r.routes[messageType] = func(ctx context.Context, conn *websocket.Conn, data json.RawMessage) error {
		var input T
		if len(data) > 0 {
			if err := json.Unmarshal(data, &input); err != nil {
				return fmt.Errorf("%w: %w", ErrMalformedMessage, err)
			}
		}

		return wrapped(ctx, conn, input)
	}
}

func (r *WSRouter) wrap(h HandlerFunc[any]) HandlerFunc[any] {
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}

	return h
}

// ServeConn reads frames until the connection fails and routes each by its type field.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var msg message
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			r.handleError(ctx, conn, fmt.Errorf("%w: %s", ErrMalformedMessage, raw))
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		msgCtx = context.WithValue(msgCtx, rawMessageKey, raw)

		handler, exists := r.routes[msg.Type]
		if !exists {
			handler = r.notFound
		}

		if handler == nil {
			r.handleError(msgCtx, conn, fmt.Errorf("%w: %s", ErrUnknownType, msg.Type))
			continue
		}

		if err := handler(msgCtx, conn, msg.Data); err != nil {
			r.handleError(msgCtx, conn, err)
		}
	}
}

func (r *WSRouter) handleError(ctx context.Context, conn *websocket.Conn, err error) {
	if r.onError != nil {
		r.onError(ctx, conn, err)
	}
}
