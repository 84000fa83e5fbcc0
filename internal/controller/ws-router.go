package controller

import (
	"encoding/json"

	"github.com/gotheater/lockstep/internal/protocol"
	"github.com/gotheater/lockstep/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.OnError(c.handleWSError)

	// heartbeat
	wsrouter.Handle(mux, string(protocol.KindPing), c.handlePing)

	// presence
	wsrouter.Handle(mux, string(protocol.KindStatus), c.handleStatus)

	// ruler
	wsrouter.Handle(mux, string(protocol.KindSetRuler), c.handleSetRuler)
	wsrouter.Handle(mux, string(protocol.KindSetLeader), c.handleSetRuler)

	// playback
	for _, kind := range []protocol.Kind{
		protocol.KindPlay,
		protocol.KindPause,
		protocol.KindSeek,
		protocol.KindSetMedia,
		protocol.KindPlaybackStatus,
	} {
		wsrouter.Handle[json.RawMessage](mux, string(kind), c.handleCommand)
	}

	mux.NotFound(c.handleUnknown)

	return mux
}
