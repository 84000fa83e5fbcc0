package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gotheater/lockstep/internal/channel"
	"github.com/gotheater/lockstep/internal/drift"
	"github.com/gotheater/lockstep/internal/echoguard"
	"github.com/gotheater/lockstep/internal/heartbeat"
	"github.com/gotheater/lockstep/internal/playback"
	"github.com/gotheater/lockstep/internal/presence"
	"github.com/gotheater/lockstep/internal/protocol"
	"github.com/gotheater/lockstep/internal/ruler"
)

var (
	ErrStopped        = errors.New("session stopped")
	ErrEmptyTarget    = errors.New("empty ruler target")
	ErrAlreadyRunning = errors.New("session already running")
)

// Channel is the transport to the relay.
type Channel interface {
	Connect(ctx context.Context, url string) error
	Send(env protocol.Envelope) error
	Events() <-chan channel.Event
	Close() error
}

type Config struct {
	URL               string
	Name              string
	HeartbeatInterval time.Duration
	StaleTimeout      time.Duration
	SeekGuard         time.Duration
}

// State is the session bookkeeping exposed to presentation.
type State struct {
	SelfID     string
	RulerID    string
	RulerEpoch uint64
	Connected  bool
	RTT        int
	Paused     bool
}

type Snapshot struct {
	State
	IsRuler      bool
	Participants []presence.Status
	Playback     playback.State
}

// Client runs the synchronization engine. All state is owned by the goroutine running Run.
type Client struct {
	cfg     Config
	ch      Channel
	adapter playback.Adapter
	clock   clockwork.Clock
	logger  *slog.Logger

	estimator   heartbeat.Estimator
	ticker      *heartbeat.Ticker
	registry    *presence.Registry
	coordinator ruler.Coordinator
	guard       *echoguard.Guard
	corrector   *drift.Corrector

	selfID    string
	connected bool

	ops          chan func()
	running      chan struct{}
	stopped      chan struct{}
	disconnected chan struct{}
}

func New(cfg Config, ch Channel, adapter playback.Adapter, clock clockwork.Clock, logger *slog.Logger) *Client {
	if cfg.HeartbeatInterval == 0 {
		cfg.HeartbeatInterval = heartbeat.DefaultInterval
	}
	if cfg.StaleTimeout == 0 {
		cfg.StaleTimeout = presence.DefaultStaleAfter
	}
	if cfg.SeekGuard == 0 {
		cfg.SeekGuard = echoguard.DefaultWindow
	}

	guard := echoguard.New(clock, cfg.SeekGuard)

	return &Client{
		cfg:          cfg,
		ch:           ch,
		adapter:      adapter,
		clock:        clock,
		logger:       logger,
		ticker:       heartbeat.NewTicker(clock, cfg.HeartbeatInterval),
		registry:     presence.NewRegistry(clock, cfg.StaleTimeout),
		guard:        guard,
		corrector:    drift.NewCorrector(adapter, guard, logger),
		ops:          make(chan func()),
		running:      make(chan struct{}, 1),
		stopped:      make(chan struct{}),
		disconnected: make(chan struct{}),
	}
}

// Disconnected is closed once the channel to the relay has closed.
func (c *Client) Disconnected() <-chan struct{} {
	return c.disconnected
}

// Run connects to the relay and processes events until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	select {
	case c.running <- struct{}{}:
	default:
		return ErrAlreadyRunning
	}
	defer c.teardown()

	if err := c.ch.Connect(ctx, c.cfg.URL); err != nil {
		return fmt.Errorf("failed to connect to relay: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case e := <-c.ch.Events():
			c.handleChannelEvent(ctx, e)
		case <-c.ticker.C():
			c.handleTick(ctx)
		case e := <-c.adapter.Events():
			c.handleDeviceEvent(ctx, e)
		case op := <-c.ops:
			op()
		}
	}
}

func (c *Client) teardown() {
	c.ticker.Stop()
	if err := c.ch.Close(); err != nil {
		c.logger.Warn("failed to close channel", "error", err)
	}
	close(c.stopped)
}

func (c *Client) handleChannelEvent(ctx context.Context, e channel.Event) {
	switch e.Type {
	case channel.EventOpen:
		c.connected = true
		c.ticker.Start()
		c.logger.InfoContext(ctx, "connected to relay")
	case channel.EventMessage:
		c.handleRaw(ctx, e.Raw)
	case channel.EventError:
		c.logger.WarnContext(ctx, "channel error", "error", e.Err)
		c.markDisconnected(ctx)
	case channel.EventClose:
		c.markDisconnected(ctx)
	}
}

func (c *Client) markDisconnected(ctx context.Context) {
	c.ticker.Stop()
	if !c.connected {
		return
	}

	c.connected = false
	close(c.disconnected)
	c.logger.InfoContext(ctx, "disconnected from relay")
}

func (c *Client) handleTick(ctx context.Context) {
	defer c.ticker.Reschedule()

	if pruned := c.registry.PruneStale(); len(pruned) > 0 {
		c.logger.InfoContext(ctx, "pruned stale participants", "ids", pruned)
	}

	if !c.connected || c.selfID == "" {
		return
	}

	c.send(ctx, protocol.KindPing, protocol.PingData{Timestamp: c.estimator.Ping(c.clock.Now())})

	state := c.adapter.State()
	c.send(ctx, protocol.KindStatus, protocol.StatusData{
		Name:                  c.cfg.Name,
		Playing:               state.Playing,
		CurrentMediaURL:       state.SourceURL,
		CurrentMediaTimestamp: state.PositionMs,
		CurrentPing:           c.estimator.OneWay(),
		CurrentPlaybackRate:   state.Rate,
	})

	if c.isRuler() {
		c.send(ctx, protocol.KindPlaybackStatus, protocol.PlaybackStatusData{
			Playing:               state.Playing,
			CurrentMediaTimestamp: state.PositionMs,
			CurrentPing:           c.estimator.OneWay(),
		})
	}
}

func (c *Client) handleRaw(ctx context.Context, raw []byte) {
	msg, err := protocol.Decode(raw)
	if err != nil {
		c.logger.WarnContext(ctx, "failed to decode envelope", "error", err, "raw", string(raw))
		return
	}

	c.dispatch(ctx, msg)
}

func (c *Client) dispatch(ctx context.Context, msg protocol.Message) {
	switch m := msg.(type) {
	case *protocol.Connect:
		c.handleConnect(ctx, m)
	case *protocol.Ping:
		// answered by the relay
	case *protocol.Pong:
		c.handlePong(ctx, m)
	case *protocol.Status:
		c.handleStatus(ctx, m)
	case *protocol.PlaybackStatus:
		c.handlePlaybackStatus(ctx, m)
	case *protocol.SetRuler:
		c.handleSetRuler(ctx, m)
	case *protocol.Play, *protocol.Pause, *protocol.Seek, *protocol.SetMedia:
		c.handleCommand(ctx, m)
	case *protocol.Disconnect:
		if c.registry.Remove(m.Data.ID) {
			c.logger.InfoContext(ctx, "participant left", "id", m.Data.ID)
		}
	case *protocol.Unknown:
		c.logger.DebugContext(ctx, "ignoring unknown message type", "type", m.Kind(), "from", m.Sender())
	}
}

func (c *Client) handleConnect(ctx context.Context, m *protocol.Connect) {
	if c.selfID != "" && c.selfID != m.Data.ID {
		c.logger.WarnContext(ctx, "ignoring connect with different id", "id", m.Data.ID)
		return
	}

	if c.selfID == "" {
		c.selfID = m.Data.ID
		c.logger = c.logger.With("participant_id", c.selfID)
	}

	sessions := make([]presence.Status, 0, len(m.Data.CurrentSessions))
	for _, s := range m.Data.CurrentSessions {
		sessions = append(sessions, statusFromWire(s.ID, s.StatusData))
	}
	c.registry.Seed(c.selfID, sessions)

	wasRuler := c.isRuler()
	c.coordinator.Reset(ruler.Token{RulerID: m.Data.CurrentRulerID, Epoch: m.Data.CurrentRulerEpoch})
	c.onRulerChange(ctx, wasRuler)

	c.applyToDevice(func() {
		if m.Data.CurrentMediaURL != "" && m.Data.CurrentMediaURL != c.adapter.State().SourceURL {
			if err := c.adapter.SetSource(m.Data.CurrentMediaURL); err != nil {
				c.logger.WarnContext(ctx, "failed to load room media", "error", err)
				return
			}
		}

		c.guard.Mark()
		c.adapter.Seek(m.Data.CurrentMediaTimestamp)
		if m.Data.CurrentMediaPaused {
			c.adapter.Pause()
		} else {
			c.adapter.Play()
		}
	})

	c.logger.InfoContext(ctx, "joined session",
		"ruler_id", c.coordinator.RulerID(),
		"participants", c.registry.Len(),
		"media_url", m.Data.CurrentMediaURL,
	)

	// a ruler joining a room without media announces its own source
	if local := c.adapter.State().SourceURL; c.isRuler() && m.Data.CurrentMediaURL == "" && local != "" {
		c.send(ctx, protocol.KindSetMedia, protocol.SetMediaData{URL: local})
	}
}

func (c *Client) handlePong(ctx context.Context, m *protocol.Pong) {
	rtt, err := c.estimator.Pong(c.clock.Now(), m.Data.Timestamp)
	if err != nil {
		c.logger.WarnContext(ctx, "rejected pong", "error", err)
		return
	}

	c.logger.DebugContext(ctx, "rtt updated", "rtt_ms", rtt)
}

func (c *Client) handleStatus(ctx context.Context, m *protocol.Status) {
	c.registry.Upsert(statusFromWire(m.Sender(), m.Data))

	if !c.fromRuler(m) || c.isRuler() {
		return
	}

	local := c.adapter.State().SourceURL
	if m.Data.CurrentMediaURL != "" && local != "" && m.Data.CurrentMediaURL != local {
		c.logger.DebugContext(ctx, "ruler is on different media, skipping drift correction")
		return
	}

	c.applyToDevice(func() {
		c.corrector.Correct(m.Data.CurrentMediaTimestamp, m.Data.CurrentPing, c.estimator.RTT())
	})
}

func (c *Client) handlePlaybackStatus(ctx context.Context, m *protocol.PlaybackStatus) {
	if !c.fromRuler(m) || c.isRuler() {
		return
	}

	playing := c.adapter.State().Playing
	if m.Data.Playing == playing {
		return
	}

	c.applyToDevice(func() {
		if m.Data.Playing {
			c.adapter.Play()
		} else {
			c.adapter.Pause()
		}
	})
	c.logger.DebugContext(ctx, "aligned play state with ruler", "playing", m.Data.Playing)
}

func (c *Client) handleSetRuler(ctx context.Context, m *protocol.SetRuler) {
	token := ruler.Token{RulerID: m.Data.NewRulerID, Epoch: m.Data.Epoch}
	wasRuler := c.isRuler()
	if !c.coordinator.Apply(token) {
		c.logger.DebugContext(ctx, "ignoring stale ruler transfer", "ruler_id", token.RulerID, "epoch", token.Epoch)
		return
	}
	c.onRulerChange(ctx, wasRuler)

	c.logger.InfoContext(ctx, "ruler changed", "ruler_id", token.RulerID, "from", m.Sender(), "is_ruler", c.isRuler())
}

func (c *Client) handleCommand(ctx context.Context, msg protocol.Message) {
	if !c.fromRuler(msg) || c.isRuler() {
		c.logger.DebugContext(ctx, "ignoring command from non-ruler", "type", msg.Kind(), "from", msg.Sender())
		return
	}

	switch m := msg.(type) {
	case *protocol.Play:
		c.applyToDevice(c.adapter.Play)
	case *protocol.Pause:
		c.applyToDevice(c.adapter.Pause)
	case *protocol.Seek:
		if !c.guard.TryMark() {
			c.logger.DebugContext(ctx, "seek suppressed by guard", "position_ms", m.Data.MediaTimestamp)
			return
		}
		c.applyToDevice(func() { c.adapter.Seek(m.Data.MediaTimestamp) })
	case *protocol.SetMedia:
		c.applyToDevice(func() {
			if err := c.adapter.SetSource(m.Data.URL); err != nil {
				c.logger.WarnContext(ctx, "failed to set media", "error", err)
			}
		})
	}
}

// handleDeviceEvent forwards changes made on the local device when this participant rules.
func (c *Client) handleDeviceEvent(ctx context.Context, e playback.Event) {
	if !c.isRuler() {
		return
	}

	switch e.Type {
	case playback.EventPlay:
		c.send(ctx, protocol.KindPlay, nil)
	case playback.EventPause:
		c.send(ctx, protocol.KindPause, nil)
	case playback.EventSeek:
		if !c.guard.Open() {
			c.logger.DebugContext(ctx, "not forwarding seek caused by engine", "position_ms", e.PositionMs)
			return
		}
		c.send(ctx, protocol.KindSeek, protocol.SeekData{MediaTimestamp: e.PositionMs})
	case playback.EventSource:
		c.send(ctx, protocol.KindSetMedia, protocol.SetMediaData{URL: e.URL})
	}
}

// onRulerChange puts the rate back to nominal when this participant has just become ruler.
func (c *Client) onRulerChange(ctx context.Context, wasRuler bool) {
	if wasRuler || !c.isRuler() {
		return
	}

	c.applyToDevice(func() { c.adapter.SetRate(drift.RateNormal) })
	c.logger.InfoContext(ctx, "became ruler", "epoch", c.coordinator.Token().Epoch)
}

// applyToDevice runs an engine-initiated device change and discards the events it caused.
func (c *Client) applyToDevice(fn func()) {
	fn()

	for {
		select {
		case <-c.adapter.Events():
		default:
			return
		}
	}
}

func (c *Client) send(ctx context.Context, kind protocol.Kind, data any) {
	env, err := protocol.New(c.selfID, kind, data)
	if err != nil {
		c.logger.ErrorContext(ctx, "failed to build envelope", "error", err)
		return
	}

	if err := c.ch.Send(env); err != nil {
		c.logger.WarnContext(ctx, "failed to send envelope", "type", kind, "error", err)
	}
}

func (c *Client) isRuler() bool {
	return c.coordinator.IsRuler(c.selfID)
}

func (c *Client) fromRuler(msg protocol.Message) bool {
	return msg.Sender() != "" && msg.Sender() == c.coordinator.RulerID()
}

func (c *Client) state() State {
	token := c.coordinator.Token()

	return State{
		SelfID:     c.selfID,
		RulerID:    token.RulerID,
		RulerEpoch: token.Epoch,
		Connected:  c.connected,
		RTT:        c.estimator.RTT(),
		Paused:     !c.adapter.State().Playing,
	}
}

func statusFromWire(id string, s protocol.StatusData) presence.Status {
	return presence.Status{
		ID:                    id,
		Name:                  s.Name,
		Playing:               s.Playing,
		CurrentMediaURL:       s.CurrentMediaURL,
		CurrentMediaTimestamp: s.CurrentMediaTimestamp,
		CurrentPing:           s.CurrentPing,
		CurrentPlaybackRate:   s.CurrentPlaybackRate,
	}
}
