package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/gotheater/lockstep/internal/channel"
	"github.com/gotheater/lockstep/internal/heartbeat"
	"github.com/gotheater/lockstep/internal/playback"
	"github.com/gotheater/lockstep/internal/session"
	"github.com/gotheater/lockstep/pkg/validator"
)

type ClientConfig struct {
	RelayURL          string        `json:"relay_url" validate:"required,url"`
	Room              string        `json:"room" validate:"required,max=64,printascii"`
	Name              string        `json:"name" validate:"required,max=64"`
	LogLevel          string        `json:"log_level" validate:"required"`
	HeartbeatInterval time.Duration `json:"heartbeat_interval"`
	StaleTimeout      time.Duration `json:"stale_timeout" validate:"gtfield=HeartbeatInterval"`
	SeekGuard         time.Duration `json:"seek_guard" validate:"gtefield=HeartbeatInterval"`
	MediaURL          string        `json:"media_url" validate:"omitempty,url"`
}

func (cfg *ClientConfig) Validate() error {
	if err := heartbeat.ValidateInterval(cfg.HeartbeatInterval); err != nil {
		return err
	}

	return validator.NewValidator().Struct(cfg)
}

func (cfg *ClientConfig) roomURL() string {
	return strings.TrimRight(cfg.RelayURL, "/") + "/api/v1/ws/rooms/" + url.PathEscape(cfg.Room)
}

// RunClient joins the configured room with a virtual player and serves commands read from in
// until in is exhausted, the user quits or the relay goes away.
func RunClient(ctx context.Context, cfg *ClientConfig, in io.Reader, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, os.Stderr)
	if err != nil {
		return err
	}

	clock := clockwork.NewRealClock()
	player := playback.NewVirtual(clock, logger)
	if cfg.MediaURL != "" {
		if err := player.SetSource(cfg.MediaURL); err != nil {
			return err
		}
	}

	sess := session.New(session.Config{
		URL:               cfg.roomURL(),
		Name:              cfg.Name,
		HeartbeatInterval: cfg.HeartbeatInterval,
		StaleTimeout:      cfg.StaleTimeout,
		SeekGuard:         cfg.SeekGuard,
	}, channel.NewClient(channel.DefaultConfig(), logger), player, clock, logger)

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		runErr <- sess.Run(ctx)
	}()

	lines := make(chan string)
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	stop := func() error {
		cancel()
		return <-runErr
	}

	logger.InfoContext(ctx, "joining room", "url", cfg.roomURL(), "name", cfg.Name)
	for {
		select {
		case err := <-runErr:
			return err
		case <-sess.Disconnected():
			fmt.Fprintln(out, "disconnected from relay")
			return stop()
		case line, ok := <-lines:
			if !ok {
				return stop()
			}

			cmd, err := parseCommand(line)
			if err != nil {
				fmt.Fprintln(out, err)
				continue
			}

			if cmd.name == cmdQuit {
				return stop()
			}

			if err := execute(ctx, sess, cmd, out); err != nil {
				fmt.Fprintln(out, err)
			}
		}
	}
}
