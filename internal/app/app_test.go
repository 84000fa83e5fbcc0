package app

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gotheater/lockstep/internal/heartbeat"
	"github.com/gotheater/lockstep/pkg/validator"
)

func validClientConfig() ClientConfig {
	return ClientConfig{
		RelayURL:          "ws://localhost:8080",
		Room:              "movie-night",
		Name:              "alice",
		LogLevel:          "INFO",
		HeartbeatInterval: 1500 * time.Millisecond,
		StaleTimeout:      10 * time.Second,
		SeekGuard:         1500 * time.Millisecond,
	}
}

func TestClientConfigValidate(t *testing.T) {
	cfg := validClientConfig()
	require.NoError(t, cfg.Validate())

	cfg = validClientConfig()
	cfg.HeartbeatInterval = 500 * time.Millisecond
	assert.ErrorIs(t, cfg.Validate(), heartbeat.ErrInterval)

	cfg = validClientConfig()
	cfg.SeekGuard = time.Second
	assert.ErrorIs(t, cfg.Validate(), validator.ErrValidation)

	cfg = validClientConfig()
	cfg.StaleTimeout = time.Second
	assert.ErrorIs(t, cfg.Validate(), validator.ErrValidation)

	cfg = validClientConfig()
	cfg.MediaURL = "not a url"
	assert.ErrorIs(t, cfg.Validate(), validator.ErrValidation)

	cfg = validClientConfig()
	cfg.Name = ""
	assert.ErrorIs(t, cfg.Validate(), validator.ErrValidation)
}

func TestClientRoomURL(t *testing.T) {
	cfg := validClientConfig()
	cfg.RelayURL = "ws://relay.local:80/"
	cfg.Room = "friday night"

	assert.Equal(t, "ws://relay.local:80/api/v1/ws/rooms/friday%20night", cfg.roomURL())
}

func TestRelayConfigValidate(t *testing.T) {
	cfg := RelayConfig{
		Host:              "0.0.0.0",
		Port:              80,
		LogLevel:          "INFO",
		ParticipantsLimit: 9,
		RoomExp:           time.Hour,
		RedisHost:         "localhost",
		RedisPort:         6379,
	}
	require.NoError(t, cfg.Validate())

	cfg.ParticipantsLimit = 0
	assert.ErrorIs(t, cfg.Validate(), validator.ErrValidation)

	cfg.ParticipantsLimit = 9
	cfg.RoomExp = time.Second
	assert.ErrorIs(t, cfg.Validate(), validator.ErrValidation)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger("debug", &buf)
	require.NoError(t, err)

	logger.Debug("hello", "key", "value")
	assert.Contains(t, buf.String(), `"msg":"hello"`)

	_, err = newLogger("loud", &buf)
	assert.Error(t, err)
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		want command
	}{
		{line: "", want: command{name: cmdNone}},
		{line: "play", want: command{name: cmdPlay}},
		{line: "  PAUSE ", want: command{name: cmdPause}},
		{line: "seek 90000", want: command{name: cmdSeek, positionMs: 90000}},
		{line: "media https://example.com/v.mp4", want: command{name: cmdMedia, arg: "https://example.com/v.mp4"}},
		{line: "ruler b", want: command{name: cmdRuler, arg: "b"}},
		{line: "who", want: command{name: cmdWho}},
		{line: "exit", want: command{name: cmdQuit}},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			got, err := parseCommand(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCommandErrors(t *testing.T) {
	_, err := parseCommand("rewind")
	assert.ErrorIs(t, err, ErrUnknownCommand)

	_, err = parseCommand("seek")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = parseCommand("seek -5")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = parseCommand("seek soon")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = parseCommand("play now")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestRunClientAgainstRelay(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	srv := httptest.NewServer(newRelayHandler(rc, slog.New(slog.NewTextHandler(io.Discard, nil)), &RelayConfig{
		ParticipantsLimit: 9,
		RoomExp:           time.Hour,
	}))
	t.Cleanup(srv.Close)

	cfg := validClientConfig()
	cfg.RelayURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.LogLevel = "ERROR"
	cfg.MediaURL = "https://example.com/v.mp4"

	in, stdin := io.Pipe()
	t.Cleanup(func() { stdin.Close() })
	out := &syncBuffer{}

	done := make(chan error, 1)
	go func() {
		done <- RunClient(context.Background(), &cfg, in, out)
	}()

	// alone in the room, the client rules it
	selfRules := regexp.MustCompile(`self=(\S+) ruler=(\S+) epoch=1 connected=true`)
	assert.Eventually(t, func() bool {
		if _, err := io.WriteString(stdin, "who\n"); err != nil {
			return false
		}
		m := selfRules.FindStringSubmatch(out.String())
		return m != nil && m[1] == m[2]
	}, 5*time.Second, 50*time.Millisecond)

	_, err := io.WriteString(stdin, "seek 5000\n")
	require.NoError(t, err)
	_, err = io.WriteString(stdin, "quit\n")
	require.NoError(t, err)

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("client did not stop")
	}
	assert.Contains(t, out.String(), `media="https://example.com/v.mp4"`)
}
