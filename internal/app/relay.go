package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/gotheater/lockstep/internal/controller"
	"github.com/gotheater/lockstep/internal/repository/connection/inmemory"
	roomRedis "github.com/gotheater/lockstep/internal/repository/room/redis"
	"github.com/gotheater/lockstep/internal/service/room"
	"github.com/gotheater/lockstep/pkg/redisclient"
	"github.com/gotheater/lockstep/pkg/validator"
)

type RelayConfig struct {
	Host              string        `json:"host" validate:"required"`
	Port              int           `json:"port" validate:"min=1,max=65535"`
	LogLevel          string        `json:"log_level" validate:"required"`
	ParticipantsLimit int           `json:"participants_limit" validate:"min=1"`
	RoomExp           time.Duration `json:"room_exp" validate:"gte=1m"`
	RedisHost         string        `json:"redis_host" validate:"required"`
	RedisPort         int           `json:"redis_port" validate:"min=1,max=65535"`
	RedisPassword     string        `json:"-"`
}

func (cfg *RelayConfig) Validate() error {
	return validator.NewValidator().Struct(cfg)
}

func newRelayHandler(rc *redis.Client, logger *slog.Logger, cfg *RelayConfig) http.Handler {
	roomRepo := roomRedis.NewRepo(rc, logger, cfg.RoomExp)
	connectionRepo := inmemory.NewRepo(logger)
	roomService := room.NewService(roomRepo, connectionRepo, clockwork.NewRealClock(), logger, &room.Config{
		ParticipantsLimit: cfg.ParticipantsLimit,
	})

	return controller.NewController(roomService, logger).GetMux()
}

func RunRelay(ctx context.Context, cfg *RelayConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel, os.Stdout)
	if err != nil {
		return err
	}

	rc, err := redisclient.NewRedisClient(ctx, &redisclient.Config{
		Port:     cfg.RedisPort,
		Host:     cfg.RedisHost,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		return fmt.Errorf("failed to create redis client: %w", err)
	}
	defer rc.Close()

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: newRelayHandler(rc, logger, cfg),
	}

	// graceful shutdown
	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		shutdownCtx, c := context.WithTimeout(serverCtx, 30*time.Second)
		defer c()

		go func() {
			<-shutdownCtx.Done()
			if shutdownCtx.Err() == context.DeadlineExceeded {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	logger.InfoContext(serverCtx, "starting relay", "address", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	<-serverCtx.Done()

	return nil
}
