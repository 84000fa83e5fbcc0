package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gotheater/lockstep/internal/app"
)

type configVar[T any] struct {
	envKey       string
	flagKey      string
	defaultValue T
}

var (
	relayURL = configVar[string]{
		envKey:       "CLIENT_RELAY_URL",
		flagKey:      "relay-url",
		defaultValue: "ws://localhost:80",
	}
	room = configVar[string]{
		envKey:       "CLIENT_ROOM",
		flagKey:      "room",
		defaultValue: "",
	}
	name = configVar[string]{
		envKey:       "CLIENT_NAME",
		flagKey:      "name",
		defaultValue: "",
	}
	logLevel = configVar[string]{
		envKey:       "CLIENT_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "WARN",
	}
	heartbeatInterval = configVar[time.Duration]{
		envKey:       "CLIENT_HEARTBEAT_INTERVAL",
		flagKey:      "heartbeat-interval",
		defaultValue: 1500 * time.Millisecond,
	}
	staleTimeout = configVar[time.Duration]{
		envKey:       "CLIENT_STALE_TIMEOUT",
		flagKey:      "stale-timeout",
		defaultValue: 10 * time.Second,
	}
	seekGuard = configVar[time.Duration]{
		envKey:       "CLIENT_SEEK_GUARD",
		flagKey:      "seek-guard",
		defaultValue: 1500 * time.Millisecond,
	}
	mediaURL = configVar[string]{
		envKey:       "CLIENT_MEDIA_URL",
		flagKey:      "media-url",
		defaultValue: "",
	}
)

func loadClientConfig() *app.ClientConfig {
	pflag.String(relayURL.flagKey, relayURL.defaultValue, "Relay websocket base url")
	pflag.String(room.flagKey, room.defaultValue, "Room to join")
	pflag.String(name.flagKey, name.defaultValue, "Display name")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Duration(heartbeatInterval.flagKey, heartbeatInterval.defaultValue, "Heartbeat interval, between 1s and 1.5s")
	pflag.Duration(staleTimeout.flagKey, staleTimeout.defaultValue, "Drop participants not heard from for this long")
	pflag.Duration(seekGuard.flagKey, seekGuard.defaultValue, "Minimum time between corrective seeks")
	pflag.String(mediaURL.flagKey, mediaURL.defaultValue, "Initial media source")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(relayURL.flagKey, relayURL.envKey)
	viper.BindEnv(room.flagKey, room.envKey)
	viper.BindEnv(name.flagKey, name.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(heartbeatInterval.flagKey, heartbeatInterval.envKey)
	viper.BindEnv(staleTimeout.flagKey, staleTimeout.envKey)
	viper.BindEnv(seekGuard.flagKey, seekGuard.envKey)
	viper.BindEnv(mediaURL.flagKey, mediaURL.envKey)

	viper.SetDefault(relayURL.flagKey, relayURL.defaultValue)
	viper.SetDefault(room.flagKey, room.defaultValue)
	viper.SetDefault(name.flagKey, name.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(heartbeatInterval.flagKey, heartbeatInterval.defaultValue)
	viper.SetDefault(staleTimeout.flagKey, staleTimeout.defaultValue)
	viper.SetDefault(seekGuard.flagKey, seekGuard.defaultValue)
	viper.SetDefault(mediaURL.flagKey, mediaURL.defaultValue)

	return &app.ClientConfig{
		RelayURL:          viper.GetString(relayURL.flagKey),
		Room:              viper.GetString(room.flagKey),
		Name:              viper.GetString(name.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		HeartbeatInterval: viper.GetDuration(heartbeatInterval.flagKey),
		StaleTimeout:      viper.GetDuration(staleTimeout.flagKey),
		SeekGuard:         viper.GetDuration(seekGuard.flagKey),
		MediaURL:          viper.GetString(mediaURL.flagKey),
	}
}

func main() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	ctx := context.Background()

	clientConfig := loadClientConfig()

	jsonConfig, _ := json.MarshalIndent(clientConfig, "", "  ")
	fmt.Fprintf(os.Stderr, "starting client with config: %s\n", jsonConfig)

	if err := app.RunClient(ctx, clientConfig, os.Stdin, os.Stdout); err != nil {
		log.Fatal(err)
	}
}
