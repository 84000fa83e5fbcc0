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
	port = configVar[int]{
		envKey:       "RELAY_PORT",
		flagKey:      "port",
		defaultValue: 80,
	}
	host = configVar[string]{
		envKey:       "RELAY_HOST",
		flagKey:      "host",
		defaultValue: "0.0.0.0",
	}
	logLevel = configVar[string]{
		envKey:       "RELAY_LOG_LEVEL",
		flagKey:      "log-level",
		defaultValue: "INFO",
	}
	participantsLimit = configVar[int]{
		envKey:       "RELAY_PARTICIPANTS_LIMIT",
		flagKey:      "participants-limit",
		defaultValue: 9,
	}
	roomExp = configVar[time.Duration]{
		envKey:       "RELAY_ROOM_EXP",
		flagKey:      "room-exp",
		defaultValue: 24 * time.Hour,
	}
	redisPort = configVar[int]{
		envKey:       "REDIS_PORT",
		flagKey:      "redis-port",
		defaultValue: 6379,
	}
	redisHost = configVar[string]{
		envKey:       "REDIS_HOST",
		flagKey:      "redis-host",
		defaultValue: "localhost",
	}
	redisPassword = configVar[string]{
		envKey:       "REDIS_PASSWORD",
		flagKey:      "redis-password",
		defaultValue: "",
	}
)

func loadRelayConfig() *app.RelayConfig {
	pflag.Int(port.flagKey, port.defaultValue, "Relay port")
	pflag.String(host.flagKey, host.defaultValue, "Relay host")
	pflag.String(logLevel.flagKey, logLevel.defaultValue, "Logging level")
	pflag.Int(participantsLimit.flagKey, participantsLimit.defaultValue, "Maximum number of participants in a room")
	pflag.Duration(roomExp.flagKey, roomExp.defaultValue, "How long an idle room is kept")
	pflag.Int(redisPort.flagKey, redisPort.defaultValue, "Redis port")
	pflag.String(redisHost.flagKey, redisHost.defaultValue, "Redis host")
	pflag.String(redisPassword.flagKey, redisPassword.defaultValue, "Redis password")
	pflag.Parse()

	viper.BindPFlags(pflag.CommandLine)

	viper.BindEnv(port.flagKey, port.envKey)
	viper.BindEnv(host.flagKey, host.envKey)
	viper.BindEnv(logLevel.flagKey, logLevel.envKey)
	viper.BindEnv(participantsLimit.flagKey, participantsLimit.envKey)
	viper.BindEnv(roomExp.flagKey, roomExp.envKey)
	viper.BindEnv(redisPort.flagKey, redisPort.envKey)
	viper.BindEnv(redisHost.flagKey, redisHost.envKey)
	viper.BindEnv(redisPassword.flagKey, redisPassword.envKey)

	viper.SetDefault(port.flagKey, port.defaultValue)
	viper.SetDefault(host.flagKey, host.defaultValue)
	viper.SetDefault(logLevel.flagKey, logLevel.defaultValue)
	viper.SetDefault(participantsLimit.flagKey, participantsLimit.defaultValue)
	viper.SetDefault(roomExp.flagKey, roomExp.defaultValue)
	viper.SetDefault(redisPort.flagKey, redisPort.defaultValue)
	viper.SetDefault(redisHost.flagKey, redisHost.defaultValue)
	viper.SetDefault(redisPassword.flagKey, redisPassword.defaultValue)

	return &app.RelayConfig{
		Host:              viper.GetString(host.flagKey),
		Port:              viper.GetInt(port.flagKey),
		LogLevel:          viper.GetString(logLevel.flagKey),
		ParticipantsLimit: viper.GetInt(participantsLimit.flagKey),
		RoomExp:           viper.GetDuration(roomExp.flagKey),
		RedisHost:         viper.GetString(redisHost.flagKey),
		RedisPort:         viper.GetInt(redisPort.flagKey),
		RedisPassword:     viper.GetString(redisPassword.flagKey),
	}
}

func main() {
	if _, err := os.Stat(".env"); err == nil {
		_ = godotenv.Load()
	}

	ctx := context.Background()

	relayConfig := loadRelayConfig()

	jsonConfig, _ := json.MarshalIndent(relayConfig, "", "  ")
	fmt.Printf("starting relay with config: %s\n", jsonConfig)

	log.Fatal(app.RunRelay(ctx, relayConfig))
}
