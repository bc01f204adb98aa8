package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

// Load reads configuration from environment variables and .env file.
func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Info("No .env file found, reading from environment variables")
	}

	// A helper function to get a required env var. It will fail if the env var is not set.
	getEnv := func(key string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		log.Fatalf("Error: Required environment variable %s is not set.", key)
		return "" // This line is never reached
	}
	getEnvDefault := func(key, fallback string) string {
		if value, ok := os.LookupEnv(key); ok {
			return value
		}
		return fallback
	}

	timeoutSeconds, err := strconv.Atoi(getEnvDefault("SIGNALING_TIMEOUT_SECONDS", "10"))
	if err != nil {
		log.Fatalf("Error: SIGNALING_TIMEOUT_SECONDS must be an integer: %v", err)
	}

	cfg := Config{
		DBName:        getEnv("DB_NAME"),
		MigrationsDir: "./migrations",
		Slack: SlackConfig{
			Token:         getEnv("SLACK_BOT_TOKEN"),
			ChannelID:     getEnv("SLACK_CHANNEL_ID"),
			SigningSecret: getEnv("SLACK_SIGNING_SECRET"),
		},
		Port: getEnv("PORT"),
		Turso: TursoConfig{
			PrimaryURL: getEnv("TURSO_PRIMARY_URL"),
			AuthToken:  getEnv("TURSO_AUTH_TOKEN"),
		},
		Inngest: InngestConfig{
			AppID:      getEnvDefault("INNGEST_APP_ID", "clubsync"),
			SigningKey: getEnvDefault("INNGEST_SIGNING_KEY", ""),
			EventKey:   getEnvDefault("INNGEST_EVENT_KEY", ""),
		},
		ProjectID: getEnv("GCP_PROJECT"),
		Signaling: SignalingConfig{
			STUNServers:             strings.Split(getEnvDefault("STUN_SERVERS", "stun:stun.l.google.com:19302"), ","),
			HandshakeTimeoutSeconds: timeoutSeconds,
		},
	}
	return cfg
}
