package config

import (
	"os"
	"strconv"
	"time"
)

const (
	// WebSocket tuning, shared by the widget and console transports.
	WriteWait      = 10 * time.Second
	PongWait       = 60 * time.Second
	PingPeriod     = (PongWait * 9) / 10
	MaxMessageSize = 4096
	SendBufferSize = 64

	// StoreName appears in the follow-up emails.
	StoreName = "Brewhaus Coffee"
)

// Settings are the env-backed knobs read once at startup. Empty DatabaseDSN
// means the realtime backend is unconfigured and the server runs degraded.
type Settings struct {
	HTTPAddr      string
	DatabaseDSN   string
	RedisAddr     string
	RedisPassword string
	JWTSecret     string

	TelegramToken  string
	TelegramChatID int64
}

// FromEnv reads settings from the environment (a .env file is loaded by the
// entrypoint before this runs).
func FromEnv() Settings {
	s := Settings{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		DatabaseDSN:   os.Getenv("DATABASE_DSN"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		TelegramToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
	}
	if raw := os.Getenv("TELEGRAM_STAFF_CHAT_ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			s.TelegramChatID = id
		}
	}
	return s
}

// Configured reports whether the realtime backend can be reached at all.
func (s Settings) Configured() bool { return s.DatabaseDSN != "" }

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
