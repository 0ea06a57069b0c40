package config

import "time"

const (
	// PostgreSQL pool
	MinPoolConns = 1

	// Startup and migration budget
	ConnectTimeout = 30 * time.Second

	// Telegram limits
	MaxTelegramMessageLen = 4096

	// Telegram request timeout
	NotifyTimeout = 10 * time.Second
)
