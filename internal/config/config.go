// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	TelegramChatID   int64
	YouTubeAPIKey    string
	DatabasePath     string
	HTTPAddr         string
	LogLevel         string
	AllowedUsers     []int64
}

// Load reads configuration from environment variables. A .env file in the
// working directory is loaded first, if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	rawChat := os.Getenv("TELEGRAM_CHAT_ID")
	if rawChat == "" {
		return nil, fmt.Errorf("TELEGRAM_CHAT_ID is required")
	}
	chatID, err := strconv.ParseInt(rawChat, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID %q: %w", rawChat, err)
	}

	dbPath := os.Getenv("DATABASE_PATH")
	if dbPath == "" {
		dbPath = "./data/notifier.db"
	}

	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}

	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}

	var allowedUsers []int64
	if raw := os.Getenv("ALLOWED_USERS"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			uid, err := strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("invalid user ID %q in ALLOWED_USERS: %w", s, err)
			}
			allowedUsers = append(allowedUsers, uid)
		}
	}

	return &Config{
		TelegramBotToken: token,
		TelegramChatID:   chatID,
		YouTubeAPIKey:    os.Getenv("YOUTUBE_API_KEY"),
		DatabasePath:     dbPath,
		HTTPAddr:         httpAddr,
		LogLevel:         logLevel,
		AllowedUsers:     allowedUsers,
	}, nil
}

// IsUserAllowed checks whether a user ID is in the allow list.
// Returns true if the allow list is empty (all users permitted).
func (c *Config) IsUserAllowed(userID int64) bool {
	if len(c.AllowedUsers) == 0 {
		return true
	}
	for _, id := range c.AllowedUsers {
		if id == userID {
			return true
		}
	}
	return false
}
