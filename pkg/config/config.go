package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIBaseURL     string        `envconfig:"API_BASE_URL" default:"http://localhost:8080/api"`
	SocketURL      string        `envconfig:"SOCKET_URL" default:"ws://localhost:8080/ws"`
	Environment    string        `envconfig:"ENVIRONMENT" default:"development"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"10s"`
	TypingIdle     time.Duration `envconfig:"TYPING_IDLE" default:"3s"`
	TypingExpiry   time.Duration `envconfig:"TYPING_EXPIRY" default:"10s"`
	HistoryLimit   int           `envconfig:"HISTORY_LIMIT" default:"50"`
}

func Load() (*Config, error) {
	godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to process env config: %w", err)
	}

	return &cfg, nil
}
