package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is read from the environment at startup.
type Config struct {
	// Addr binds the local API; keep it on loopback, the API carries no
	// authentication.
	Addr        string        `env:"ADDR" envDefault:"127.0.0.1:8787"`
	DBPath      string        `env:"DB_PATH" envDefault:"ffe_pre_engage.sqlite"`
	LogDir      string        `env:"LOG_DIR" envDefault:"logs"`
	UserAgent   string        `env:"USER_AGENT" envDefault:"FFE Watcher - pre-engagement assisted"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" envDefault:"15s"`
	// WebhookURL receives alert JSON when set; empty disables the sink.
	WebhookURL string `env:"WEBHOOK_URL"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}
