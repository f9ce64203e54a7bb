package main

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

type serverConfig struct {
	HTTPAddr       string `env:"HTTP_ADDR" envDefault:":8080"`
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite3"`
	DatabaseDSN    string `env:"DATABASE_DSN" envDefault:"file:identity.db?_foreign_keys=on&_busy_timeout=5000"`
	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	Debug          bool   `env:"DEBUG" envDefault:"false"`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	MailFrom     string `env:"MAIL_FROM" envDefault:"no-reply@localhost"`
}

func loadServerConfig() (*serverConfig, error) {
	var cfg serverConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}

	switch cfg.DatabaseDriver {
	case "sqlite3", "postgres":
	default:
		return nil, fmt.Errorf("DATABASE_DRIVER must be sqlite3 or postgres, got %q", cfg.DatabaseDriver)
	}

	return &cfg, nil
}
