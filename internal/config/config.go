package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// Config holds all server settings, populated from the environment.
type Config struct {
	Port        string   `env:"CHORESPEC_PORT" envDefault:"8000"`
	DBPath      string   `env:"CHORESPEC_DB_PATH" envDefault:"chorespec.db"`
	LogLevel    string   `env:"CHORESPEC_LOG_LEVEL" envDefault:"info"`
	CORSOrigins []string `env:"CHORESPEC_CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:5174,http://localhost:3000"`
	// Hour of day (local time) at which the scheduled daily reset runs.
	ResetHour int `env:"CHORESPEC_RESET_HOUR" envDefault:"0"`
}

// Load parses configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.ResetHour < 0 || cfg.ResetHour > 23 {
		return Config{}, fmt.Errorf("reset hour %d out of range", cfg.ResetHour)
	}
	return cfg, nil
}
