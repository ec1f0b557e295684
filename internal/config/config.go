package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	HTTPAddr    string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath      string     `env:"DB_PATH" envDefault:"data/ecoquest.db"`
	Store       string     `env:"STORE" envDefault:"sqlite"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`
	SPADir      string     `env:"SPA_DIR" envDefault:"../web/dist"`
	CORSOrigins []string   `env:"CORS_ORIGINS" envDefault:"*" envSeparator:","`

	RedisURL string `env:"REDIS_URL"`

	GeocodeURL      string        `env:"GEOCODE_URL" envDefault:"https://nominatim.openstreetmap.org"`
	GeocodeTimeout  time.Duration `env:"GEOCODE_TIMEOUT" envDefault:"5s"`
	GeocodeCacheTTL time.Duration `env:"GEOCODE_CACHE_TTL" envDefault:"24h"`

	AIURL              string        `env:"AI_URL"`
	AIAPIKey           string        `env:"AI_API_KEY"`
	AIModel            string        `env:"AI_MODEL" envDefault:"gpt-4o-mini"`
	AITimeout          time.Duration `env:"AI_TIMEOUT" envDefault:"30s"`
	AIMaxRetries       uint64        `env:"AI_MAX_RETRIES" envDefault:"2"`
	AIFallbackTemplate bool          `env:"AI_FALLBACK_TEMPLATE" envDefault:"true"`

	EnforceSingleActive bool `env:"ENFORCE_SINGLE_ACTIVE" envDefault:"true"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	switch cfg.Store {
	case "sqlite", "memory":
	default:
		return nil, fmt.Errorf("STORE must be sqlite or memory, got %q", cfg.Store)
	}
	return &cfg, nil
}
