package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv     string `env:"APP_ENV" default:"development"`
	Port       string `env:"PORT" default:"5001"`
	LogLevel   string `env:"LOG_LEVEL" default:"info"`
	LogFormat  string `env:"LOG_FORMAT" default:"text"`
	APIBaseURL string `env:"EVENTMOBI_API_BASE_URL" default:"https://uapi.eventmobi.com"`

	// Public base URL registered as the webhook callback target.
	WebhookBaseURL string `env:"WEBHOOK_BASE_URL" default:"http://localhost:5001"`

	// Extra directory of .abc tunes served alongside the embedded ones.
	SongDir string `env:"SONG_DIR"`

	MaxClientsPerCollection int           `env:"MAX_CLIENTS_PER_COLLECTION" default:"50"`
	WebhookRateLimit        float64       `env:"WEBHOOK_RATE_LIMIT" default:"25"`
	UpstreamTimeout         time.Duration `env:"UPSTREAM_TIMEOUT" default:"30s"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	for name, value := range map[string]string{
		"EVENTMOBI_API_BASE_URL": cfg.APIBaseURL,
		"WEBHOOK_BASE_URL":       cfg.WebhookBaseURL,
	} {
		if _, err := url.ParseRequestURI(value); err != nil {
			return fmt.Errorf("%s must be a valid URL: %w", name, err)
		}
	}

	if cfg.MaxClientsPerCollection < 1 {
		return fmt.Errorf("MAX_CLIENTS_PER_COLLECTION must be at least 1")
	}
	if cfg.WebhookRateLimit <= 0 {
		return fmt.Errorf("WEBHOOK_RATE_LIMIT must be positive")
	}

	return nil
}
