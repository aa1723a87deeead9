package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const defaultAPIBaseURL = "https://newsapi.org/v2"

// Config holds runtime settings for the reader.
type Config struct {
	APIKey            string        `env:"NEWS_API_KEY"`
	APIBaseURL        string        `env:"NEWS_API_BASE_URL" env-default:"https://newsapi.org/v2"`
	Country           string        `env:"NEWS_COUNTRY" env-default:"us"`
	PageSize          int           `env:"NEWS_PAGE_SIZE" env-default:"20"`
	RequestsPerSecond float64       `env:"NEWS_REQUESTS_PER_SECOND" env-default:"2"`
	Categories        []string      `env:"NEWS_CATEGORIES" env-separator:"," env-default:"business,entertainment,general,health,science,sports,technology"`
	DBPath            string        `env:"NEWS_DB_PATH" env-default:"newsreader.db"`
	ProbeURL          string        `env:"NEWS_PROBE_URL" env-default:"https://newsapi.org"`
	ProbeInterval     time.Duration `env:"NEWS_PROBE_INTERVAL" env-default:"15s"`
	LogFile           string        `env:"NEWS_LOG_FILE" env-default:"newsreader.log"`
	LogLevel          string        `env:"NEWS_LOG_LEVEL" env-default:"info"`
}

func LoadFromEnv() (Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	for i, c := range cfg.Categories {
		cfg.Categories[i] = strings.ToLower(strings.TrimSpace(c))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return errors.New("NEWS_API_KEY is required")
	}
	if c.APIBaseURL == "" {
		return errors.New("APIBaseURL is required")
	}
	if strings.HasSuffix(c.APIBaseURL, "/") {
		return fmt.Errorf("APIBaseURL must not end with '/': %s", c.APIBaseURL)
	}
	if c.PageSize < 1 || c.PageSize > 100 {
		return fmt.Errorf("PageSize must be between 1 and 100: %d", c.PageSize)
	}
	if c.RequestsPerSecond <= 0 {
		return fmt.Errorf("RequestsPerSecond must be positive: %v", c.RequestsPerSecond)
	}
	if c.DBPath == "" {
		return errors.New("DBPath is required")
	}
	if c.ProbeInterval < time.Second {
		return fmt.Errorf("ProbeInterval must be at least 1s: %s", c.ProbeInterval)
	}
	for _, category := range c.Categories {
		if category == "" {
			return errors.New("Categories must not contain empty names")
		}
	}
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return nil
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("LogLevel not recognised: %s", c.LogLevel)
	}
	return level, nil
}
