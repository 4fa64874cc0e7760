package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ProviderOpenTDB  = "opentdb"
	ProviderStatic   = "static"
	ProviderPostgres = "postgres"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level       string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
		Development bool   `yaml:"development"`
	} `yaml:"log"`
	Quiz struct {
		Amount          int    `yaml:"amount" validate:"min=1,max=50"`
		QuestionSeconds int    `yaml:"question_seconds" validate:"min=1"`
		Category        int    `yaml:"category" validate:"min=0"`
		Difficulty      string `yaml:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	} `yaml:"quiz"`
	Provider struct {
		Kind     string `yaml:"kind" validate:"oneof=opentdb static postgres"`
		BaseURL  string `yaml:"base_url" validate:"omitempty,url"`
		Timeout  string `yaml:"timeout"`
		UseToken bool   `yaml:"use_token"`
		PoolTTL  string `yaml:"pool_ttl"`
	} `yaml:"provider"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
}

var validate = validator.New()

// Default returns a config that plays ten OpenTDB questions at 30 seconds each.
func Default() Config {
	cfg := Config{}
	cfg.Server.Port = "8080"
	cfg.Log.Level = "info"
	cfg.Quiz.Amount = 10
	cfg.Quiz.QuestionSeconds = 30
	cfg.Provider.Kind = ProviderOpenTDB
	cfg.Provider.BaseURL = "https://opentdb.com"
	cfg.Provider.Timeout = "10s"
	cfg.Provider.PoolTTL = "10m"
	cfg.Redis.TTL = "30m"
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file keeps
// the defaults. A .env file in the working directory is applied first so
// CONFIG_PATH and PORT can live there.
func Load(path string) (Config, error) {
	if err := LoadEnv(); err != nil {
		return Config{}, err
	}
	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return cfg, err
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadEnv applies .env when present; existing variables win.
func LoadEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Provider.Kind == ProviderPostgres && c.Postgres.URL == "" {
		return errors.New("invalid config: provider postgres needs postgres.url")
	}
	return nil
}

// CategoryID is the provider category as sent on the wire; "" means any.
func (c Config) CategoryID() string {
	if c.Quiz.Category <= 0 {
		return ""
	}
	return fmt.Sprint(c.Quiz.Category)
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
