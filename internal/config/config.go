package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port            int `yaml:"port"`
		ShutdownSeconds int `yaml:"shutdown_seconds"`
	} `yaml:"server"`

	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Address         string `yaml:"address"`
		Password        string `yaml:"password"`
		DB              int    `yaml:"db"`
		CacheTTLSeconds int    `yaml:"cache_ttl_seconds"`
	} `yaml:"redis"`

	GoogleCalendar struct {
		Enabled           bool    `yaml:"enabled"`
		ClientID          string  `yaml:"client_id"`
		ClientSecret      string  `yaml:"client_secret"`
		RefreshToken      string  `yaml:"refresh_token"`
		RequestsPerSecond float64 `yaml:"requests_per_second"`
		TimeoutSeconds    int     `yaml:"timeout_seconds"`
	} `yaml:"google_calendar"`

	Zoom struct {
		Enabled      bool   `yaml:"enabled"`
		AccountID    string `yaml:"account_id"`
		ClientID     string `yaml:"client_id"`
		ClientSecret string `yaml:"client_secret"`
	} `yaml:"zoom"`

	Monitoring struct {
		PrometheusEnabled bool `yaml:"prometheus_enabled"`
		PrometheusPort    int  `yaml:"prometheus_port"`
	} `yaml:"monitoring"`

	Slots struct {
		GranularityMinutes int `yaml:"granularity_minutes"`
	} `yaml:"slots"`

	// Admins holds privileged caller identities. Authorization policy
	// is configuration, never source.
	Admins []string `yaml:"admins"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Support ${ENV_VAR} placeholders in YAML config.
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.ShutdownSeconds <= 0 {
		cfg.Server.ShutdownSeconds = 10
	}
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/slotwise.db"
	}

	if err = os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// SlotGranularity returns the configured slot step.
func (c *Config) SlotGranularity() time.Duration {
	if c.Slots.GranularityMinutes <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(c.Slots.GranularityMinutes) * time.Minute
}

// CalendarTimeout bounds a single external calendar fetch.
func (c *Config) CalendarTimeout() time.Duration {
	if c.GoogleCalendar.TimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(c.GoogleCalendar.TimeoutSeconds) * time.Second
}

// RedisCacheTTL returns the busy-interval cache TTL; zero disables
// caching.
func (c *Config) RedisCacheTTL() time.Duration {
	if c.Redis.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(c.Redis.CacheTTLSeconds) * time.Second
}

// IsAdmin reports whether id is in the configured allow-list.
func (c *Config) IsAdmin(id string) bool {
	for _, a := range c.Admins {
		if a == id {
			return true
		}
	}
	return false
}
