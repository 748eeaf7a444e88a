// Package config loads service settings from an optional YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"fleetwatch/internal/monitor"
	"fleetwatch/internal/notify"
)

// Config holds the service configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Gateway GatewayConfig `yaml:"gateway"`
	Feed    FeedConfig    `yaml:"feed"`
	Usage   UsageConfig   `yaml:"usage"`
	Notify  NotifyConfig  `yaml:"notify"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	DBPath      string   `yaml:"db_path"`
	CORSOrigins []string `yaml:"cors_origins"`
	RateLimit   int      `yaml:"rate_limit"` // requests per minute per client, 0 disables
}

type GatewayConfig struct {
	URL          string        `yaml:"url"`
	Token        string        `yaml:"token"`
	PollInterval time.Duration `yaml:"poll_interval"`
	CallTimeout  time.Duration `yaml:"call_timeout"`
}

type FeedConfig struct {
	// StreamURL is the SSE endpoint the live feed reads. Empty means this
	// service's own /api/events/stream.
	StreamURL      string        `yaml:"stream_url"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	Capacity       int           `yaml:"capacity"`
}

type UsageConfig struct {
	Timezone   string          `yaml:"timezone"`
	ContextCap int64           `yaml:"context_cap"`
	Pricing    monitor.Pricing `yaml:"pricing"`
}

type NotifyConfig struct {
	Targets []notify.Target `yaml:"targets"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:      "9090",
			DBPath:    "fleetwatch.db",
			RateLimit: 300,
		},
		Gateway: GatewayConfig{
			URL:          "ws://127.0.0.1:18789",
			PollInterval: 10 * time.Second,
			CallTimeout:  10 * time.Second,
		},
		Feed: FeedConfig{
			ReconnectDelay: 5 * time.Second,
			Capacity:       50,
		},
		Usage: UsageConfig{
			Timezone:   monitor.DefaultTimezone,
			ContextCap: 128_000,
			Pricing:    monitor.DefaultPricing,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// environment overrides and validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.DBPath = getEnv("DB_PATH", c.Server.DBPath)
	c.Gateway.URL = getEnv("OPENCLAW_GATEWAY_URL", c.Gateway.URL)
	c.Gateway.Token = getEnv("OPENCLAW_GATEWAY_TOKEN", c.Gateway.Token)
	c.Feed.StreamURL = getEnv("FEED_STREAM_URL", c.Feed.StreamURL)
	c.Usage.Timezone = getEnv("MONITOR_TIMEZONE", c.Usage.Timezone)

	var err error
	if c.Gateway.PollInterval, err = getDuration("POLL_INTERVAL", c.Gateway.PollInterval); err != nil {
		return err
	}
	if c.Feed.ReconnectDelay, err = getDuration("FEED_RECONNECT_DELAY", c.Feed.ReconnectDelay); err != nil {
		return err
	}
	if c.Usage.ContextCap, err = getInt("CONTEXT_CAP", c.Usage.ContextCap); err != nil {
		return err
	}

	// A single Shoutrrr URL can be given without a config file.
	if u := os.Getenv("NOTIFY_URL"); u != "" {
		c.Notify.Targets = append(c.Notify.Targets, notify.Target{Name: "env", URL: u})
	}
	return nil
}

// Validate rejects configurations the service cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server port is required"))
	}
	if c.Gateway.URL == "" {
		errs = append(errs, errors.New("gateway url is required"))
	}
	if c.Gateway.PollInterval <= 0 {
		errs = append(errs, errors.New("poll interval must be positive"))
	}
	if c.Feed.ReconnectDelay <= 0 {
		errs = append(errs, errors.New("feed reconnect delay must be positive"))
	}
	if c.Feed.Capacity <= 0 {
		errs = append(errs, errors.New("feed capacity must be positive"))
	}
	if c.Usage.ContextCap <= 0 {
		errs = append(errs, errors.New("context cap must be positive"))
	}
	seen := make(map[string]bool)
	for _, t := range c.Notify.Targets {
		if err := t.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[t.Name] {
			errs = append(errs, fmt.Errorf("duplicate notification target %q", t.Name))
		}
		seen[t.Name] = true
	}
	return errors.Join(errs...)
}

// StreamURL returns the live feed endpoint, defaulting to this service.
func (c *Config) StreamURL() string {
	if c.Feed.StreamURL != "" {
		return c.Feed.StreamURL
	}
	return "http://127.0.0.1:" + c.Server.Port + "/api/events/stream"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, fallback int64) (int64, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
