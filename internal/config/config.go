// Package config loads the service configuration from YAML and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"IndexSentinel/internal/analyzer"
	"IndexSentinel/internal/collector"
	"IndexSentinel/internal/market"
	"IndexSentinel/internal/tracker"
)

// Config holds all application configuration.
type Config struct {
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	DataSource struct {
		// Provider is yahoo, bridge or mock.
		Provider   string  `yaml:"provider"`
		BaseURL    string  `yaml:"base_url"`
		APIKey     string  `yaml:"api_key"`
		Interval   string  `yaml:"interval"`
		Bars       int     `yaml:"bars"`
		RatePerSec float64 `yaml:"rate_per_sec"`
		Burst      int     `yaml:"burst"`
		Breadth    bool    `yaml:"breadth"`
	} `yaml:"data_source"`
	Indices  []string `yaml:"indices"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron"`
		ResetCron   string `yaml:"reset_cron"`
		ExpiryCron  string `yaml:"expiry_cron"`
	} `yaml:"schedule"`
	Analyzer analyzer.Config `yaml:"analyzer"`
	Tracker  tracker.Config  `yaml:"tracker"`
	Database struct {
		SQLitePath  string `yaml:"sqlite_path"`
		PostgresURL string `yaml:"postgres_url"`
	} `yaml:"database"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Feed struct {
		Addr string `yaml:"addr"`
	} `yaml:"feed"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Default returns the configuration used for every key the file leaves out.
func Default() *Config {
	cfg := &Config{
		Analyzer: analyzer.DefaultConfig(),
		Tracker:  tracker.DefaultConfig(),
	}
	opts := collector.DefaultOptions()
	cfg.DataSource.Provider = "yahoo"
	cfg.DataSource.Interval = opts.Interval
	cfg.DataSource.Bars = opts.Bars
	cfg.DataSource.RatePerSec = opts.RatePerSec
	cfg.DataSource.Burst = opts.Burst
	cfg.DataSource.Breadth = true
	cfg.Indices = market.Names()
	cfg.Schedule.RefreshCron = "@every 30s"
	cfg.Schedule.ResetCron = "0 0 8 * * 1-5"
	cfg.Schedule.ExpiryCron = "0 * * * * *"
	cfg.Tracker.StatePath = "data/tracker_state.json"
	cfg.Database.SQLitePath = "data/index_sentinel.db"
	cfg.Redis.Prefix = "sentinel"
	cfg.Log.Level = "info"
	return cfg
}

// Load reads config from a YAML file, then applies environment variable overrides.
// A missing file yields the defaults; unknown keys are rejected.
func Load(path string) (*Config, error) {
	cfg := Default()

	f, err := os.Open(path)
	switch {
	case err == nil:
		defer f.Close()
		if err := Decode(f, cfg); err != nil {
			return nil, err
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg.applyEnv(os.Getenv)
	cfg.applyDefaults()
	return cfg, nil
}

// Decode strictly decodes YAML from r onto cfg.
func Decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse config: %w", err)
	}
	return nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set("TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken)
	set("TELEGRAM_CHAT_ID", &c.Telegram.ChatID)
	set("BRIDGE_API_KEY", &c.DataSource.APIKey)
	set("HTTPS_PROXY", &c.Proxy)
	set("SQLITE_PATH", &c.Database.SQLitePath)
	set("DATABASE_URL", &c.Database.PostgresURL)
	set("REDIS_ADDR", &c.Redis.Addr)
	set("FEED_ADDR", &c.Feed.Addr)
	set("LOG_LEVEL", &c.Log.Level)
	if v := getenv("BRIDGE_BASE_URL"); v != "" {
		c.DataSource.BaseURL = v
		c.DataSource.Provider = "bridge"
	}
	if v := getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = n
		}
	}
	if v := getenv("INDICES"); v != "" {
		c.Indices = strings.Split(v, ",")
	}
}

func (c *Config) applyDefaults() {
	for i, ix := range c.Indices {
		c.Indices[i] = strings.ToUpper(strings.TrimSpace(ix))
	}
	if len(c.Indices) == 0 {
		c.Indices = market.Names()
	}
	c.DataSource.Provider = strings.ToLower(c.DataSource.Provider)
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "yahoo"
	}
}

// Validate checks required fields, cron specs and every stage configuration.
func (c *Config) Validate() error {
	var errs []error
	switch c.DataSource.Provider {
	case "yahoo", "mock":
	case "bridge":
		if c.DataSource.BaseURL == "" {
			errs = append(errs, fmt.Errorf("data_source.base_url is required for the bridge provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("data_source.provider %q must be yahoo, bridge or mock", c.DataSource.Provider))
	}
	if _, _, err := collector.ParseInterval(c.DataSource.Interval); err != nil {
		errs = append(errs, fmt.Errorf("data_source.interval: %w", err))
	}
	if c.DataSource.Bars <= 0 {
		errs = append(errs, fmt.Errorf("data_source.bars must be positive"))
	}
	if c.DataSource.RatePerSec <= 0 || c.DataSource.Burst <= 0 {
		errs = append(errs, fmt.Errorf("data_source.rate_per_sec and burst must be positive"))
	}
	for _, ix := range c.Indices {
		if _, err := market.Lookup(ix); err != nil {
			errs = append(errs, fmt.Errorf("indices: %w", err))
		}
	}
	if (c.Telegram.BotToken == "") != (c.Telegram.ChatID == "") {
		errs = append(errs, fmt.Errorf("telegram.bot_token and telegram.chat_id must be set together"))
	}
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"schedule.refresh_cron": c.Schedule.RefreshCron,
		"schedule.reset_cron":   c.Schedule.ResetCron,
		"schedule.expiry_cron":  c.Schedule.ExpiryCron,
	} {
		if _, err := parser.Parse(spec); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	if _, err := logrus.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	errs = append(errs, c.Analyzer.Validate(), c.Tracker.Validate())
	return errors.Join(errs...)
}
