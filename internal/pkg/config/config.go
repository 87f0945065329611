package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Postgres Postgres `yaml:"postgres"`
	Redis    Redis    `yaml:"redis"`
	Proxy    Proxy    `yaml:"proxy"`
	Provider Provider `yaml:"provider"`
	Pipeline Pipeline `yaml:"pipeline"`
	Health   Health   `yaml:"health"`
	Notify   Notify   `yaml:"notify"`
	Logging  Logging  `yaml:"logging"`
}

type Postgres struct {
	DSN string `yaml:"dsn"`
}

type Redis struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // payload cache TTL (default 1h)
}

type Proxy struct {
	ListFile string `yaml:"list_file"` // newline-delimited proxy entries
	ListURL  string `yaml:"list_url"`  // remote list, same line format
	URL      string `yaml:"url"`       // single proxy, last resort before env
}

type Provider struct {
	BaseURL   string        `yaml:"base_url"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"` // per-request; default 10s
}

type Pipeline struct {
	Tournaments    []string      `yaml:"tournaments"`
	DaysBack       int           `yaml:"days_back"`       // discover window (default 7)
	Concurrency    int           `yaml:"concurrency"`     // match fan-out cap (default 5)
	ShotLine       float64       `yaml:"shot_line"`       // hit-rate line (default 1.5)
	FormWindow     int           `yaml:"form_window"`     // matches per player in bridge (default 10)
	BrowserTimeout time.Duration `yaml:"browser_timeout"` // chromedp fallback (default 60s)
}

type Health struct {
	Enabled           bool          `yaml:"enabled"`
	Addr              string        `yaml:"addr"`
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"`
}

type Notify struct {
	TelegramBotToken string `yaml:"telegram_bot_token"`
	TelegramChatID   int64  `yaml:"telegram_chat_id"`
}

type Logging struct {
	Level string `yaml:"level"` // DEBUG, INFO, WARN, ERROR
}

func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyEnvAndDefaults()
	return &config, nil
}

// applyEnvAndDefaults lets deployments override secrets via env so they are
// not committed into configs, and fills defaults for optional knobs.
func (c *Config) applyEnvAndDefaults() {
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		c.Notify.TelegramBotToken = v
	}
	if c.Redis.TTL <= 0 {
		c.Redis.TTL = time.Hour
	}
	if c.Provider.Timeout <= 0 {
		c.Provider.Timeout = 10 * time.Second
	}
	if c.Provider.UserAgent == "" {
		c.Provider.UserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/142.0.0.0 Safari/537.36"
	}
	if c.Pipeline.Concurrency <= 0 {
		c.Pipeline.Concurrency = 5
	}
	if c.Pipeline.DaysBack <= 0 {
		c.Pipeline.DaysBack = 7
	}
	if c.Pipeline.ShotLine <= 0 {
		c.Pipeline.ShotLine = 1.5
	}
	if c.Pipeline.FormWindow <= 0 {
		c.Pipeline.FormWindow = 10
	}
	if c.Pipeline.BrowserTimeout <= 0 {
		c.Pipeline.BrowserTimeout = 60 * time.Second
	}
	if c.Health.ReadHeaderTimeout <= 0 {
		c.Health.ReadHeaderTimeout = 5 * time.Second
	}
}
