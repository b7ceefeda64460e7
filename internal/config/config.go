package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"FundLens/internal/collector"
	"FundLens/internal/export"
	"FundLens/internal/model"
)

// Config holds all application configuration.
type Config struct {
	Tickers     []string                  `yaml:"tickers" validate:"required,min=1,unique,dive,required"`
	FocusTicker string                    `yaml:"focus_ticker"`
	Lookback    string                    `yaml:"lookback" validate:"required"`
	Funds       map[string]model.FundInfo `yaml:"funds"`
	DataSource  struct {
		Kind        string        `yaml:"kind" validate:"oneof=yahoo http mock"`
		BaseURL     string        `yaml:"base_url" validate:"omitempty,url"`
		APIKey      string        `yaml:"api_key"`
		Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
		MaxRetries  int           `yaml:"max_retries" validate:"gte=0,lte=10"`
		RetryDelay  time.Duration `yaml:"retry_delay" validate:"gte=0"`
		Concurrency int           `yaml:"concurrency" validate:"gte=1,lte=32"`
	} `yaml:"data_source"`
	Output struct {
		Dir        string `yaml:"dir" validate:"required"`
		FullFile   string `yaml:"full_file" validate:"required,nefield=LatestFile"`
		LatestFile string `yaml:"latest_file" validate:"required"`
	} `yaml:"output"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable overrides.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("TICKERS"); v != "" {
		cfg.Tickers = splitList(v)
	}
	if v := os.Getenv("LOOKBACK"); v != "" {
		cfg.Lookback = v
	}
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}
	if v := os.Getenv("DATA_SOURCE_KIND"); v != "" {
		cfg.DataSource.Kind = v
	}
	if v := os.Getenv("DATA_SOURCE_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("DATA_SOURCE_API_KEY"); v != "" {
		cfg.DataSource.APIKey = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("CRON_SCHEDULE"); v != "" {
		cfg.Schedule.Cron = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if len(cfg.Tickers) == 0 {
		cfg.Tickers = []string{"JNGTX", "FSPTX", "FXAIX", "FCNTX", "FBGRX"}
	}
	for i, t := range cfg.Tickers {
		cfg.Tickers[i] = strings.ToUpper(strings.TrimSpace(t))
	}
	cfg.FocusTicker = strings.ToUpper(strings.TrimSpace(cfg.FocusTicker))
	if cfg.FocusTicker == "" {
		cfg.FocusTicker = cfg.Tickers[0]
	}
	if cfg.Lookback == "" {
		cfg.Lookback = "3y"
	}
	if cfg.DataSource.Kind == "" {
		cfg.DataSource.Kind = "yahoo"
		if cfg.DataSource.BaseURL != "" {
			cfg.DataSource.Kind = "http"
		}
	}
	def := collector.DefaultOptions()
	if cfg.DataSource.Timeout == 0 {
		cfg.DataSource.Timeout = def.Timeout
	}
	if cfg.DataSource.RetryDelay == 0 {
		cfg.DataSource.RetryDelay = def.RetryDelay
	}
	if cfg.DataSource.Concurrency == 0 {
		cfg.DataSource.Concurrency = def.Concurrency
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "data"
	}
	if cfg.Output.FullFile == "" {
		cfg.Output.FullFile = "market_data.csv"
	}
	if cfg.Output.LatestFile == "" {
		cfg.Output.LatestFile = "market_data_latest.csv"
	}

	return cfg, nil
}

// Validate checks field constraints, the lookback syntax and that the focus
// ticker is one of the tickers.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.DataSource.Kind == "http" && c.DataSource.BaseURL == "" {
		return fmt.Errorf("invalid config: data_source.base_url is required for kind http")
	}
	if _, err := model.ParseLookback(c.Lookback); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	for _, t := range c.Tickers {
		if t == c.FocusTicker {
			return nil
		}
	}
	return fmt.Errorf("invalid config: focus_ticker %s is not in tickers", c.FocusTicker)
}

// LookbackPeriod returns the parsed lookback. Call Validate first.
func (c *Config) LookbackPeriod() model.Lookback {
	lb, _ := model.ParseLookback(c.Lookback)
	return lb
}

// FundTable returns the fund metadata keyed by upper-case symbol.
func (c *Config) FundTable() model.FundTable {
	table := make(model.FundTable, len(c.Funds))
	for sym, info := range c.Funds {
		sym = strings.ToUpper(sym)
		info.Symbol = sym
		table[sym] = info
	}
	return table
}

// CollectorOptions returns the per-ticker fetch options.
func (c *Config) CollectorOptions() collector.Options {
	return collector.Options{
		Timeout:     c.DataSource.Timeout,
		MaxRetries:  c.DataSource.MaxRetries,
		RetryDelay:  c.DataSource.RetryDelay,
		Concurrency: c.DataSource.Concurrency,
	}
}

// OutputFiles returns the export locations.
func (c *Config) OutputFiles() export.Files {
	return export.Files{Dir: c.Output.Dir, Full: c.Output.FullFile, Latest: c.Output.LatestFile}
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
