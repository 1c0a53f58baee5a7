package store

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"eps-report/internal/valuation"
)

type Config struct {
	Database struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"database"`
	Universe struct {
		// Files are merged in order when no portfolio is given
		Files []string `yaml:"files" validate:"min=1,dive,required"`
	} `yaml:"universe"`
	Valuation valuation.Config `yaml:"valuation"`
	Prices    struct {
		TWSEURL        string `yaml:"twse_url" validate:"omitempty,url"`
		TPExURL        string `yaml:"tpex_url" validate:"omitempty,url"`
		TimeoutSeconds int    `yaml:"timeout_seconds" validate:"gte=1"`
	} `yaml:"prices"`
	State struct {
		Path string `yaml:"path" validate:"required"`
	} `yaml:"state"`
	Report struct {
		OutputDir string `yaml:"output_dir" validate:"required"`
		FontPath  string `yaml:"font_path"`
		FontName  string `yaml:"font_name"`
		XLSX      bool   `yaml:"xlsx"`
	} `yaml:"report"`
	History struct {
		Dir           string `yaml:"dir" validate:"required"`
		RetentionDays int    `yaml:"retention_days" validate:"gte=0"`
		Timezone      string `yaml:"timezone" validate:"required"`
	} `yaml:"history"`
	Telegram struct {
		APIURL        string `yaml:"api_url" validate:"required,url"`
		TokenEnv      string `yaml:"token_env" validate:"required"`
		ChatIDEnv     string `yaml:"chat_id_env" validate:"required"`
		MinIntervalMS int    `yaml:"min_interval_ms" validate:"gte=0"`
	} `yaml:"telegram"`
	EarningsCall struct {
		URL string `yaml:"url" validate:"required,url"`
	} `yaml:"earnings_call"`
	Yearly struct {
		TWSEURL    string `yaml:"twse_url" validate:"omitempty,url"`
		TPExURL    string `yaml:"tpex_url" validate:"omitempty,url"`
		TWSEFile   string `yaml:"twse_file" validate:"required"`
		TPExFile   string `yaml:"tpex_file" validate:"required"`
		IntervalMS int    `yaml:"interval_ms" validate:"gte=0"`
	} `yaml:"yearly"`
	// Schedule is a standard five-field cron expression; empty runs once
	Schedule string `yaml:"schedule"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	var c Config
	c.applyDefaults()
	return &c
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "stock_data.db"
	}
	if len(c.Universe.Files) == 0 {
		c.Universe.Files = []string{"twse.cfg", "otc.cfg"}
	}
	c.Valuation = c.Valuation.WithDefaults()
	if c.Prices.TimeoutSeconds == 0 {
		c.Prices.TimeoutSeconds = 30
	}
	if c.State.Path == "" {
		c.State.Path = "last_color.json"
	}
	if c.Report.OutputDir == "" {
		c.Report.OutputDir = "."
	}
	if c.Report.FontName == "" {
		c.Report.FontName = "NotoSansTC"
	}
	if c.Report.FontPath == "" {
		c.Report.FontPath = "NotoSansTC-Regular.ttf"
	}
	if c.History.Dir == "" {
		c.History.Dir = "logs"
	}
	if c.History.RetentionDays == 0 {
		c.History.RetentionDays = 7
	}
	if c.History.Timezone == "" {
		c.History.Timezone = "Asia/Taipei"
	}
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = "https://api.telegram.org"
	}
	if c.Telegram.TokenEnv == "" {
		c.Telegram.TokenEnv = "BOT_TOKEN"
	}
	if c.Telegram.ChatIDEnv == "" {
		c.Telegram.ChatIDEnv = "CHAT_ID"
	}
	if c.Telegram.MinIntervalMS == 0 {
		c.Telegram.MinIntervalMS = 1000
	}
	if c.EarningsCall.URL == "" {
		c.EarningsCall.URL = "https://tw.stock.yahoo.com/calendar/earnings-call"
	}
	if c.Yearly.TWSEFile == "" {
		c.Yearly.TWSEFile = "twse.cfg"
	}
	if c.Yearly.TPExFile == "" {
		c.Yearly.TPExFile = "otc.cfg"
	}
	if c.Yearly.IntervalMS == 0 {
		c.Yearly.IntervalMS = 3000
	}
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	if _, err := time.LoadLocation(c.History.Timezone); err != nil {
		return fmt.Errorf("invalid history.timezone '%s': %w", c.History.Timezone, err)
	}
	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid schedule '%s': %w", c.Schedule, err)
		}
	}
	return nil
}

// Location returns the timezone used for dating history files
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.History.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	c.applyDefaults()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

// LoadConfigOrDefault falls back to Default when the file does not exist
func LoadConfigOrDefault(path string) (*Config, error) {
	c, err := LoadConfig(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return c, err
}
