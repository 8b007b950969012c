package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/robfig/cron/v3"
)

type Config struct {
	TelegramBot TelegramBot
	BracketAPI  BracketAPI
	Export      Export
	Server      Server
}

type TelegramBot struct {
	Token  string `envconfig:"TELEGRAM_TOKEN"`
	ChatID int64  `envconfig:"CHAT_ID"`
}

// Enabled reports whether a bot token was supplied.
func (t TelegramBot) Enabled() bool {
	return t.Token != ""
}

type BracketAPI struct {
	BaseURL       string        `envconfig:"BRACKETS_API_URL" required:"true"`
	TournamentID  int           `envconfig:"TOURNAMENT_ID" default:"1"`
	Year          int           `envconfig:"TOURNAMENT_YEAR" default:"2025"`
	Timeout       time.Duration `envconfig:"API_TIMEOUT" default:"30s"`
	GenerateCount int           `envconfig:"GENERATE_COUNT" default:"200"`
}

type Export struct {
	Dir      string `envconfig:"EXPORT_DIR" default:"exports"`
	Cron     string `envconfig:"EXPORT_CRON" default:"0 8 * * *"`
	Timezone string `envconfig:"TIMEZONE" default:"America/Chicago"`
}

type Server struct {
	Addr     string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
}

func New() (*Config, error) {
	var c Config
	err := envconfig.Process("", &c)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) Validate() error {
	u, err := url.Parse(c.BracketAPI.BaseURL)
	if err != nil {
		return fmt.Errorf("invalid BRACKETS_API_URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid BRACKETS_API_URL %q: scheme must be http or https", c.BracketAPI.BaseURL)
	}
	if c.BracketAPI.TournamentID <= 0 {
		return fmt.Errorf("invalid TOURNAMENT_ID: %d", c.BracketAPI.TournamentID)
	}
	if c.BracketAPI.GenerateCount <= 0 {
		return fmt.Errorf("invalid GENERATE_COUNT: %d", c.BracketAPI.GenerateCount)
	}
	if _, err := cron.ParseStandard(c.Export.Cron); err != nil {
		return fmt.Errorf("invalid EXPORT_CRON %q: %w", c.Export.Cron, err)
	}
	if c.TelegramBot.Enabled() && c.TelegramBot.ChatID == 0 {
		return fmt.Errorf("CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	return nil
}
