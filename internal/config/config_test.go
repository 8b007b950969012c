package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("BRACKETS_API_URL", "http://localhost:8000/api/v1")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1", cfg.BracketAPI.BaseURL)
	assert.Equal(t, 1, cfg.BracketAPI.TournamentID)
	assert.Equal(t, 2025, cfg.BracketAPI.Year)
	assert.Equal(t, 30*time.Second, cfg.BracketAPI.Timeout)
	assert.Equal(t, 200, cfg.BracketAPI.GenerateCount)
	assert.Equal(t, "exports", cfg.Export.Dir)
	assert.Equal(t, "0 8 * * *", cfg.Export.Cron)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.False(t, cfg.TelegramBot.Enabled())
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Setenv("BRACKETS_API_URL", "")

	_, err := New()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			BracketAPI: BracketAPI{BaseURL: "https://brackets.example.com/api/v1", TournamentID: 1, GenerateCount: 200},
			Export:     Export{Cron: "0 8 * * *"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "bad scheme", mutate: func(c *Config) { c.BracketAPI.BaseURL = "ftp://host" }, wantErr: true},
		{name: "zero tournament", mutate: func(c *Config) { c.BracketAPI.TournamentID = 0 }, wantErr: true},
		{name: "zero count", mutate: func(c *Config) { c.BracketAPI.GenerateCount = 0 }, wantErr: true},
		{name: "bad cron", mutate: func(c *Config) { c.Export.Cron = "every day" }, wantErr: true},
		{name: "token without chat", mutate: func(c *Config) { c.TelegramBot.Token = "abc" }, wantErr: true},
		{name: "token with chat", mutate: func(c *Config) {
			c.TelegramBot.Token = "abc"
			c.TelegramBot.ChatID = 42
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
