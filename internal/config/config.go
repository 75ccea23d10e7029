// Package config provides YAML-based configuration loading for Heliograph.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectFileName is the per-project config file looked up in the working
// directory before falling back to the user-level config.
const ProjectFileName = ".heliograph.yaml"

// Config is the top-level Heliograph configuration.
type Config struct {
	// Platform selects the chat adapter: "telegram", "discord" or "slack".
	Platform string `yaml:"platform"`
	// StateDir overrides the session state root (default ~/.heliograph).
	StateDir string `yaml:"state_dir"`

	Telegram  TelegramConfig  `yaml:"telegram"`
	Discord   DiscordConfig   `yaml:"discord"`
	Slack     SlackConfig     `yaml:"slack"`
	History   HistoryConfig   `yaml:"history"`
	Digest    DigestConfig    `yaml:"digest"`
	Dashboard DashboardConfig `yaml:"dashboard"`
}

// TelegramConfig holds Telegram Bot API credentials. OperatorID is the
// numeric Telegram user ID of the single authorized operator.
type TelegramConfig struct {
	BotToken   string `yaml:"bot_token"`
	OperatorID string `yaml:"operator_id"`
}

// DiscordConfig holds Discord bot credentials.
type DiscordConfig struct {
	BotToken   string `yaml:"bot_token"`
	ChannelID  string `yaml:"channel_id"`
	OperatorID string `yaml:"operator_id"`
}

// SlackConfig holds Slack Socket Mode credentials.
type SlackConfig struct {
	AppToken   string `yaml:"app_token"`
	BotToken   string `yaml:"bot_token"`
	ChannelID  string `yaml:"channel_id"`
	OperatorID string `yaml:"operator_id"`
}

// HistoryConfig controls the SQLite relay history.
type HistoryConfig struct {
	Enabled *bool  `yaml:"enabled"` // default true
	Path    string `yaml:"path"`    // default <state_dir>/heliograph.db
}

// DigestConfig controls the daily activity digest sent to the operator.
type DigestConfig struct {
	Enabled bool   `yaml:"enabled"`
	Cron    string `yaml:"cron"` // 5-field cron expression
}

// DashboardConfig controls the local status dashboard.
type DashboardConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadDefault resolves config for a project directory: the project-local
// .heliograph.yaml wins, then <stateRoot>/config.yaml. A completely absent
// config is not an error — it yields a Config with no credentials, which
// disables remote forwarding. Environment overrides are applied last.
func LoadDefault(projectDir, stateRoot string) (*Config, error) {
	paths := []string{
		filepath.Join(projectDir, ProjectFileName),
		filepath.Join(stateRoot, "config.yaml"),
	}
	for _, p := range paths {
		cfg, err := Load(p)
		if err == nil {
			cfg.applyEnv()
			return cfg, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Platform == "" {
		c.Platform = "telegram"
	}
	if c.Digest.Cron == "" {
		c.Digest.Cron = "0 9 * * *"
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = "127.0.0.1:7667"
	}
}

// applyEnv applies environment variable overrides for Telegram credentials.
// TELEGRAM_BOT_TOKEN / TELEGRAM_USER_ID keep working alongside the
// HELIOGRAPH_-prefixed names.
func (c *Config) applyEnv() {
	for _, key := range []string{"HELIOGRAPH_BOT_TOKEN", "TELEGRAM_BOT_TOKEN"} {
		if v := os.Getenv(key); v != "" {
			c.Telegram.BotToken = v
			break
		}
	}
	for _, key := range []string{"HELIOGRAPH_OPERATOR_ID", "TELEGRAM_USER_ID"} {
		if v := os.Getenv(key); v != "" {
			c.Telegram.OperatorID = v
			break
		}
	}
}

// validate checks consistency. Missing credentials are not an error — that
// is the forwarding-disabled mode — but an unknown platform is.
func (c *Config) validate() error {
	var errs []string
	switch c.Platform {
	case "telegram", "discord", "slack":
	default:
		errs = append(errs, fmt.Sprintf("unknown platform %q", c.Platform))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Forwarding reports whether remote forwarding is configured: the active
// platform has both credentials and an authorized operator identity.
func (c *Config) Forwarding() bool {
	return c.OperatorID() != ""
}

// OperatorID returns the authorized operator identity for the active
// platform, or "" when forwarding is not configured.
func (c *Config) OperatorID() string {
	switch c.Platform {
	case "telegram":
		if c.Telegram.BotToken != "" {
			return c.Telegram.OperatorID
		}
	case "discord":
		if c.Discord.BotToken != "" {
			return c.Discord.OperatorID
		}
	case "slack":
		if c.Slack.BotToken != "" && c.Slack.AppToken != "" {
			return c.Slack.OperatorID
		}
	}
	return ""
}

// HistoryEnabled reports whether the SQLite history store should be used.
func (c *Config) HistoryEnabled() bool {
	return c.History.Enabled == nil || *c.History.Enabled
}

// HistoryPath returns the history database path for the given state root.
func (c *Config) HistoryPath(stateRoot string) string {
	if c.History.Path != "" {
		return c.History.Path
	}
	return filepath.Join(stateRoot, "heliograph.db")
}
