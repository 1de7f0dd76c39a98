package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Agent provider names accepted in AgentConfig.Provider.
const (
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
	ProviderRemote    = "remote"
)

// AgentConfig holds settings for the planning assistant.
type AgentConfig struct {
	// Provider selects the live backend: "anthropic", "ollama" or "remote".
	Provider string `mapstructure:"provider" yaml:"provider"`

	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`

	// Endpoint is the agent URL used by the "remote" provider
	// (e.g., http://localhost:8787/api/agent).
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// TimeoutSec bounds every assistant call.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// Timeout returns the configured call deadline.
func (c AgentConfig) Timeout() time.Duration {
	if c.TimeoutSec <= 0 {
		return 20 * time.Second
	}
	return time.Duration(c.TimeoutSec) * time.Second
}

// ReminderConfig holds settings for the overdue sweep and snoozing.
type ReminderConfig struct {
	PollIntervalSec int  `mapstructure:"poll_interval_sec" yaml:"poll_interval_sec"`
	SnoozeMinutes   int  `mapstructure:"snooze_minutes" yaml:"snooze_minutes"`
	Speech          bool `mapstructure:"speech" yaml:"speech"`
	Desktop         bool `mapstructure:"desktop" yaml:"desktop"`
}

// PollInterval returns the sweep cadence.
func (c ReminderConfig) PollInterval() time.Duration {
	if c.PollIntervalSec <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.PollIntervalSec) * time.Second
}

// SnoozeOffset returns how far a snooze pushes a task's due time.
func (c ReminderConfig) SnoozeOffset() time.Duration {
	if c.SnoozeMinutes <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(c.SnoozeMinutes) * time.Minute
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// ServerConfig holds settings for the agent HTTP endpoint.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme string `mapstructure:"theme" yaml:"theme"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Agent     AgentConfig    `mapstructure:"agent" yaml:"agent"`
	Reminders ReminderConfig `mapstructure:"reminders" yaml:"reminders"`
	Storage   StorageConfig  `mapstructure:"storage" yaml:"storage"`
	Server    ServerConfig   `mapstructure:"server" yaml:"server"`
	Display   DisplayConfig  `mapstructure:"display" yaml:"display"`
}

// configDir returns ~/.config/remindme, or the working directory when
// the home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "remindme")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/remindme/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// DefaultDBPath returns the default SQLite location.
func DefaultDBPath() string {
	return filepath.Join(configDir(), "remindme.db")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Agent: AgentConfig{
			Provider:   ProviderAnthropic,
			Model:      "claude-sonnet-4-20250514",
			MaxTokens:  1024,
			TimeoutSec: 20,
		},
		Reminders: ReminderConfig{
			PollIntervalSec: 120,
			SnoozeMinutes:   10,
			Speech:          true,
			Desktop:         true,
		},
		Storage: StorageConfig{
			DBPath: DefaultDBPath(),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
		Display: DisplayConfig{
			Theme: "default",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("agent.provider", def.Agent.Provider)
	v.SetDefault("agent.model", def.Agent.Model)
	v.SetDefault("agent.max_tokens", def.Agent.MaxTokens)
	v.SetDefault("agent.timeout_sec", def.Agent.TimeoutSec)
	v.SetDefault("reminders.poll_interval_sec", def.Reminders.PollIntervalSec)
	v.SetDefault("reminders.snooze_minutes", def.Reminders.SnoozeMinutes)
	v.SetDefault("reminders.speech", def.Reminders.Speech)
	v.SetDefault("reminders.desktop", def.Reminders.Desktop)
	v.SetDefault("storage.db_path", def.Storage.DBPath)
	v.SetDefault("server.addr", def.Server.Addr)
	v.SetDefault("display.theme", def.Display.Theme)

	v.SetEnvPrefix("REMINDME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Agent.Provider == "" {
		cfg.Agent.Provider = ProviderAnthropic
	}
	if cfg.Storage.DBPath == "" {
		cfg.Storage.DBPath = def.Storage.DBPath
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("agent", cfg.Agent)
	v.Set("reminders", cfg.Reminders)
	v.Set("storage", cfg.Storage)
	v.Set("server", cfg.Server)
	v.Set("display", cfg.Display)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
