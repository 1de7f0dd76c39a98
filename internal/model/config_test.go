package model

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_MissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), cfg)
}

func TestLoadConfig_ReadsFileAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
agent:
  provider: remote
  endpoint: http://127.0.0.1:8787/api/agent
reminders:
  snooze_minutes: 15
`), 0o644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, ProviderRemote, cfg.Agent.Provider)
	assert.Equal(t, "http://127.0.0.1:8787/api/agent", cfg.Agent.Endpoint)
	assert.Equal(t, 15*time.Minute, cfg.Reminders.SnoozeOffset())
	assert.Equal(t, 120*time.Second, cfg.Reminders.PollInterval())
	assert.Equal(t, "127.0.0.1:8787", cfg.Server.Addr)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("reminders:\n  poll_interval_sec: 30\n"), 0o644))
	t.Setenv("REMINDME_REMINDERS_POLL_INTERVAL_SEC", "45")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.Reminders.PollInterval())
}

func TestLoadConfig_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("agent: [unclosed"), 0o644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.Agent.Provider = ProviderOllama
	cfg.Reminders.SnoozeMinutes = 5
	cfg.Reminders.Speech = false

	require.NoError(t, SaveConfig(path, cfg))

	got, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ProviderOllama, got.Agent.Provider)
	assert.Equal(t, 5, got.Reminders.SnoozeMinutes)
	assert.False(t, got.Reminders.Speech)
}

func TestDurationsFallBackWhenUnset(t *testing.T) {
	assert.Equal(t, 20*time.Second, AgentConfig{}.Timeout())
	assert.Equal(t, 120*time.Second, ReminderConfig{}.PollInterval())
	assert.Equal(t, 10*time.Minute, ReminderConfig{}.SnoozeOffset())
}
