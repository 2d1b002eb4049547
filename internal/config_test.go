package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	pkgconfig "github.com/starford/helix/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenMode(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	require.NoError(t, cfg.Validate())
	require.True(t, cfg.AuthEnabled())

	cfg = AuthConfig{Mode: "token"}
	err := cfg.Validate()
	require.Error(t, err)
	require.True(t, strings.Contains(err.Error(), "token is empty"), err.Error())

	cfg = AuthConfig{Mode: "magic", Token: "x"}
	require.Error(t, cfg.Validate())
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	require.False(t, cfg.Google.Enabled())
	require.Equal(t, "UTC", cfg.User.Location().String())
}

func TestConfig_SectionErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"auth", func(c *Config) { c.Auth.Mode = "token" }, "token is empty"},
		{"port", func(c *Config) { c.App.HTTP.Port = 70000 }, "port"},
		{"sqlite", func(c *Config) { c.SQLite.Path = "" }, "path"},
		{"timezone", func(c *Config) { c.User.Timezone = "Mars/Olympus" }, "timezone"},
		{"work window", func(c *Config) { c.Calendar.WorkEnd = "08:00" }, "work_end"},
		{"buffer", func(c *Config) { c.Calendar.BufferMin = -1 }, "buffer_min"},
		{"google secret", func(c *Config) { c.Google.ClientID = "id" }, "client_secret"},
		{"cron", func(c *Config) { c.Scheduler.ReturnCron = "whenever" }, "cron"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConfig_LoadYAML(t *testing.T) {
	t.Setenv("HELIX_TEST_SECRET", "shh")
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  log_level: debug
user:
  timezone: Europe/Bucharest
calendar:
  work_start: "08:30"
  buffer_min: 15
google:
  client_id: abc.apps.googleusercontent.com
  client_secret: ${HELIX_TEST_SECRET}
scheduler:
  return_cron: "0 9,14 * * 1-5"
`), 0o600))

	cfg := NewDefaultConfig()
	require.NoError(t, pkgconfig.Load(path, cfg))
	require.Equal(t, "DEBUG", cfg.App.LogLevel.String())
	require.Equal(t, "Europe/Bucharest", cfg.User.Location().String())
	require.Equal(t, "shh", cfg.Google.ClientSecret)
	require.True(t, cfg.Google.Enabled())

	d := cfg.Calendar.Defaults()
	require.Equal(t, "08:30", d.WorkStart)
	require.Equal(t, "18:00", d.WorkEnd)
	require.Equal(t, 15, d.BufferMin)
	require.Equal(t, 30, d.DurationMin)
}
