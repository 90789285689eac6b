package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCreatesDefaultOnFirstRun(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	again, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadNormalizesPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("timezone: Europe/Paris\nlog:\n  level: DEBUG\n"), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "Europe/Paris", cfg.Timezone)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "127.0.0.1:8080", cfg.Listen)
	assert.Equal(t, "* * * * *", cfg.RefreshCron)
	assert.Equal(t, 20, cfg.RateLimit)
	assert.Equal(t, "*/15 * * * *", cfg.Capture.Refresh)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"bad timezone": "timezone: Mars/Olympus\n",
		"bad cron":     "refresh: every minute\n",
		"bad listen":   "listen: nowhere\n",
		"bad level":    "log:\n  level: chatty\n",
		"bad yaml":     "listen: [\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "config.yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.ErrorIs(t, err, ErrEmptyPath)
	assert.ErrorIs(t, Save("", DefaultConfig()), ErrEmptyPath)
}

func TestEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("ALOS_TIMEZONE=Asia/Tokyo\nALOS_CATALOG=/tmp/week.yaml\n"), 0o600))

	t.Setenv("ALOS_TIMEZONE", "")
	t.Setenv("ALOS_CATALOG", "")
	t.Setenv("ALOS_LISTEN", "0.0.0.0:9090")
	require.NoError(t, os.Unsetenv("ALOS_TIMEZONE"))
	require.NoError(t, os.Unsetenv("ALOS_CATALOG"))

	require.NoError(t, LoadEnvFile(envPath))
	require.NoError(t, LoadEnvFile(filepath.Join(dir, "missing.env")))
	require.NoError(t, LoadEnvFile(""))

	cfg, err := Load(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", cfg.Timezone)
	assert.Equal(t, "/tmp/week.yaml", cfg.Catalog)
	assert.Equal(t, "0.0.0.0:9090", cfg.Listen)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	cfg := DefaultConfig()
	cfg.Timezone = "America/Chicago"
	cfg.BasicAuth = &BasicAuthConfig{Username: "lead", Password: "secret"}
	cfg.Capture.Enabled = true
	require.NoError(t, cfg.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
	assert.Equal(t, 30, int(got.CaptureTimeout().Seconds()))
}
