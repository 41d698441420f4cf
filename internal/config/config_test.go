package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/hackpath/internal/config"
	"github.com/roach88/hackpath/internal/retry"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	res, err := config.Load(config.Options{
		Path:    filepath.Join(home, "missing.toml"),
		EnvFile: writeFile(t, home, ".env", ""),
		Environ: []string{},
	})
	require.NoError(t, err)
	assert.False(t, res.Exists)

	cfg := res.Config
	assert.Equal(t, filepath.Join(home, ".local", "share", "hackpath"), cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(cfg.Paths.DataDir, "progress.db"), cfg.Paths.StorePath)
	assert.False(t, cfg.RemoteEnabled())
	assert.Equal(t, 5, cfg.Playback.CountdownSeconds)
	assert.Equal(t, time.Minute, cfg.SyncInterval())
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "auto", cfg.Logging.Format)
	assert.Equal(t, "hackpath", cfg.Telemetry.ServiceName)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 2, policy.MaxAttempts)
	assert.Equal(t, retry.DefaultDelay, policy.Delay)
	assert.Equal(t, retry.Fixed, policy.Kind)
}

func TestLoad_FileValues(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	path := writeFile(t, dir, "hackpath.toml", `
[paths]
data_dir = "~/data"
catalog = "~/catalog"

[remote]
driver = "SQLite3"
dsn = "/tmp/remote.db"

[retry]
max_attempts = 4
delay_ms = 250
kind = "exponential"

[playback]
countdown_seconds = 3

[logging]
level = "DEBUG"
format = "json"
`)

	res, err := config.Load(config.Options{Path: path, EnvFile: writeFile(t, dir, ".env", ""), Environ: []string{}})
	require.NoError(t, err)
	require.True(t, res.Exists)
	assert.Equal(t, path, res.Path)

	cfg := res.Config
	assert.Equal(t, filepath.Join(dir, "data"), cfg.Paths.DataDir)
	assert.Equal(t, filepath.Join(dir, "catalog"), cfg.Paths.Catalog)
	assert.Equal(t, "sqlite3", cfg.Remote.Driver)
	assert.True(t, cfg.RemoteEnabled())
	assert.Equal(t, 3, cfg.Playback.CountdownSeconds)
	assert.Equal(t, "debug", cfg.Logging.Level)

	policy := cfg.RetryPolicy()
	assert.Equal(t, 4, policy.MaxAttempts)
	assert.Equal(t, 250*time.Millisecond, policy.Delay)
	assert.Equal(t, retry.Exponential, policy.Kind)
	assert.Equal(t, 30*time.Second, policy.MaxDelay)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hackpath.toml", "[playback]\ncountdown = 3\n")

	_, err := config.Load(config.Options{Path: path, EnvFile: writeFile(t, dir, ".env", ""), Environ: []string{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse config")
	assert.Contains(t, err.Error(), "countdown")
}

func TestLoad_EnvOverridesFileAndDotenv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "hackpath.toml", "[playback]\ncountdown_seconds = 3\n[logging]\nlevel = \"warn\"\n")
	envFile := writeFile(t, dir, ".env", "HACKPATH_COUNTDOWN_SECONDS=7\nHACKPATH_LOG_LEVEL=error\n")

	res, err := config.Load(config.Options{
		Path:    path,
		EnvFile: envFile,
		Environ: []string{"HACKPATH_LOG_LEVEL=debug", "HACKPATH_DATA_DIR=" + dir},
	})
	require.NoError(t, err)
	cfg := res.Config
	assert.Equal(t, 7, cfg.Playback.CountdownSeconds, "dotenv overrides the file")
	assert.Equal(t, "debug", cfg.Logging.Level, "process env overrides dotenv")
	assert.Equal(t, dir, cfg.Paths.DataDir)
}

func TestLoad_MissingExplicitEnvFile(t *testing.T) {
	dir := t.TempDir()
	_, err := config.Load(config.Options{
		Path:    filepath.Join(dir, "none.toml"),
		EnvFile: filepath.Join(dir, "missing.env"),
		Environ: []string{},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read env file")
}

func TestLoad_BadEnvValue(t *testing.T) {
	dir := t.TempDir()
	_, err := config.Load(config.Options{
		Path:    filepath.Join(dir, "none.toml"),
		EnvFile: writeFile(t, dir, ".env", ""),
		Environ: []string{"HACKPATH_COUNTDOWN_SECONDS=soon"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse env:")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"unknown driver", func(c *config.Config) { c.Remote.Driver = "mysql" }, "remote.driver"},
		{"driver without dsn", func(c *config.Config) { c.Remote.Driver = "postgres" }, "remote.dsn"},
		{"zero attempts", func(c *config.Config) { c.Retry.MaxAttempts = 0 }, "max attempts"},
		{"bad retry kind", func(c *config.Config) { c.Retry.Kind = "jitter" }, "unknown kind"},
		{"zero countdown", func(c *config.Config) { c.Playback.CountdownSeconds = 0 }, "countdown_seconds"},
		{"zero interval", func(c *config.Config) { c.Sync.IntervalSeconds = 0 }, "interval_seconds"},
		{"bad level", func(c *config.Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"no data dir", func(c *config.Config) { c.Paths.DataDir = "" }, "data_dir"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	cfg := config.Default()
	require.NoError(t, cfg.Validate())
}

func TestSampleConfigParses(t *testing.T) {
	var cfg config.Config
	dec := toml.NewDecoder(strings.NewReader(config.SampleConfig()))
	dec.DisallowUnknownFields()
	require.NoError(t, dec.Decode(&cfg))
	assert.Equal(t, 5, cfg.Playback.CountdownSeconds)
}

func TestEnsureDirectories(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(dir, "data")
	cfg.Paths.StorePath = filepath.Join(dir, "other", "progress.db")

	require.NoError(t, cfg.EnsureDirectories())
	assert.DirExists(t, cfg.Paths.DataDir)
	assert.DirExists(t, filepath.Join(dir, "other"))
}
