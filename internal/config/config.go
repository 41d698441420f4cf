package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/roach88/hackpath/internal/retry"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths holds file locations.
type Paths struct {
	DataDir   string `toml:"data_dir" env:"HACKPATH_DATA_DIR"`
	StorePath string `toml:"store_path" env:"HACKPATH_STORE_PATH"` // Default: <data_dir>/progress.db
	Catalog   string `toml:"catalog" env:"HACKPATH_CATALOG"`
}

// Remote selects the account progress service. An empty driver runs
// without accounts.
type Remote struct {
	Driver string `toml:"driver" env:"HACKPATH_REMOTE_DRIVER"`
	DSN    string `toml:"dsn" env:"HACKPATH_REMOTE_DSN"`
}

// Retry configures remote write retries.
type Retry struct {
	MaxAttempts int    `toml:"max_attempts" env:"HACKPATH_RETRY_MAX_ATTEMPTS"`
	DelayMS     int    `toml:"delay_ms" env:"HACKPATH_RETRY_DELAY_MS"`
	Kind        string `toml:"kind" env:"HACKPATH_RETRY_KIND"`
	MaxDelayMS  int    `toml:"max_delay_ms" env:"HACKPATH_RETRY_MAX_DELAY_MS"`
}

// Playback configures routine players.
type Playback struct {
	CountdownSeconds int `toml:"countdown_seconds" env:"HACKPATH_COUNTDOWN_SECONDS"`
}

// Sync configures the background retry of pending sign-in migrations.
type Sync struct {
	IntervalSeconds int `toml:"interval_seconds" env:"HACKPATH_SYNC_INTERVAL_SECONDS"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level" env:"HACKPATH_LOG_LEVEL"`
	Format string `toml:"format" env:"HACKPATH_LOG_FORMAT"` // text, json or auto
}

// Telemetry configures OTLP trace export. An empty endpoint disables it.
type Telemetry struct {
	Endpoint    string `toml:"endpoint" env:"HACKPATH_OTEL_ENDPOINT"`
	ServiceName string `toml:"service_name" env:"HACKPATH_OTEL_SERVICE_NAME"`
}

// Config holds every hackpath setting.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Remote    Remote    `toml:"remote"`
	Retry     Retry     `toml:"retry"`
	Playback  Playback  `toml:"playback"`
	Sync      Sync      `toml:"sync"`
	Logging   Logging   `toml:"logging"`
	Telemetry Telemetry `toml:"telemetry"`
}

// Options selects the files Load reads.
type Options struct {
	// Path of the TOML file. Empty searches ~/.config/hackpath/config.toml
	// then ./hackpath.toml; a missing file is not an error.
	Path string
	// EnvFile is a dotenv file. Empty reads ./.env when it exists.
	EnvFile string
	// Environ replaces os.Environ, for tests.
	Environ []string
}

// Result is a loaded configuration and where it came from.
type Result struct {
	Config *Config
	Path   string // resolved TOML path
	Exists bool   // whether the TOML file was read
}

// SampleConfig returns a commented configuration file.
func SampleConfig() string {
	return sampleConfig
}

// DefaultConfigPath returns the absolute path of the user configuration file.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hackpath/config.toml")
}

// Load reads, normalizes and validates the configuration.
func Load(opts Options) (Result, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(opts.Path)
	if err != nil {
		return Result{}, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return Result{}, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			var strict *toml.StrictMissingError
			if errors.As(err, &strict) {
				return Result{}, fmt.Errorf("parse config: %s", strict.String())
			}
			return Result{}, fmt.Errorf("parse config: %w", err)
		}
	}

	environ, err := environment(opts)
	if err != nil {
		return Result{}, err
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Environment: environ}); err != nil {
		return Result{}, fmt.Errorf("parse env: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return Result{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Result{}, err
	}
	return Result{Config: &cfg, Path: resolvedPath, Exists: exists}, nil
}

// environment merges the dotenv file under the process environment.
func environment(opts Options) (map[string]string, error) {
	out := map[string]string{}

	envFile := opts.EnvFile
	explicit := envFile != ""
	if !explicit {
		envFile = ".env"
	}
	values, err := godotenv.Read(envFile)
	switch {
	case err == nil:
		for k, v := range values {
			out[k] = v
		}
	case !explicit && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read env file %s: %w", envFile, err)
	}

	environ := opts.Environ
	if environ == nil {
		environ = os.Environ()
	}
	for _, kv := range environ {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("hackpath.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// RetryPolicy builds the remote write policy.
func (c *Config) RetryPolicy() retry.Policy {
	return retry.Policy{
		MaxAttempts: c.Retry.MaxAttempts,
		Delay:       time.Duration(c.Retry.DelayMS) * time.Millisecond,
		Kind:        retry.Kind(c.Retry.Kind),
		MaxDelay:    time.Duration(c.Retry.MaxDelayMS) * time.Millisecond,
	}
}

// SyncInterval is the period of the background sync job.
func (c *Config) SyncInterval() time.Duration {
	return time.Duration(c.Sync.IntervalSeconds) * time.Second
}

// RemoteEnabled reports whether an account service is configured.
func (c *Config) RemoteEnabled() bool {
	return c.Remote.Driver != ""
}

// EnsureDirectories creates the data directory.
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.Paths.DataDir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", c.Paths.DataDir, err)
	}
	if dir := filepath.Dir(c.Paths.StorePath); dir != c.Paths.DataDir {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
