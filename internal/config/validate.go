package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.RetryPolicy().Validate(); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	if c.Playback.CountdownSeconds < 1 {
		return errors.New("playback.countdown_seconds must be at least 1")
	}
	if c.Sync.IntervalSeconds < 1 {
		return errors.New("sync.interval_seconds must be at least 1")
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	return nil
}

func (c *Config) validateRemote() error {
	switch c.Remote.Driver {
	case "":
		return nil
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("remote.driver must be sqlite3 or postgres, got %q", c.Remote.Driver)
	}
	if c.Remote.DSN == "" {
		return fmt.Errorf("remote.dsn is required when remote.driver is %s", c.Remote.Driver)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json", "auto":
	default:
		return fmt.Errorf("logging.format must be text, json or auto, got %q", c.Logging.Format)
	}
	return nil
}
