package config

import (
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(strings.TrimSpace(c.Paths.DataDir)); err != nil {
		return err
	}
	if strings.TrimSpace(c.Paths.StorePath) == "" {
		c.Paths.StorePath = filepath.Join(c.Paths.DataDir, "progress.db")
	} else if c.Paths.StorePath, err = expandPath(strings.TrimSpace(c.Paths.StorePath)); err != nil {
		return err
	}
	if c.Paths.Catalog, err = expandPath(strings.TrimSpace(c.Paths.Catalog)); err != nil {
		return err
	}

	c.Remote.Driver = strings.ToLower(strings.TrimSpace(c.Remote.Driver))
	c.Remote.DSN = strings.TrimSpace(c.Remote.DSN)
	c.Retry.Kind = strings.ToLower(strings.TrimSpace(c.Retry.Kind))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Telemetry.Endpoint = strings.TrimSpace(c.Telemetry.Endpoint)
	if strings.TrimSpace(c.Telemetry.ServiceName) == "" {
		c.Telemetry.ServiceName = "hackpath"
	}
	return nil
}
