package config

import (
	"fmt"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeLogging()
	c.normalizeEngine()
	c.normalizeSearch()
	c.normalizeUsers()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func (c *Config) normalizeEngine() {
	if c.Engine.StaleRetryAttempts <= 0 {
		c.Engine.StaleRetryAttempts = defaultStaleRetryAttempts
	}
}

func (c *Config) normalizeSearch() {
	if c.Search.DefaultPerPage <= 0 {
		c.Search.DefaultPerPage = defaultSearchPerPage
	}
	if c.Search.MaxPerPage <= 0 {
		c.Search.MaxPerPage = defaultSearchMaxPerPage
	}
}

func (c *Config) normalizeUsers() {
	for i := range c.Users {
		c.Users[i].ID = strings.TrimSpace(c.Users[i].ID)
		for j := range c.Users[i].Permissions {
			c.Users[i].Permissions[j] = strings.ToLower(strings.TrimSpace(c.Users[i].Permissions[j]))
		}
	}
}
