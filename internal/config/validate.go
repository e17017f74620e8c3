package config

import (
	"errors"
	"fmt"

	"popcorn/internal/fields"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	return c.validateUsers()
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
	return nil
}

func (c *Config) validateSearch() error {
	if c.Search.DefaultPerPage > c.Search.MaxPerPage {
		return errors.New("search.default_per_page must not exceed search.max_per_page")
	}
	return nil
}

func (c *Config) validateUsers() error {
	seen := make(map[string]struct{}, len(c.Users))
	for _, user := range c.Users {
		if user.ID == "" {
			return errors.New("users: every user needs an id")
		}
		if _, dup := seen[user.ID]; dup {
			return fmt.Errorf("users: duplicate id %q", user.ID)
		}
		seen[user.ID] = struct{}{}
		for _, perm := range user.Permissions {
			if perm == fields.PermissionAll {
				continue
			}
			if _, ok := fields.ParseType(perm); !ok {
				return fmt.Errorf("users: user %q has unknown permission %q", user.ID, perm)
			}
		}
	}
	return nil
}
