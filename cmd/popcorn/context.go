package main

import (
	"strings"
	"sync"

	"popcorn/internal/catalog"
	"popcorn/internal/config"
	"popcorn/internal/engine"
	"popcorn/internal/identity"
	"popcorn/internal/logging"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the catalog database for the duration of fn.
func (c *commandContext) withStore(fn func(*catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// withEngine wires up the full contribution stack for the duration of fn.
func (c *commandContext) withEngine(fn func(*engine.Engine, *catalog.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := catalog.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	auth, err := identity.FromConfig(cfg)
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	return fn(engine.New(store, auth, logger, cfg), store)
}

func (c *commandContext) authorizer() (*identity.Static, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return identity.FromConfig(cfg)
}
