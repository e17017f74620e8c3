// Package config loads, normalizes, and validates the TOML configuration
// that drives the CLI, the catalog store, and the contribution engine.
//
// Load resolves the file (explicit path, then ~/.config/popcorn/config.toml,
// then ./popcorn.toml), applies defaults for missing keys, expands ~ in
// paths, and rejects unusable values up front so later components can trust
// what they receive.
package config
