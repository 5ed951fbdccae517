package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent apoteker configuration stored as config.toml
// in the .apoteker/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version int          `toml:"version"`
	Model   ModelConfig  `toml:"model"`
	Server  ServerConfig `toml:"server"`
}

// ModelConfig holds the generation parameters handed to the model gateway.
type ModelConfig struct {
	Name string `toml:"name,omitempty"`

	// Temperature is a pointer so an explicit 0 survives the defaults merge.
	Temperature *float64 `toml:"temperature,omitempty"`

	MaxOutputTokens int `toml:"max_output_tokens,omitempty"`
	TimeoutSeconds  int `toml:"timeout_seconds,omitempty"`
}

// ServerConfig holds settings for the browser chat server.
type ServerConfig struct {
	Listen string `toml:"listen,omitempty"`

	// SessionIdleMinutes is a pointer so an explicit 0, which disables idle
	// expiry, survives the defaults merge.
	SessionIdleMinutes *int `toml:"session_idle_minutes,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"model.name": {
		get: func(c *Config) string { return c.Model.Name },
		set: func(c *Config, v string) error { c.Model.Name = v; return nil },
	},
	"model.temperature": {
		get: func(c *Config) string {
			if c.Model.Temperature == nil {
				return ""
			}
			return strconv.FormatFloat(*c.Model.Temperature, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return fmt.Errorf("invalid value for model.temperature: %w", err)
			}
			if f < 0 || f > 1 {
				return fmt.Errorf("invalid value for model.temperature: %v out of range [0, 1]", f)
			}
			c.Model.Temperature = &f
			return nil
		},
	},
	"model.max_output_tokens": {
		get: func(c *Config) string { return formatPositive(c.Model.MaxOutputTokens) },
		set: func(c *Config, v string) error {
			return setPositive("model.max_output_tokens", v, &c.Model.MaxOutputTokens)
		},
	},
	"model.timeout_seconds": {
		get: func(c *Config) string { return formatPositive(c.Model.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			return setPositive("model.timeout_seconds", v, &c.Model.TimeoutSeconds)
		},
	},
	"server.listen": {
		get: func(c *Config) string { return c.Server.Listen },
		set: func(c *Config, v string) error { c.Server.Listen = v; return nil },
	},
	"server.session_idle_minutes": {
		get: func(c *Config) string {
			if c.Server.SessionIdleMinutes == nil {
				return ""
			}
			return strconv.Itoa(*c.Server.SessionIdleMinutes)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for server.session_idle_minutes: %w", err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for server.session_idle_minutes: must not be negative, got %d", n)
			}
			c.Server.SessionIdleMinutes = &n
			return nil
		},
	},
}

func formatPositive(n int) string {
	if n == 0 {
		return ""
	}
	return strconv.Itoa(n)
}

func setPositive(key, v string, target *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	if n <= 0 {
		return fmt.Errorf("invalid value for %s: must be positive, got %d", key, n)
	}
	*target = n
	return nil
}
