package config

import (
	"strconv"

	"github.com/papercomputeco/apoteker/pkg/gateway"
)

const (
	defaultListen = ":8080"

	defaultSessionIdleMinutes = 30
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	g := gateway.DefaultConfig()
	temperature := widen(g.Temperature)
	sessionIdle := defaultSessionIdleMinutes

	return &Config{
		Version: CurrentV,
		Model: ModelConfig{
			Name:            g.Model,
			Temperature:     &temperature,
			MaxOutputTokens: int(g.MaxOutputTokens),
			TimeoutSeconds:  int(g.Timeout.Seconds()),
		},
		Server: ServerConfig{
			Listen:             defaultListen,
			SessionIdleMinutes: &sessionIdle,
		},
	}
}

// widen converts f to float64 via its shortest decimal form so 0.4 stays 0.4
// rather than 0.4000000059604645.
func widen(f float32) float64 {
	w, _ := strconv.ParseFloat(strconv.FormatFloat(float64(f), 'f', -1, 32), 64)
	return w
}
