package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/apoteker/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the APOTEKER_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (APOTEKER_MODEL_NAME, APOTEKER_SERVER_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix("APOTEKER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper snapshots the resolved values of every config key into a Config.
func FromViper(v *viper.Viper) *Config {
	temperature := v.GetFloat64("model.temperature")
	sessionIdle := v.GetInt("server.session_idle_minutes")

	return &Config{
		Version: v.GetInt("version"),
		Model: ModelConfig{
			Name:            v.GetString("model.name"),
			Temperature:     &temperature,
			MaxOutputTokens: v.GetInt("model.max_output_tokens"),
			TimeoutSeconds:  v.GetInt("model.timeout_seconds"),
		},
		Server: ServerConfig{
			Listen:             v.GetString("server.listen"),
			SessionIdleMinutes: &sessionIdle,
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Model
	v.SetDefault("model.name", d.Model.Name)
	v.SetDefault("model.temperature", *d.Model.Temperature)
	v.SetDefault("model.max_output_tokens", d.Model.MaxOutputTokens)
	v.SetDefault("model.timeout_seconds", d.Model.TimeoutSeconds)

	// Server
	v.SetDefault("server.listen", d.Server.Listen)
	v.SetDefault("server.session_idle_minutes", *d.Server.SessionIdleMinutes)
}
