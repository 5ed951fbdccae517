package gateway

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	// DefaultModel is the Gemini model the apoteker persona was tuned against.
	DefaultModel = "gemini-1.5-flash"

	// DefaultTemperature keeps answers focused.
	DefaultTemperature float32 = 0.4

	// DefaultMaxOutputTokens keeps answers short.
	DefaultMaxOutputTokens int32 = 500

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 60 * time.Second
)

// Config holds the generation parameters. It is constant for the lifetime of
// the process.
type Config struct {
	// Model is the model identifier (e.g. "gemini-1.5-flash").
	Model string

	// Temperature must be within [0, 1].
	Temperature float32

	// MaxOutputTokens caps the reply length. Must be positive.
	MaxOutputTokens int32

	// Timeout bounds the wait for a single reply. Must be positive.
	Timeout time.Duration
}

// DefaultConfig returns the generation parameters used by the original
// pharmacist chatbot.
func DefaultConfig() Config {
	return Config{
		Model:           DefaultModel,
		Temperature:     DefaultTemperature,
		MaxOutputTokens: DefaultMaxOutputTokens,
		Timeout:         DefaultTimeout,
	}
}

// Validate checks every parameter and reports all violations at once.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Model) == "" {
		errs = append(errs, errors.New("model identifier is required"))
	}
	if c.Temperature < 0 || c.Temperature > 1 {
		errs = append(errs, fmt.Errorf("temperature %v out of range [0, 1]", c.Temperature))
	}
	if c.MaxOutputTokens <= 0 {
		errs = append(errs, fmt.Errorf("max output tokens must be positive, got %d", c.MaxOutputTokens))
	}
	if c.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive, got %s", c.Timeout))
	}

	return errors.Join(errs...)
}
