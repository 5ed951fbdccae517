// Package modelgateway opens the Gemini gateway shared by the serve and chat
// commands and reports startup failures the way the user expects to see them.
package modelgateway

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/papercomputeco/apoteker/pkg/cliui"
	"github.com/papercomputeco/apoteker/pkg/credentials"
	"github.com/papercomputeco/apoteker/pkg/gateway"
	"github.com/papercomputeco/apoteker/pkg/gateway/gemini"
	"github.com/papercomputeco/apoteker/pkg/metrics"
)

// ResolveKey finds the Gemini API key in the environment or credentials.toml.
// It returns gateway.ErrMissingCredential when neither holds one.
func ResolveKey(configDir string, logger *zap.Logger) (string, error) {
	mgr, err := credentials.NewManager(configDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	key, src, err := mgr.Resolve(credentials.ProviderGemini)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	if src == credentials.SourceNone {
		return "", gateway.ErrMissingCredential
	}

	logger.Debug("resolved API key", zap.String("source", string(src)))
	return key, nil
}

// Open resolves the API key and builds a Gemini gateway for cfg.
func Open(ctx context.Context, configDir string, cfg gateway.Config, logger *zap.Logger, m *metrics.Metrics) (*gemini.Gateway, error) {
	key, err := ResolveKey(configDir, logger)
	if err != nil {
		return nil, err
	}

	return gemini.New(ctx, key, cfg, logger, gemini.WithMetrics(m))
}

// ReportStartupError prints the user-facing warning for a startup failure.
// Errors that are not startup errors are left to the caller.
func ReportStartupError(w io.Writer, err error) {
	var ierr *gateway.InitError

	switch {
	case errors.Is(err, gateway.ErrMissingCredential):
		envVar := credentials.EnvVarForProvider(credentials.ProviderGemini)
		cliui.Warn(w,
			"Peringatan: API Key tidak ditemukan. Harap atur "+envVar+".",
			"Jalankan 'apoteker auth gemini' untuk menyimpannya di credentials.toml,",
			"atau ekspor "+envVar+" sebelum menjalankan apoteker.",
		)

	case errors.As(err, &ierr):
		cliui.Warn(w, "Kesalahan saat menginisialisasi model: "+ierr.Err.Error())
	}
}
