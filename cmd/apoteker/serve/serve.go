// Package servecmder provides the serve command that runs the browser chat widget.
package servecmder

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/papercomputeco/apoteker/api"
	"github.com/papercomputeco/apoteker/cmd/apoteker/modelgateway"
	"github.com/papercomputeco/apoteker/pkg/config"
	"github.com/papercomputeco/apoteker/pkg/logger"
	"github.com/papercomputeco/apoteker/pkg/metrics"
)

type serveCommander struct {
	configDir string
	debug     bool

	listen          string
	model           string
	temperature     float64
	maxOutputTokens int
	timeout         int
	sessionIdle     int

	viper  *viper.Viper
	logger *zap.Logger
}

const serveLongDesc string = `Run the pharmacist chat widget.

Serves a single chat page backed by Google Gemini. Every browser gets its
own conversation, seeded with the pharmacist persona, that lives until the
process exits or the session sits idle.

The Gemini API key is read from GEMINI_API_KEY or from credentials.toml
(see "apoteker auth gemini").

Examples:
  apoteker serve
  apoteker serve --listen :9000 --model gemini-1.5-pro`

const serveShortDesc string = "Run the pharmacist chat widget"

var serveFlags = []string{
	config.FlagListen,
	config.FlagSessionIdle,
	config.FlagModel,
	config.FlagTemperature,
	config.FlagMaxOutputTokens,
	config.FlagTimeout,
}

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.viper = v
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddIntFlag(cmd, config.Flags, config.FlagSessionIdle, &cmder.sessionIdle)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddFloat64Flag(cmd, config.Flags, config.FlagTemperature, &cmder.temperature)
	config.AddIntFlag(cmd, config.Flags, config.FlagMaxOutputTokens, &cmder.maxOutputTokens)
	config.AddIntFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	c.logger = logger.NewLogger(c.debug)
	defer func() { _ = c.logger.Sync() }()

	cfg := config.FromViper(c.viper)
	gwConfig := cfg.GatewayConfig()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	m := metrics.New()

	gw, err := modelgateway.Open(ctx, c.configDir, gwConfig, c.logger, m)
	if err != nil {
		modelgateway.ReportStartupError(cmd.ErrOrStderr(), err)
		return err
	}
	defer gw.Close()

	server := api.NewServer(apiConfig(cfg), gw, m, c.logger)

	go server.SweepSessions(ctx, time.Minute)

	ln, err := net.Listen("tcp", cfg.Server.Listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Server.Listen, err)
	}

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := server.RunWithListener(ln); err != nil {
			errChan <- fmt.Errorf("chat server error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
		return server.Shutdown()
	}
}

// apiConfig maps the resolved configuration onto the chat server's settings.
func apiConfig(cfg *config.Config) api.Config {
	return api.Config{
		Model:       cfg.GatewayConfig().Model,
		SessionIdle: cfg.SessionIdle(),
	}
}
