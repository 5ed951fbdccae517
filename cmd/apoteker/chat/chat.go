// Package chatcmder provides the chat command: the pharmacist conversation in
// the terminal instead of the browser.
package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/papercomputeco/apoteker/api"
	"github.com/papercomputeco/apoteker/cmd/apoteker/modelgateway"
	"github.com/papercomputeco/apoteker/pkg/chat"
	"github.com/papercomputeco/apoteker/pkg/cliui"
	"github.com/papercomputeco/apoteker/pkg/config"
	"github.com/papercomputeco/apoteker/pkg/gateway"
	"github.com/papercomputeco/apoteker/pkg/logger"
	"github.com/papercomputeco/apoteker/pkg/utils"
)

var (
	userPrompt      = cliui.UserStyle.Render("anda> ")
	assistantPrompt = cliui.ModelStyle.Render("apoteker> ")
)

const workingMsg = "Sedang membalas..."

type chatCommander struct {
	configDir string
	debug     bool

	model           string
	temperature     float64
	maxOutputTokens int
	timeout         int

	// markdown renders replies with glamour; off when stdout is not a terminal.
	markdown bool

	viper  *viper.Viper
	logger *zap.Logger
}

const chatLongDesc string = `Chat with the pharmacist in the terminal.

Runs the same conversation as the browser widget: the history starts with the
pharmacist persona, every message is sent to Gemini together with the whole
transcript, and replies are rendered as markdown.

A failed request keeps your message in the history so you can simply send it
again. The conversation is gone when the command exits.

Examples:
  apoteker chat
  apoteker chat --model gemini-1.5-pro --temperature 0.2`

const chatShortDesc string = "Chat with the pharmacist in the terminal"

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")

			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, config.ModelFlags)
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

	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddFloat64Flag(cmd, config.Flags, config.FlagTemperature, &cmder.temperature)
	config.AddIntFlag(cmd, config.Flags, config.FlagMaxOutputTokens, &cmder.maxOutputTokens)
	config.AddIntFlag(cmd, config.Flags, config.FlagTimeout, &cmder.timeout)

	return cmd
}

func (c *chatCommander) run(cmd *cobra.Command) error {
	// Logs go to stderr so they do not interleave with the transcript.
	c.logger = logger.NewLoggerWithWriters(c.debug, cmd.ErrOrStderr())
	defer func() { _ = c.logger.Sync() }()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	gwConfig := config.FromViper(c.viper).GatewayConfig()

	gw, err := modelgateway.Open(ctx, c.configDir, gwConfig, c.logger, nil)
	if err != nil {
		modelgateway.ReportStartupError(cmd.ErrOrStderr(), err)
		return err
	}
	defer gw.Close()

	out := cmd.OutOrStdout()
	c.markdown = isTerminal(out)

	fmt.Fprintf(out, "\n  %s\n  %s\n  %s %s\n\n",
		cliui.HeaderStyle.Render(api.Heading),
		cliui.DimStyle.Render(api.Greeting),
		cliui.KeyStyle.Render("Model:"),
		cliui.NameStyle.Render(gwConfig.Model),
	)
	fmt.Fprintf(out, "  %s\n\n", cliui.DimStyle.Render("Type your message and press Enter. /exit or Ctrl+D to quit."))

	return c.loop(ctx, cmd.InOrStdin(), out, gw)
}

// loop reads one message per line and runs an exchange for each until EOF
// or /exit. Per-turn failures are printed and the loop continues.
func (c *chatCommander) loop(ctx context.Context, in io.Reader, out io.Writer, sender chat.Sender) error {
	history := chat.NewHistory()
	for _, t := range history.All() {
		c.printTurn(out, t)
	}

	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, userPrompt)
		if !scanner.Scan() {
			// EOF or error
			break
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if input == "/exit" {
			break
		}

		c.logger.Debug("user message",
			zap.Int("message_count", history.Len()),
			zap.String("text", utils.Truncate(input, 64)),
		)

		var reply string
		err := cliui.Step(out, workingMsg, func() error {
			var err error
			reply, err = chat.Exchange(ctx, history, sender, input)
			return err
		})
		if err != nil {
			printTurnError(out, err)
			continue
		}

		c.printTurn(out, chat.Turn{Role: chat.RoleModel, Text: reply})
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading input: %w", err)
	}

	fmt.Fprintln(out)
	return nil
}

func (c *chatCommander) printTurn(out io.Writer, t chat.Turn) {
	if t.Role == chat.RoleUser {
		fmt.Fprintf(out, "%s%s\n", userPrompt, t.Text)
		return
	}

	text := t.Text
	if c.markdown {
		if rendered, err := cliui.RenderMarkdown(text); err == nil {
			text = strings.TrimRight(rendered, "\n")
		}
	}
	fmt.Fprintf(out, "%s%s\n\n", assistantPrompt, text)
}

func printTurnError(out io.Writer, err error) {
	var terr *gateway.TransportError

	switch {
	case errors.Is(err, gateway.ErrEmptyResponse), errors.Is(err, chat.ErrEmptyText):
		fmt.Fprintf(out, "  %s %s\n\n", cliui.FailMark, api.MsgEmptyReply)
	case errors.As(err, &terr) && terr.Err != nil:
		fmt.Fprintf(out, "  %s %s\n", cliui.FailMark, api.MsgTransport)
		fmt.Fprintf(out, "    %s\n\n", cliui.DimStyle.Render("Detail Error: "+terr.Err.Error()))
	default:
		fmt.Fprintf(out, "  %s %v\n\n", cliui.FailMark, err)
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	return ok && term.IsTerminal(int(f.Fd()))
}
