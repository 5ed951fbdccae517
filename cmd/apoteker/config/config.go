// Package configcmder provides the config command for managing persistent
// apoteker configuration stored in the .apoteker/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent apoteker configuration.

Configuration is stored as config.toml in the .apoteker/ directory and provides
default values for command flags. CLI flags and APOTEKER_* environment
variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  model.name, model.temperature, model.max_output_tokens,
  model.timeout_seconds, server.listen, server.session_idle_minutes

Setting server.session_idle_minutes to 0 keeps browser sessions until the
server exits.

Use subcommands to get, set, or list configuration values:
  apoteker config set <key> <value>    Set a configuration value
  apoteker config get <key>            Get a configuration value
  apoteker config list                 List all configuration values

Examples:
  apoteker config set model.name gemini-1.5-pro
  apoteker config set model.temperature 0.2
  apoteker config get server.listen
  apoteker config list`

const configShortDesc string = "Manage persistent apoteker configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// keyCompletion completes the first argument with the known config keys.
func keyCompletion(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return validKeys(), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}
