// Package apotekercmder
package apotekercmder

import (
	"github.com/spf13/cobra"

	authcmder "github.com/papercomputeco/apoteker/cmd/apoteker/auth"
	chatcmder "github.com/papercomputeco/apoteker/cmd/apoteker/chat"
	configcmder "github.com/papercomputeco/apoteker/cmd/apoteker/config"
	servecmder "github.com/papercomputeco/apoteker/cmd/apoteker/serve"
	versioncmder "github.com/papercomputeco/apoteker/cmd/version"
)

const apotekerLongDesc string = `Apoteker is a pharmacist chatbot backed by Google Gemini.

Every conversation starts with a fixed pharmacist persona that answers
questions about medicine and declines anything else.

Run it using:
  apoteker auth gemini   Store the Gemini API key
  apoteker serve         Run the browser chat widget
  apoteker chat          Chat in the terminal`

const apotekerShortDesc string = "Apoteker - Pharmacist Chatbot"

func NewApotekerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "apoteker",
		Short:        apotekerShortDesc,
		Long:         apotekerLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override path to .apoteker/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(chatcmder.NewChatCmd())
	cmd.AddCommand(authcmder.NewAuthCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
