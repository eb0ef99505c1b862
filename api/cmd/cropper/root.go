package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"photo-crop/api/internal/logging"
)

func newRootCmd() *cobra.Command {
	var logLevel, logFormat string

	cmd := &cobra.Command{
		Use:   "cropper",
		Short: "Review and adjust print crops for a photo order",
		Long: `Cropper runs the photo crop review session in a terminal.

Photos come from the order API, from a launch payload, or from the built-in demo set.
Confirmed crops are posted back to the API or printed as a JSON payload.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			logging.InitTo(cmd.ErrOrStderr(), logLevel, logFormat)
		},
	}
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level: debug, info, warn, error")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")

	cmd.AddCommand(newReviewCmd())
	cmd.AddCommand(newLaunchCmd())

	return cmd
}
