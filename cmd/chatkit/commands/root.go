// Package commands provides the CLI commands for chatkit.
package commands

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/chatkit-ai/chatkit/internal/logging"
)

var (
	// Version information set at build time
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags
var (
	logLevel  string
	prettyLog bool
)

var rootCmd = &cobra.Command{
	Use:   "chatkit",
	Short: "chatkit - chat session and streaming-response server",
	Long: `chatkit manages chat sessions for AI panels: it streams agent
responses, bounds live sessions in an LRU store, and persists finished
conversations for rehydration.

Run 'chatkit serve' to start the HTTP server.`,
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Missing .env is fine; environment wins over file values.
		godotenv.Load()

		logging.Init(logging.Config{
			Level:  logging.ParseLevel(logLevel),
			Pretty: prettyLog,
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&prettyLog, "pretty-logs", false, "Human-readable log output")

	rootCmd.SetVersionTemplate(fmt.Sprintf("chatkit %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(serveCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
