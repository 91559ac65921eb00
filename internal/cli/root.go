package cli

import (
	"context"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "trello2kanboard",
	Short: "Migrate Trello boards into Kanboard projects",
	Long: `trello2kanboard copies a Trello board into an existing Kanboard project:
lists become columns, cards become tasks with their comments, checklists,
attachments and card-to-card links.

Credentials are read from the environment (TRELLO_API_KEY, TRELLO_TOKEN,
KANBOARD_URL, KANBOARD_TOKEN), a .env.local file or
~/.config/trello2kanboard/config.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("state", "", "State database path or postgres:// DSN (overrides T2K_STATE_PATH)")
	rootCmd.PersistentFlags().StringP("output", "o", "", "Output format: table, json, ndjson, yaml, tsv (overrides T2K_OUTPUT)")
	rootCmd.PersistentFlags().Bool("porcelain", false, "Stable machine-readable table output")
	rootCmd.PersistentFlags().String("log-level", "", "Diagnostics level: info, debug, quiet (overrides T2K_LOG_LEVEL)")
}

// commandContext returns the command's context, or a background context when
// the command is run directly in tests.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
