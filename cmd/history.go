package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ccakes/athenacli/core"
)

// historyCmd represents the history command.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the results of past query executions",
	Long: `Show the results of past query executions that completed successfully.
You can filter entries interactively, and select multiple query executions to show at a time.`,
	Example: `  # Show the results of past query executions
  $ athenacli history

  # Specify the number of entries to list
  $ athenacli history --count 100

  # List all completed query executions (may be very slow)
  $ athenacli history --count 0

  # Print the results in CSV format
  $ athenacli history --format csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return core.New(newClient(config), config, stdout).ShowHistory()
	},
}

func init() {
	RootCmd.AddCommand(historyCmd)

	// Define flags
	f := historyCmd.Flags()
	f.StringVar(&config.Format, "format", "table", "The formatting style for command output. Valid values: table, csv")
	f.UintVarP(&config.Count, "count", "c", 50, "The maximum possible number of SUCCEEDED query executions to list")
}
