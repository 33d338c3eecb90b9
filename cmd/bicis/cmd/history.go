package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/ssargent/bicis/pkg/journal"
)

// historyCmd represents the history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent rentals and returns",
	Long: `Show rentals and returns recorded in the journal, oldest first.

Examples:
  bicis history --limit=20
  bicis history --bike=B003
  bicis history --client=client01`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		bike, _ := cmd.Flags().GetString("bike")
		client, _ := cmd.Flags().GetString("client")
		limit, _ := cmd.Flags().GetInt("limit")

		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}
		if rt.journal == nil {
			return fmt.Errorf("history is disabled: set journal_dir in the config file")
		}

		var entries []journal.Entry
		switch {
		case bike != "":
			entries, err = rt.journal.ForBike(bike)
		case client != "":
			entries, err = rt.journal.ForClient(client)
		default:
			entries, err = rt.journal.List(limit)
		}
		if err != nil {
			return err
		}

		if jsonOutput(cmd) {
			if entries == nil {
				entries = []journal.Entry{}
			}
			return outputJSON(cmd, entries)
		}
		return outputHistory(cmd, entries)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("bike", "", "Only show entries for this bike")
	historyCmd.Flags().String("client", "", "Only show entries for this client")
	historyCmd.Flags().IntP("limit", "n", 50, "Most recent entries to show, 0 for all")
}
