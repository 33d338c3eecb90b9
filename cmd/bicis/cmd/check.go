package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify station counters against the bike records",
	Long: `Verify that every station counter matches the bikes parked there,
lies within the station capacity, and that every bike is either parked or
held by a client. Exits non-zero when problems are found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}

		report, err := rt.service.Check()
		if err != nil {
			return err
		}

		if jsonOutput(cmd) {
			err = outputJSON(cmd, report)
		} else {
			err = outputCheck(cmd, report)
		}
		if err != nil {
			return err
		}
		if !report.OK() {
			return fmt.Errorf("%d problems found", len(report.Problems))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
