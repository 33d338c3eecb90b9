package cmd

import (
	"github.com/spf13/cobra"
)

// stationJSON is one row of status --format=json
type stationJSON struct {
	Station   int `json:"station"`
	Available int `json:"available"`
	Free      int `json:"free"`
}

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show bikes available at each station",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}

		counts, err := rt.service.AvailableCounts()
		if err != nil {
			return err
		}
		capacity := rt.service.Capacity()

		if jsonOutput(cmd) {
			rows := make([]stationJSON, len(counts))
			for i, c := range counts {
				rows[i] = stationJSON{Station: i + 1, Available: c, Free: capacity - c}
			}
			return outputJSON(cmd, rows)
		}
		return outputStations(cmd, counts, capacity)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
