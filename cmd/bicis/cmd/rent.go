package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// rentCmd represents the rent command
var rentCmd = &cobra.Command{
	Use:   "rent <station> <client>",
	Short: "Rent the first bike parked at a station",
	Long: `Rent the first bike parked at a station. Stations are numbered from 1.

Example:
  bicis rent 1 client01`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		station, err := parseStation(args[0])
		if err != nil {
			return err
		}

		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}

		res, err := rt.service.RentBike(station, args[1])
		if err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("bike not rented: %w", res.Outcome.Err())
		}

		if jsonOutput(cmd) {
			return outputJSON(cmd, res)
		}
		cmd.Printf("Rented bike %s from station %d to %s\n", res.Bike, station, res.Client)
		return nil
	},
}

// returnCmd represents the return command
var returnCmd = &cobra.Command{
	Use:   "return <station> <bike> <client>",
	Short: "Return a rented bike to a station",
	Long: `Return a rented bike to a station. Only the client holding the bike
may return it, and the station must have a free slot.

Example:
  bicis return 1 B000 client01`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		station, err := parseStation(args[0])
		if err != nil {
			return err
		}

		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}

		res, err := rt.service.ReturnBike(station, args[1], args[2])
		if err != nil {
			return err
		}
		if !res.OK() {
			return fmt.Errorf("bike not returned: %w", res.Outcome.Err())
		}

		if jsonOutput(cmd) {
			return outputJSON(cmd, res)
		}
		cmd.Printf("Returned bike %s to station %d\n", res.Bike, station)
		return nil
	},
}

// rentedCmd represents the rented command
var rentedCmd = &cobra.Command{
	Use:   "rented <client>",
	Short: "List the bikes a client holds",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}

		codes, err := rt.service.RentedBikes(args[0])
		if err != nil {
			return err
		}

		if jsonOutput(cmd) {
			return outputJSON(cmd, codes)
		}
		if len(codes) == 0 {
			cmd.Printf("%s holds no bikes\n", args[0])
			return nil
		}
		for _, code := range codes {
			cmd.Println(code)
		}
		return nil
	},
}

// bikesCmd represents the bikes command
var bikesCmd = &cobra.Command{
	Use:   "bikes",
	Short: "List every bike and where it is",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := runtimeFrom(cmd)
		if err != nil {
			return err
		}

		bikes, err := rt.service.Bikes()
		if err != nil {
			return err
		}

		if jsonOutput(cmd) {
			return outputJSON(cmd, bikes)
		}
		return outputBikes(cmd, bikes)
	},
}

func init() {
	rootCmd.AddCommand(rentCmd)
	rootCmd.AddCommand(returnCmd)
	rootCmd.AddCommand(rentedCmd)
	rootCmd.AddCommand(bikesCmd)
}

// parseStation parses a 1-based station number. Range checks are left to
// the rental service.
func parseStation(arg string) (int, error) {
	station, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("invalid station %q: must be a number", arg)
	}
	return station, nil
}
