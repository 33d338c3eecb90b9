package cmd

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/ssargent/bicis/pkg/journal"
	"github.com/ssargent/bicis/pkg/rental"
)

// outputJSON writes v as indented JSON
func outputJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newTable(cmd *cobra.Command) *tabwriter.Writer {
	return tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
}

// outputStations displays per-station availability
func outputStations(cmd *cobra.Command, counts []int, capacity int) error {
	w := newTable(cmd)
	defer w.Flush()

	fmt.Fprintln(w, "STATION\tAVAILABLE\tFREE")
	for i, c := range counts {
		fmt.Fprintf(w, "%d\t%d\t%d\n", i+1, c, capacity-c)
	}
	return nil
}

// outputBikes displays every bike in record order
func outputBikes(cmd *cobra.Command, bikes []rental.Bike) error {
	w := newTable(cmd)
	defer w.Flush()

	fmt.Fprintln(w, "BIKE\tSTATION\tCLIENT\tSINCE")
	for _, b := range bikes {
		station := "-"
		if !b.Rented {
			station = fmt.Sprintf("%d", b.Station)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%02d:%02d\n", b.Code, station, orDash(b.Client), b.Hour, b.Minute)
	}
	return nil
}

// outputHistory displays journal entries oldest first
func outputHistory(cmd *cobra.Command, entries []journal.Entry) error {
	w := newTable(cmd)
	defer w.Flush()

	fmt.Fprintln(w, "AT\tKIND\tBIKE\tCLIENT\tSTATION")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n",
			e.At.Format("2006-01-02 15:04:05"), e.Kind, e.Bike, e.Client, e.Station)
	}
	return nil
}

// outputCheck displays a consistency report
func outputCheck(cmd *cobra.Command, report *rental.CheckReport) error {
	w := newTable(cmd)
	fmt.Fprintln(w, "STATION\tCOUNTER\tPARKED")
	for _, st := range report.Stations {
		fmt.Fprintf(w, "%d\t%d\t%d\n", st.Station, st.Counter, st.Parked)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	cmd.Printf("Bikes: %d, rented: %d\n", report.Bikes, report.Rented)
	if report.OK() {
		cmd.Printf("No problems found\n")
		return nil
	}
	cmd.Printf("Problems:\n  %s\n", strings.Join(report.Problems, "\n  "))
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
