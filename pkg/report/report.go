// Package report exports station and bike state as an XLSX workbook.
package report

import (
	"fmt"
	"io"

	"github.com/ssargent/bicis/pkg/rental"
	"github.com/xuri/excelize/v2"
)

const (
	StationsSheet = "Stations"
	BikesSheet    = "Bikes"
)

// Source is the read side of the rental service
type Source interface {
	AvailableCounts() ([]int, error)
	Bikes() ([]rental.Bike, error)
	Capacity() int
}

// Write builds the workbook from src and writes it to w
func Write(w io.Writer, src Source) error {
	counts, err := src.AvailableCounts()
	if err != nil {
		return err
	}
	bikes, err := src.Bikes()
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", StationsSheet); err != nil {
		return err
	}
	capacity := src.Capacity()
	rows := [][]interface{}{{"Station", "Available", "Free slots", "Capacity"}}
	for i, c := range counts {
		rows = append(rows, []interface{}{i + 1, c, capacity - c, capacity})
	}
	if err := writeRows(f, StationsSheet, rows); err != nil {
		return err
	}

	if _, err := f.NewSheet(BikesSheet); err != nil {
		return err
	}
	rows = [][]interface{}{{"Bike", "State", "Station", "Client", "Last change"}}
	for _, b := range bikes {
		state, station := "parked", interface{}(b.Station)
		if b.Rented {
			state, station = "rented", ""
		}
		rows = append(rows, []interface{}{
			b.Code, state, station, b.Client, fmt.Sprintf("%02d:%02d", b.Hour, b.Minute),
		})
	}
	if err := writeRows(f, BikesSheet, rows); err != nil {
		return err
	}

	return f.Write(w)
}

func writeRows(f *excelize.File, sheet string, rows [][]interface{}) error {
	for r, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, r+1, err)
		}
	}
	return nil
}
