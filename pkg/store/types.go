package store

import (
	"fmt"

	"github.com/ssargent/bicis/pkg/codec"
)

// Layout describes the fixed shape of a data file
type Layout struct {
	Stations int // Number of stations (counter table length)
	Capacity int // Maximum bikes parked at one station
}

// DefaultLayout matches the default seeding: 5 stations of 10 slots
func DefaultLayout() Layout {
	return Layout{Stations: 5, Capacity: 10}
}

// Validate checks that the layout can be seeded
func (l Layout) Validate() error {
	if l.Stations < 1 {
		return fmt.Errorf("%w: stations must be positive, got %d", ErrInvalidLayout, l.Stations)
	}
	if l.Capacity < 1 {
		return fmt.Errorf("%w: capacity must be positive, got %d", ErrInvalidLayout, l.Capacity)
	}
	return nil
}

// HeaderSize is the byte length of the counter table
func (l Layout) HeaderSize() int64 {
	return int64(l.Stations) * codec.CounterSize
}

// SeedPerStation is the number of bikes parked at each station when the file is created
func (l Layout) SeedPerStation() int {
	return l.Capacity / 2
}

// Errors
var (
	ErrIO              = &StoreError{"i/o failure"}
	ErrInvalidStation  = &StoreError{"invalid station"}
	ErrInvalidOffset   = &StoreError{"offset is not a record boundary"}
	ErrLayoutMismatch  = &StoreError{"data file does not match layout"}
	ErrInvalidLayout   = &StoreError{"invalid layout"}
	ErrCounterOverflow = &StoreError{"counter value overflows int32"}
	ErrClosed          = &StoreError{"store is closed"}
	ErrMalformedRecord = codec.ErrMalformedRecord
)

// StoreError represents a record store error
type StoreError struct {
	Message string
}

func (e *StoreError) Error() string {
	return e.Message
}

func ioError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrIO, op, err)
}
