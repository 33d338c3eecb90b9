package store

import (
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ssargent/bicis/pkg/codec"
)

// The counter table is the first Stations integers of the file, one per
// station. Nothing here checks counters against the records; keeping the two
// consistent is up to the caller.

func (s *Store) counterOffset(station int) (int64, error) {
	if station < 0 || station >= s.layout.Stations {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrInvalidStation, station, s.layout.Stations)
	}
	return int64(station) * codec.CounterSize, nil
}

// ReadCounter returns the available count stored for the 0-based station
func (s *Store) ReadCounter(station int) (int, error) {
	if s.closed {
		return 0, ErrClosed
	}
	off, err := s.counterOffset(station)
	if err != nil {
		return 0, err
	}

	buf := make([]byte, codec.CounterSize)
	if err := s.readFull(buf, off, "read counter"); err != nil {
		return 0, err
	}
	v, err := codec.DecodeCounter(buf)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// WriteCounter stores the available count for the 0-based station
func (s *Store) WriteCounter(station int, value int) error {
	if s.closed {
		return ErrClosed
	}
	off, err := s.counterOffset(station)
	if err != nil {
		return err
	}
	if value < math.MinInt32 || value > math.MaxInt32 {
		return fmt.Errorf("%w: station %d value %d", ErrCounterOverflow, station, value)
	}

	if _, err := s.backend.WriteAt(codec.EncodeCounter(int32(value)), off); err != nil {
		return ioError("write counter", err)
	}
	return nil
}

// ReadCounters returns every counter in station order
func (s *Store) ReadCounters() ([]int, error) {
	if s.closed {
		return nil, ErrClosed
	}

	buf := make([]byte, s.layout.HeaderSize())
	if err := s.readFull(buf, 0, "read counter table"); err != nil {
		return nil, err
	}

	counts := make([]int, s.layout.Stations)
	for i := range counts {
		v, err := codec.DecodeCounter(buf[i*codec.CounterSize:])
		if err != nil {
			return nil, err
		}
		counts[i] = int(v)
	}
	return counts, nil
}

func (s *Store) readFull(buf []byte, off int64, op string) error {
	n, err := s.backend.ReadAt(buf, off)
	if n == len(buf) {
		return nil
	}
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %s: short read at offset %d", ErrMalformedRecord, op, off)
	}
	return ioError(op, err)
}
