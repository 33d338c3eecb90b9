package store

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ssargent/bicis/pkg/codec"
)

// Predicate selects bike records during a scan
type Predicate func(*codec.Bike) bool

// ParkedAt matches bikes parked at the 0-based station
func ParkedAt(station int) Predicate {
	return func(b *codec.Bike) bool { return b.ParkedAt(station) }
}

// WithCode matches the bike with the given code
func WithCode(code string) Predicate {
	return func(b *codec.Bike) bool { return b.Code == code }
}

// RentedBy matches bikes currently held by client
func RentedBy(client string) Predicate {
	return func(b *codec.Bike) bool { return b.HeldBy(client) }
}

// Scanner reads records sequentially from the start of the record region to
// the end of the data. Running out of data is the normal end of a scan, not an
// error; Err only reports I/O failures and corrupt records.
type Scanner struct {
	store  *Store
	reader *bufio.Reader
	buf    []byte
	offset int64 // offset of the current record
	next   int64 // offset of the record Next will read
	bike   *codec.Bike
	err    error
}

// Scan returns a scanner positioned at the first record
func (s *Store) Scan() *Scanner {
	header := s.layout.HeaderSize()
	sc := &Scanner{
		store:  s,
		buf:    make([]byte, codec.RecordSize),
		offset: -1,
		next:   header,
	}
	if s.closed {
		sc.err = ErrClosed
		return sc
	}
	section := io.NewSectionReader(s.backend, header, math.MaxInt64-header)
	sc.reader = bufio.NewReaderSize(section, 64*codec.RecordSize)
	return sc
}

// Next advances to the next record. It returns false at the end of the data
// or on error.
func (sc *Scanner) Next() bool {
	if sc.err != nil || sc.reader == nil {
		return false
	}

	n, err := io.ReadFull(sc.reader, sc.buf)
	switch {
	case err == nil:
	case errors.Is(err, io.EOF) && n == 0:
		// clean end exactly on a record boundary
		sc.reader = nil
		sc.bike = nil
		return false
	case errors.Is(err, io.ErrUnexpectedEOF):
		sc.err = fmt.Errorf("%w: truncated record at offset %d (%d of %d bytes)",
			ErrMalformedRecord, sc.next, n, codec.RecordSize)
		return false
	default:
		sc.err = ioError("scan records", err)
		return false
	}

	bike, err := sc.store.decode(sc.buf, sc.next)
	if err != nil {
		sc.err = err
		return false
	}

	sc.bike = bike
	sc.offset = sc.next
	sc.next += codec.RecordSize
	return true
}

// Bike returns the current record
func (sc *Scanner) Bike() *codec.Bike {
	return sc.bike
}

// Offset returns the byte offset of the current record
func (sc *Scanner) Offset() int64 {
	return sc.offset
}

// Err returns the first error met by the scan
func (sc *Scanner) Err() error {
	return sc.err
}

// FindFirst returns the offset of the first record in physical order matching
// pred. found is false when the data is exhausted without a match.
func (s *Store) FindFirst(pred Predicate) (offset int64, found bool, err error) {
	sc := s.Scan()
	for sc.Next() {
		if pred(sc.Bike()) {
			return sc.Offset(), true, nil
		}
	}
	return -1, false, sc.Err()
}

// FindByStation locates the first bike parked at the 0-based station
func (s *Store) FindByStation(station int) (int64, bool, error) {
	return s.FindFirst(ParkedAt(station))
}

// FindByCode locates the bike with the given code
func (s *Store) FindByCode(code string) (int64, bool, error) {
	return s.FindFirst(WithCode(code))
}

// ForEach calls fn for every record in physical order until fn returns false
func (s *Store) ForEach(fn func(offset int64, bike *codec.Bike) bool) error {
	sc := s.Scan()
	for sc.Next() {
		if !fn(sc.Offset(), sc.Bike()) {
			break
		}
	}
	return sc.Err()
}
