package store

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ssargent/bicis/pkg/codec"
)

// Store is the bike record store: a counter table followed by a fixed set of
// bike records. Records are rewritten in place and never added or removed
// after the file is seeded.
//
// A Store is not safe for concurrent use. Callers that share one must
// serialize access (rental.Service does this).
type Store struct {
	backend Backend
	layout  Layout
	codec   *codec.RecordCodec
	records int
	seeded  bool
	closed  bool
}

// Open opens the data file at path, creating and seeding it if it does not exist.
func Open(path string, layout Layout) (*Store, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, ioError("create data directory", err)
	}

	_, statErr := os.Stat(path)
	created := errors.Is(statErr, os.ErrNotExist)

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, ioError("open data file", err)
	}

	s, err := OpenBackend(NewFileBackend(file), layout)
	if err != nil {
		file.Close()
		if created {
			// don't leave a half seeded file behind for the next run to trip over
			os.Remove(path)
		}
		return nil, err
	}

	return s, nil
}

// OpenBackend opens a store on an arbitrary backend. An empty backend is seeded.
// The backend is not closed on failure; that stays with the caller.
func OpenBackend(backend Backend, layout Layout) (*Store, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	s := &Store{
		backend: backend,
		layout:  layout,
		codec:   codec.NewRecordCodec(),
	}

	size, err := backend.Size()
	if err != nil {
		return nil, ioError("stat data file", err)
	}

	if size == 0 {
		if err := s.seed(); err != nil {
			return nil, err
		}
		s.seeded = true
		size, err = backend.Size()
		if err != nil {
			return nil, ioError("stat data file", err)
		}
	}

	header := layout.HeaderSize()
	if size < header {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the %d byte counter table",
			ErrLayoutMismatch, size, header)
	}
	if (size-header)%codec.RecordSize != 0 {
		return nil, fmt.Errorf("%w: record region of %d bytes is not a multiple of %d",
			ErrLayoutMismatch, size-header, codec.RecordSize)
	}
	s.records = int((size - header) / codec.RecordSize)

	return s, nil
}

// seed writes the counter table and the initial bikes in a single write.
// Every station starts half full; codes are assigned in station order.
func (s *Store) seed() error {
	perStation := s.layout.SeedPerStation()
	total := s.layout.Stations * perStation
	buf := make([]byte, s.layout.HeaderSize()+int64(total)*codec.RecordSize)

	for st := 0; st < s.layout.Stations; st++ {
		copy(buf[st*codec.CounterSize:], codec.EncodeCounter(int32(perStation)))
	}

	off := s.layout.HeaderSize()
	ct := 0
	for st := 0; st < s.layout.Stations; st++ {
		for i := 0; i < perStation; i++ {
			bike := &codec.Bike{
				Code:    SeedCode(ct),
				Station: int32(st),
			}
			s.codec.EncodeTo(buf[off:off+codec.RecordSize], bike)
			off += codec.RecordSize
			ct++
		}
	}

	if _, err := s.backend.WriteAt(buf, 0); err != nil {
		return ioError("seed data file", err)
	}
	if err := s.backend.Sync(); err != nil {
		return ioError("sync data file", err)
	}
	return nil
}

// SeedCode returns the code given to the n-th seeded bike
func SeedCode(n int) string {
	return fmt.Sprintf("B%03d", n)
}

// Layout returns the store layout
func (s *Store) Layout() Layout {
	return s.layout
}

// Records returns the number of bike records
func (s *Store) Records() int {
	return s.records
}

// Seeded reports whether Open created the file
func (s *Store) Seeded() bool {
	return s.seeded
}

// RecordOffset returns the byte offset of the i-th record
func (s *Store) RecordOffset(i int) int64 {
	return s.layout.HeaderSize() + int64(i)*codec.RecordSize
}

func (s *Store) checkOffset(offset int64) error {
	header := s.layout.HeaderSize()
	if offset < header || (offset-header)%codec.RecordSize != 0 ||
		offset >= s.RecordOffset(s.records) {
		return fmt.Errorf("%w: %d", ErrInvalidOffset, offset)
	}
	return nil
}

// ReadRecord reads the record at offset
func (s *Store) ReadRecord(offset int64) (*codec.Bike, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if err := s.checkOffset(offset); err != nil {
		return nil, err
	}

	buf := make([]byte, codec.RecordSize)
	n, err := s.backend.ReadAt(buf, offset)
	if err != nil && !(errors.Is(err, io.EOF) && n == len(buf)) {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: short read at offset %d", ErrMalformedRecord, offset)
		}
		return nil, ioError("read record", err)
	}

	return s.decode(buf, offset)
}

func (s *Store) decode(buf []byte, offset int64) (*codec.Bike, error) {
	bike, err := s.codec.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("offset %d: %w", offset, err)
	}
	if int(bike.Station) >= s.layout.Stations {
		return nil, fmt.Errorf("%w: offset %d: station %d outside layout",
			ErrMalformedRecord, offset, bike.Station)
	}
	return bike, nil
}

// WriteRecord rewrites the record at offset in place. A bike that would not
// decode back is refused before anything is written.
func (s *Store) WriteRecord(offset int64, bike *codec.Bike) error {
	if s.closed {
		return ErrClosed
	}
	if err := s.checkOffset(offset); err != nil {
		return err
	}
	if err := codec.Validate(bike); err != nil {
		return fmt.Errorf("offset %d: %w", offset, err)
	}
	if int(bike.Station) >= s.layout.Stations {
		return fmt.Errorf("%w: offset %d: station %d outside layout", ErrInvalidStation, offset, bike.Station)
	}
	if _, err := s.backend.WriteAt(s.codec.Encode(bike), offset); err != nil {
		return ioError("write record", err)
	}
	return nil
}

// Sync flushes the backend to stable storage
func (s *Store) Sync() error {
	if s.closed {
		return ErrClosed
	}
	if err := s.backend.Sync(); err != nil {
		return ioError("sync data file", err)
	}
	return nil
}

// Snapshot copies the raw data file to w
func (s *Store) Snapshot(w io.Writer) (int64, error) {
	if s.closed {
		return 0, ErrClosed
	}
	size, err := s.backend.Size()
	if err != nil {
		return 0, ioError("stat data file", err)
	}
	n, err := io.Copy(w, io.NewSectionReader(s.backend, 0, size))
	if err != nil {
		return n, ioError("snapshot", err)
	}
	return n, nil
}

// Close releases the backend. Closing twice is a no-op.
func (s *Store) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.backend.Close(); err != nil {
		return ioError("close data file", err)
	}
	return nil
}
