// Package journal keeps the history of committed rentals and returns in a
// pebble database next to the data file.
package journal

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/bicis/pkg/rental"
)

var (
	keyPrefix = []byte("t/")
	keyEnd    = []byte("t0") // '0' sorts right after '/'
)

// Entry is one recorded transition
type Entry struct {
	ID  ksuid.KSUID `json:"id"`
	Seq uint64      `json:"seq"`
	rental.Transition
}

// Journal is an append-only transition log. Keys are a monotonically
// increasing sequence so iteration order is commit order. Record may be
// called from several goroutines.
type Journal struct {
	mutex sync.Mutex
	db    *pebble.DB
	seq   uint64
	sync  bool
}

// Open opens or creates a journal in dir
func Open(dir string) (*Journal, error) {
	return open(dir, &pebble.Options{}, true)
}

// OpenInMemory creates a journal that lives only as long as the process
func OpenInMemory() (*Journal, error) {
	return open("", &pebble.Options{FS: vfs.NewMem()}, false)
}

func open(dir string, opts *pebble.Options, sync bool) (*Journal, error) {
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}

	j := &Journal{db: db, sync: sync}
	if err := j.loadSeq(); err != nil {
		db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) loadSeq() error {
	iter, err := j.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyEnd})
	if err != nil {
		return err
	}
	defer iter.Close()

	if iter.Last() {
		j.seq = binary.BigEndian.Uint64(iter.Key()[len(keyPrefix):])
	}
	return nil
}

func seqKey(seq uint64) []byte {
	key := make([]byte, len(keyPrefix)+8)
	copy(key, keyPrefix)
	binary.BigEndian.PutUint64(key[len(keyPrefix):], seq)
	return key
}

// Record appends a transition. It satisfies rental.Recorder.
func (j *Journal) Record(t rental.Transition) error {
	id, err := ksuid.NewRandomWithTime(t.At)
	if err != nil {
		return fmt.Errorf("failed to generate entry id: %w", err)
	}

	j.mutex.Lock()
	defer j.mutex.Unlock()

	seq := j.seq + 1
	data, err := json.Marshal(Entry{ID: id, Seq: seq, Transition: t})
	if err != nil {
		return err
	}

	opts := pebble.NoSync
	if j.sync {
		opts = pebble.Sync
	}
	if err := j.db.Set(seqKey(seq), data, opts); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	j.seq = seq
	return nil
}

// List returns up to limit of the most recent entries, oldest first.
// A limit of zero or less returns everything.
func (j *Journal) List(limit int) ([]Entry, error) {
	return j.collect(limit, func(Entry) bool { return true })
}

// ForBike returns every entry for the given bike, oldest first
func (j *Journal) ForBike(code string) ([]Entry, error) {
	return j.collect(0, func(e Entry) bool { return e.Bike == code })
}

// ForClient returns every entry made by the given client, oldest first
func (j *Journal) ForClient(client string) ([]Entry, error) {
	return j.collect(0, func(e Entry) bool { return e.Client == client })
}

// collect walks backwards from the newest entry so a limit only touches the tail
func (j *Journal) collect(limit int, keep func(Entry) bool) ([]Entry, error) {
	iter, err := j.db.NewIter(&pebble.IterOptions{LowerBound: keyPrefix, UpperBound: keyEnd})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var entries []Entry
	for valid := iter.Last(); valid; valid = iter.Prev() {
		var e Entry
		if err := json.Unmarshal(iter.Value(), &e); err != nil {
			return nil, fmt.Errorf("corrupt journal entry %x: %w", iter.Key(), err)
		}
		if !keep(e) {
			continue
		}
		entries = append(entries, e)
		if limit > 0 && len(entries) == limit {
			break
		}
	}

	for i, k := 0, len(entries)-1; i < k; i, k = i+1, k-1 {
		entries[i], entries[k] = entries[k], entries[i]
	}
	return entries, nil
}

// Close closes the journal database
func (j *Journal) Close() error {
	return j.db.Close()
}
