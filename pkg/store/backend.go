package store

import (
	"io"
	"os"
	"sync"
)

// Backend is the byte storage behind a Store. Records are addressed by
// absolute offset, so only positional reads and writes are needed.
type Backend interface {
	io.ReaderAt
	io.WriterAt
	Size() (int64, error)
	Sync() error
	Close() error
}

// FileBackend stores data in a regular file
type FileBackend struct {
	file *os.File
}

// NewFileBackend wraps an open read-write file
func NewFileBackend(file *os.File) *FileBackend {
	return &FileBackend{file: file}
}

func (b *FileBackend) ReadAt(p []byte, off int64) (int, error) {
	return b.file.ReadAt(p, off)
}

func (b *FileBackend) WriteAt(p []byte, off int64) (int, error) {
	return b.file.WriteAt(p, off)
}

// Size returns the current file length
func (b *FileBackend) Size() (int64, error) {
	stat, err := b.file.Stat()
	if err != nil {
		return 0, err
	}
	return stat.Size(), nil
}

func (b *FileBackend) Sync() error {
	return b.file.Sync()
}

func (b *FileBackend) Close() error {
	return b.file.Close()
}

// Path returns the file path
func (b *FileBackend) Path() string {
	return b.file.Name()
}

// MemoryBackend keeps the whole data file in a byte slice. Slots never move
// once written, so it behaves like the file for any offset-based access.
type MemoryBackend struct {
	mutex sync.RWMutex
	data  []byte
}

// NewMemoryBackend creates a memory backend, optionally preloaded with data
func NewMemoryBackend(data []byte) *MemoryBackend {
	return &MemoryBackend{data: append([]byte(nil), data...)}
}

func (b *MemoryBackend) ReadAt(p []byte, off int64) (int, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	if off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *MemoryBackend) WriteAt(p []byte, off int64) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if end := off + int64(len(p)); end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	return copy(b.data[off:], p), nil
}

func (b *MemoryBackend) Size() (int64, error) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return int64(len(b.data)), nil
}

func (b *MemoryBackend) Sync() error {
	return nil
}

func (b *MemoryBackend) Close() error {
	return nil
}

// Bytes returns a copy of the stored data
func (b *MemoryBackend) Bytes() []byte {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return append([]byte(nil), b.data...)
}
