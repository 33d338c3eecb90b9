// Package backup writes and reads zstd-compressed copies of a data file.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

var (
	// ErrTargetExists is returned when a restore would overwrite an existing file
	ErrTargetExists = errors.New("restore target already exists")
	// ErrEmptyBackup is returned when a backup decompresses to nothing
	ErrEmptyBackup = errors.New("backup is empty")
	// ErrInvalidBackup is returned when a restored file fails validation
	ErrInvalidBackup = errors.New("backup is not a valid data file")
)

// Source produces the raw bytes to back up. *store.Store satisfies it.
type Source interface {
	Snapshot(w io.Writer) (int64, error)
}

// Write compresses a snapshot of src into w and returns the uncompressed size
func Write(w io.Writer, src Source) (int64, error) {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	if err != nil {
		return 0, err
	}

	n, err := src.Snapshot(enc)
	if err != nil {
		enc.Close()
		return n, fmt.Errorf("failed to snapshot data file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return n, fmt.Errorf("failed to finish backup: %w", err)
	}
	return n, nil
}

// WriteFile writes a compressed backup of src to path
func WriteFile(path string, src Source) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return 0, err
	}

	n, err := Write(f, src)
	if err != nil {
		f.Close()
		os.Remove(path)
		return n, err
	}
	return n, f.Close()
}

// Restore decompresses a backup from r into w
func Restore(w io.Writer, r io.Reader) (int64, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return 0, err
	}
	defer dec.Close()

	n, err := io.Copy(w, dec)
	if err != nil {
		return n, fmt.Errorf("failed to decompress backup: %w", err)
	}
	return n, nil
}

// Validator checks a restored file before it is moved over the target
type Validator func(path string) error

// RestoreFile decompresses the backup at src into a temporary file next to
// dst, checks it, and renames it over dst. An existing dst is only replaced
// when force is set, and is never touched when the backup turns out to be
// unreadable, empty or rejected by validate. validate may be nil.
func RestoreFile(dst, src string, force bool, validate Validator) (int64, error) {
	if !force && exists(dst) {
		return 0, fmt.Errorf("%w: %s", ErrTargetExists, dst)
	}

	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return 0, err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(dst)+".restore-*")
	if err != nil {
		return 0, err
	}
	tmpPath := tmp.Name()
	renamed := false
	defer func() {
		if !renamed {
			os.Remove(tmpPath)
		}
	}()

	n, err := Restore(tmp, in)
	if err != nil {
		tmp.Close()
		return n, err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return n, err
	}
	if err := tmp.Close(); err != nil {
		return n, err
	}

	if n == 0 {
		return 0, ErrEmptyBackup
	}
	if validate != nil {
		if err := validate(tmpPath); err != nil {
			return n, fmt.Errorf("%w: %w", ErrInvalidBackup, err)
		}
	}

	if !force && exists(dst) {
		return n, fmt.Errorf("%w: %s", ErrTargetExists, dst)
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return n, err
	}
	renamed = true
	return n, nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
