// Package storage is the Storage Engine (spec §4.4): directory
// provisioning, atomic file creation guarded by an advisory lock, existence
// probes, and reads. It never interprets file contents.
package storage

import (
	"os"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// ErrBusy is returned by WriteNew when another writer already holds the
// exclusive lock on the target file. The caller must not retry: a peer is
// materializing the same content, and correctness does not depend on this
// particular write landing (I2, I5).
var ErrBusy = errors.New("storage: file busy")

// EnsureDir creates dir and all missing ancestors. It is idempotent.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "storage: ensure dir %s", dir)
	}
	return nil
}

// Exists reports whether a regular file exists at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// WriteNew creates (or truncates) the file at path, takes an exclusive
// non-blocking advisory lock on the descriptor, writes buf in full, then
// releases the lock and closes. A short write is treated as failure; the
// caller must assume the file is potentially absent on the next read (I2).
//
// Multiple concurrent callers may race to materialize the same rendition;
// at most one wins the flock and the rest return ErrBusy and silently
// discard their copy — all callers for the same path would produce
// byte-identical output, so losing the race loses nothing.
func WriteNew(path string, buf []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return errors.Wrapf(err, "storage: open %s", path)
	}
	defer f.Close()

	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		return ErrBusy
	}
	defer unix.Flock(int(f.Fd()), unix.LOCK_UN|unix.LOCK_NB)

	n, err := f.Write(buf)
	if err != nil {
		return errors.Wrapf(err, "storage: write %s", path)
	}
	if n < len(buf) {
		return errors.Errorf("storage: short write to %s (%d of %d bytes)", path, n, len(buf))
	}
	return nil
}

// ReadAll reads the full contents of path.
func ReadAll(path string) ([]byte, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "storage: read %s", path)
	}
	return buf, nil
}
