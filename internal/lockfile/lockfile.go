// Package lockfile implements the daemon's single-instance guarantee
// (spec.md §4.10): an exclusive, non-blocking flock on a PID file that is
// only truncated and rewritten once the lock is actually held, so a failed
// lock attempt never destroys another daemon's PID file.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// ErrLocked is returned when another process already holds the lock.
var ErrLocked = errors.New("lockfile: already locked by another process")

// Lock holds an acquired exclusive lock on a daemon state directory's PID
// file. The zero value is not usable; construct with Acquire.
type Lock struct {
	path string
	file *os.File
}

// Acquire opens (or creates) the PID file at path and takes a non-blocking
// exclusive flock on it, without truncating any prior content first. Only
// once the lock is held does it truncate and write pid, per spec.md's
// startup step 1: "LockFailed → do not delete any daemon-owned files."
func Acquire(path string, pid int) (*Lock, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("lockfile: open %s: %w", path, err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()
		if err == syscall.EWOULDBLOCK {
			return nil, ErrLocked
		}
		return nil, fmt.Errorf("lockfile: flock %s: %w", path, err)
	}

	if err := f.Truncate(0); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("lockfile: truncate %s: %w", path, err)
	}
	if _, err := f.WriteAt([]byte(strconv.Itoa(pid)+"\n"), 0); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("lockfile: write %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		f.Close()
		return nil, fmt.Errorf("lockfile: sync %s: %w", path, err)
	}

	return &Lock{path: path, file: f}, nil
}

// ReadPID reads the PID currently recorded at path without acquiring the
// lock, used to report who's holding it when Acquire fails.
func ReadPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// Release unlocks and closes the PID file. It does not remove it; callers
// remove the file explicitly as part of an orderly shutdown so a crash
// leaves the PID file in place as evidence for the next Acquire's error.
func (l *Lock) Release() error {
	syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	return l.file.Close()
}

// Remove deletes the PID file. Call only after Release, during clean
// shutdown.
func (l *Lock) Remove() error {
	err := os.Remove(l.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
