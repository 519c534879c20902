// Package lockfile provides file-based locking for single instance
// enforcement.
package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrLocked is returned when another live process holds the lock
var ErrLocked = errors.New("process is already running")

// Lockfile represents a file-based lock
type Lockfile struct {
	path   string
	file   *os.File
	locked bool
}

// New creates a new lockfile instance
func New(path string) *Lockfile {
	return &Lockfile{path: path}
}

// TryAcquire attempts to acquire the lock. A lockfile whose recorded PID is
// no longer running is treated as stale and replaced.
func (l *Lockfile) TryAcquire() error {
	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create lockfile directory: %w", err)
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		if !os.IsExist(err) {
			return fmt.Errorf("failed to create lockfile: %w", err)
		}

		stale, reason := l.checkStale()
		if !stale {
			return fmt.Errorf("%w (lockfile %s)", ErrLocked, l.path)
		}

		if removeErr := os.Remove(l.path); removeErr != nil {
			return fmt.Errorf("failed to remove stale lockfile (%s): %w", reason, removeErr)
		}
		file, err = os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
		if err != nil {
			return fmt.Errorf("failed to create lockfile after removing stale one: %w", err)
		}
	}

	l.file = file
	l.locked = true

	content := fmt.Sprintf("%d\n%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
	if _, err := l.file.WriteString(content); err != nil {
		l.Release()
		return fmt.Errorf("failed to write to lockfile: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		l.Release()
		return fmt.Errorf("failed to sync lockfile: %w", err)
	}

	return nil
}

// checkStale reports whether the existing lockfile belongs to a dead
// process.
func (l *Lockfile) checkStale() (bool, string) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return false, ""
	}

	lines := strings.SplitN(string(data), "\n", 2)
	pid, err := strconv.Atoi(strings.TrimSpace(lines[0]))
	if err != nil {
		return true, "unparsable PID"
	}

	running, reason := isProcessRunning(pid)
	if running {
		return false, ""
	}
	return true, reason
}

// Release releases the lock and removes the lockfile
func (l *Lockfile) Release() error {
	if !l.locked {
		return nil
	}
	l.locked = false

	var firstErr error
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			firstErr = err
		}
		l.file = nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// Path returns the lockfile path
func (l *Lockfile) Path() string {
	return l.path
}
