package instancelock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

const (
	// DefaultLockDir is used when no lock directory is configured.
	DefaultLockDir = "/tmp"

	// unreadable lock files younger than this may still be being written
	staleAfter = 5 * time.Minute
)

// HeldError means another live server holds the lock.
type HeldError struct {
	Path string
	PID  int
}

func (e *HeldError) Error() string {
	return fmt.Sprintf("another netbox-mcp server is already running for this instance (PID: %d, lock: %s)", e.PID, e.Path)
}

// ErrBusy means a lock file exists that cannot be attributed to a process yet.
var ErrBusy = errors.New("lock file exists, another server may be starting")

// FileName returns the lock file name for a NetBox instance id, so servers
// for different NetBox instances do not exclude each other.
func FileName(instanceID string) string {
	if instanceID == "" {
		return "netbox-mcp.lock"
	}
	return "netbox-mcp-" + instanceID + ".lock"
}

// Lock is a PID file that keeps a second server from writing to the same
// journal.
type Lock struct {
	path string
	file *os.File
	held bool
}

// New creates a lock for instanceID in dir.
func New(dir, instanceID string) *Lock {
	if dir == "" {
		dir = DefaultLockDir
	}
	return &Lock{path: filepath.Join(dir, FileName(instanceID))}
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}

// Held reports whether this process holds the lock.
func (l *Lock) Held() bool {
	return l.held
}

func readPID(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

// running reports whether pid is a live process. Signal 0 only probes.
func running(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}

// clearStale removes a lock file left behind by a dead process. It returns
// a *HeldError when the owner is alive and ErrBusy when the file is too new
// to judge.
func (l *Lock) clearStale() error {
	info, err := os.Stat(l.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat lock file: %w", err)
	}

	pid, err := readPID(l.path)
	switch {
	case err == nil && running(pid):
		return &HeldError{Path: l.path, PID: pid}
	case err != nil && time.Since(info.ModTime()) < staleAfter:
		return ErrBusy
	}

	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stale lock file: %w", err)
	}
	return nil
}

// TryAcquire takes the lock once.
func (l *Lock) TryAcquire() error {
	if l.held {
		return nil
	}
	if err := l.clearStale(); err != nil {
		return err
	}

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		if os.IsExist(err) {
			return ErrBusy
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}

	if _, err := fmt.Fprintf(file, "%d\n", os.Getpid()); err != nil {
		file.Close()
		os.Remove(l.path)
		return fmt.Errorf("failed to write PID to lock file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(l.path)
		return fmt.Errorf("failed to sync lock file: %w", err)
	}

	l.file = file
	l.held = true
	return nil
}

// Acquire retries TryAcquire while the lock is busy. A live holder fails
// immediately.
func (l *Lock) Acquire(ctx context.Context, attempts int, delay time.Duration) error {
	var err error
	for i := 0; i < max(attempts, 1); i++ {
		if err = l.TryAcquire(); err == nil {
			return nil
		}
		var held *HeldError
		if errors.As(err, &held) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return fmt.Errorf("failed to acquire lock after %d attempts: %w", attempts, err)
}

// Release gives the lock up. Releasing a lock that is not held is a no-op.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false

	var errs []error
	if l.file != nil {
		if err := l.file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close lock file: %w", err))
		}
		l.file = nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		errs = append(errs, fmt.Errorf("failed to remove lock file: %w", err))
	}
	return errors.Join(errs...)
}

// Holder returns the PID of the live server holding the lock for
// instanceID in dir, or 0 when there is none.
func Holder(dir, instanceID string) (int, error) {
	path := New(dir, instanceID).path
	pid, err := readPID(path)
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("invalid lock file %s: %w", path, err)
	}
	if !running(pid) {
		return 0, nil
	}
	return pid, nil
}
