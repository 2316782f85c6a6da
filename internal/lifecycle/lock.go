// Package lifecycle manages the daemon's singleton lock, startup
// sequencing and ordered shutdown.
package lifecycle

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// LockHandle represents the acquired singleton lock.
type LockHandle struct {
	Path string
	PID  int
}

// Release removes the PID file. Safe to call more than once.
func (h *LockHandle) Release() error {
	if h == nil || h.Path == "" {
		return nil
	}
	err := os.Remove(h.Path)
	h.Path = ""
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// SingletonError reports a second instance conflict. It carries the live
// PID so the caller can print an instructive message.
type SingletonError struct {
	Path string
	PID  int
}

func (e *SingletonError) Error() string {
	return fmt.Sprintf("another instance is already running with PID %d (lock file %s); stop it or remove the stale lock", e.PID, e.Path)
}

// AcquireLock takes the OS-level PID-file lock. A lock file naming a live
// process fails with SingletonError; a stale file (dead PID, garbage) is
// replaced.
func AcquireLock(path string) (*LockHandle, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create run dir: %w", err)
	}

	for {
		file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			pid := os.Getpid()
			if _, werr := fmt.Fprintf(file, "%d\n", pid); werr != nil {
				file.Close()
				_ = os.Remove(path)
				return nil, fmt.Errorf("write pid file: %w", werr)
			}
			file.Close()
			return &LockHandle{Path: path, PID: pid}, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("create pid file: %w", err)
		}

		pid, readErr := readPIDFile(path)
		if readErr == nil && processAlive(pid) {
			return nil, &SingletonError{Path: path, PID: pid}
		}

		// Stale or unreadable lock: remove and retry the exclusive create.
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) {
			return nil, fmt.Errorf("remove stale pid file: %w", rmErr)
		}
	}
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed pid file")
	}
	return pid, nil
}

// processAlive probes a PID with signal 0.
func processAlive(pid int) bool {
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = process.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}
