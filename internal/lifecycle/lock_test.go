package lifecycle

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aidis.pid")

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid != os.Getpid() {
		t.Fatalf("pid file holds %q, want own pid", data)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("pid file should be gone after release")
	}

	// Double release is harmless.
	if err := lock.Release(); err != nil {
		t.Fatalf("second Release() error = %v", err)
	}
}

func TestAcquireConflictWithLiveProcess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aidis.pid")

	// The current process is definitionally alive.
	if err := os.WriteFile(path, []byte(fmt.Sprintf("%d\n", os.Getpid())), 0o600); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	_, err := AcquireLock(path)
	var singleton *SingletonError
	if !errors.As(err, &singleton) {
		t.Fatalf("err = %v, want SingletonError", err)
	}
	if singleton.PID != os.Getpid() {
		t.Fatalf("conflict pid = %d, want %d", singleton.PID, os.Getpid())
	}
	if !strings.Contains(singleton.Error(), strconv.Itoa(os.Getpid())) {
		t.Fatalf("message should name the live pid: %s", singleton.Error())
	}
}

func TestAcquireReplacesStaleLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aidis.pid")

	// PID beyond pid_max is never alive.
	if err := os.WriteFile(path, []byte("999999999\n"), 0o600); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock() over stale lock error = %v", err)
	}
	defer lock.Release()

	if lock.PID != os.Getpid() {
		t.Fatalf("lock pid = %d, want own pid", lock.PID)
	}
}

func TestAcquireReplacesGarbageLock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aidis.pid")
	if err := os.WriteFile(path, []byte("not a pid"), 0o600); err != nil {
		t.Fatalf("seed pid file: %v", err)
	}

	lock, err := AcquireLock(path)
	if err != nil {
		t.Fatalf("AcquireLock() over garbage lock error = %v", err)
	}
	defer lock.Release()
}
