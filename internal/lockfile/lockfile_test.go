package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	lock := New(path)
	if err := lock.TryAcquire(); err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}

	if _, err := os.Stat(path); err != nil {
		t.Errorf("Lockfile should exist after acquire: %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Lockfile should be gone after release")
	}
}

func TestSecondAcquireFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	first := New(path)
	if err := first.TryAcquire(); err != nil {
		t.Fatalf("First TryAcquire failed: %v", err)
	}
	defer first.Release()

	second := New(path)
	err := second.TryAcquire()
	if !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked, got %v", err)
	}
}

func TestReacquireAfterRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	lock := New(path)
	if err := lock.TryAcquire(); err != nil {
		t.Fatalf("TryAcquire failed: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	other := New(path)
	if err := other.TryAcquire(); err != nil {
		t.Errorf("Reacquire after release failed: %v", err)
	}
	other.Release()
}

func TestStaleLockfileIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	// A lockfile left behind by a long-dead process
	content := fmt.Sprintf("%d\n2026-01-01T00:00:00Z\n", 99999999)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write stale lockfile: %v", err)
	}

	lock := New(path)
	if err := lock.TryAcquire(); err != nil {
		t.Fatalf("Acquiring over a stale lockfile failed: %v", err)
	}
	defer lock.Release()
}

func TestUnparsableLockfileIsReplaced(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.lock")

	if err := os.WriteFile(path, []byte("garbage\n"), 0644); err != nil {
		t.Fatalf("Failed to write lockfile: %v", err)
	}

	lock := New(path)
	if err := lock.TryAcquire(); err != nil {
		t.Fatalf("Acquiring over an unparsable lockfile failed: %v", err)
	}
	defer lock.Release()
}

func TestReleaseWithoutAcquire(t *testing.T) {
	lock := New(filepath.Join(t.TempDir(), "test.lock"))
	if err := lock.Release(); err != nil {
		t.Errorf("Release without acquire should be a no-op: %v", err)
	}
}
