package notify

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/codefionn/pyrite/internal/config"
)

func testConfig(t *testing.T) *config.ServerConfig {
	t.Helper()
	cfg := config.DefaultConfig(filepath.Join(t.TempDir(), "server.log"))
	cfg.WatchRoot = "/proj"
	t.Cleanup(func() { _ = Clear(cfg) })
	return cfg
}

func TestRestartWriteRead(t *testing.T) {
	cfg := testConfig(t)

	if err := Restart(cfg, RestartMessage); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}

	n, ok, err := Read(cfg)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !ok {
		t.Fatal("Expected a pending notification")
	}
	if n.Message != RestartMessage {
		t.Errorf("Unexpected message: %q", n.Message)
	}
	if n.LogPath != cfg.LogPath {
		t.Errorf("Notification should carry the active configuration, got %q", n.LogPath)
	}
	if n.PID != os.Getpid() {
		t.Errorf("Expected PID %d, got %d", os.Getpid(), n.PID)
	}
}

func TestReadWithoutNotification(t *testing.T) {
	cfg := testConfig(t)

	_, ok, err := Read(cfg)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if ok {
		t.Error("Expected no pending notification")
	}
}

func TestClear(t *testing.T) {
	cfg := testConfig(t)

	if err := Restart(cfg, RestartMessage); err != nil {
		t.Fatalf("Restart failed: %v", err)
	}
	if err := Clear(cfg); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, ok, _ := Read(cfg); ok {
		t.Error("Notification should be gone after Clear")
	}

	// Clearing again is not an error
	if err := Clear(cfg); err != nil {
		t.Errorf("Second Clear failed: %v", err)
	}
}
