package socketutil

import (
	"net"
	"os"
	"path/filepath"
	"testing"
)

func TestDetectMissingSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.sock")
	if DetectRunningServer(path) {
		t.Error("A missing socket file must not count as a running server")
	}
}

func TestDetectEmptyPath(t *testing.T) {
	if DetectRunningServer("") {
		t.Error("An empty path must not count as a running server")
	}
}

func TestDetectPlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.sock")
	if err := os.WriteFile(path, []byte("not a socket"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if DetectRunningServer(path) {
		t.Error("A regular file must not count as a running server")
	}
}

func TestDetectLiveListener(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	if !DetectRunningServer(path) {
		t.Error("A live listener must be detected")
	}
}

func TestDetectAbandonedSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dead.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	// Closing removes the listener but we recreate the file to simulate a
	// crashed server leaving its socket behind
	listener.Close()

	if _, err := os.Stat(path); err == nil {
		if DetectRunningServer(path) {
			t.Error("A socket file with no listener must not count as running")
		}
	}
}

func TestRemoveStaleSocket(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stale.sock")
	if err := os.WriteFile(path, []byte("leftover"), 0644); err != nil {
		t.Fatalf("Failed to create file: %v", err)
	}

	if err := RemoveStaleSocket(path); err != nil {
		t.Fatalf("RemoveStaleSocket failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Stale socket file should have been removed")
	}
}

func TestRemoveStaleSocketMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.sock")
	if err := RemoveStaleSocket(path); err != nil {
		t.Errorf("Removing a missing socket should not fail: %v", err)
	}
}

func TestRemoveStaleSocketKeepsLiveServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "live.sock")
	listener, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("Failed to listen: %v", err)
	}
	defer listener.Close()

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()

	if err := RemoveStaleSocket(path); err != nil {
		t.Fatalf("RemoveStaleSocket failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Error("A live server's socket must not be removed")
	}
}
