// Package notify implements the restart notification side channel: a JSON
// marker file an external supervisor polls to learn the daemon needs a
// restart.
package notify

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/codefionn/pyrite/internal/config"
	"github.com/codefionn/pyrite/internal/socketpath"
)

// RestartMessage is the fixed message emitted when crash containment fires
const RestartMessage = "Pyre server restarting due to unexpected failure"

// Notification is the marker file payload
type Notification struct {
	Message   string `json:"message"`
	LogPath   string `json:"log_path"`
	WatchRoot string `json:"watch_root,omitempty"`
	PID       int    `json:"pid"`
	Timestamp string `json:"timestamp"`
}

// MarkerPath returns the notification file location for a server identity
func MarkerPath(cfg *config.ServerConfig) string {
	return filepath.Join(os.TempDir(), socketpath.Prefix+socketpath.Digest(cfg.LogPath)+".restart")
}

// Restart writes the restart notification for the active configuration
func Restart(cfg *config.ServerConfig, message string) error {
	n := Notification{
		Message:   message,
		LogPath:   cfg.LogPath,
		WatchRoot: cfg.WatchRoot,
		PID:       os.Getpid(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal restart notification: %w", err)
	}

	if err := os.WriteFile(MarkerPath(cfg), data, 0644); err != nil {
		return fmt.Errorf("failed to write restart notification: %w", err)
	}
	return nil
}

// Clear removes a previously written notification, if any
func Clear(cfg *config.ServerConfig) error {
	if err := os.Remove(MarkerPath(cfg)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Read loads a pending notification; the boolean reports whether one exists
func Read(cfg *config.ServerConfig) (*Notification, bool, error) {
	data, err := os.ReadFile(MarkerPath(cfg))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return nil, false, fmt.Errorf("invalid restart notification: %w", err)
	}
	return &n, true, nil
}
