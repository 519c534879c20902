// Package socketutil detects whether a daemon is already serving at a
// resolved socket path.
package socketutil

import (
	"net"
	"os"

	"github.com/codefionn/pyrite/internal/consts"
	"github.com/codefionn/pyrite/internal/logger"
)

// DetectRunningServer checks whether an active server answers at the given
// socket path:
//  1. the socket file must exist,
//  2. it must actually be a socket,
//  3. a connection attempt must succeed.
//
// A leftover socket file with no listener behind it returns false.
func DetectRunningServer(socketPath string) bool {
	if socketPath == "" {
		return false
	}

	info, err := os.Stat(socketPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debug("Socket detection: cannot stat %s: %v", socketPath, err)
		}
		return false
	}

	if info.Mode()&os.ModeSocket == 0 {
		logger.Debug("Socket detection: %s exists but is not a socket", socketPath)
		return false
	}

	conn, err := net.DialTimeout("unix", socketPath, consts.Timeout1Second)
	if err != nil {
		logger.Debug("Socket detection: %s not answering: %v", socketPath, err)
		return false
	}
	_ = conn.Close()

	return true
}

// RemoveStaleSocket removes a socket file that no server answers on.
// Returns an error only when an existing file cannot be removed.
func RemoveStaleSocket(socketPath string) error {
	if DetectRunningServer(socketPath) {
		return nil
	}
	if err := os.Remove(socketPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
