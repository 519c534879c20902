// Package socketpath derives the daemon's socket location from its logical
// identifier.
package socketpath

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/cespare/xxhash/v2"
)

// Prefix is the socket filename prefix shared by all server instances
const Prefix = "pyre_server_"

// Resolve derives the filesystem path of the Unix socket for the server
// identified by logPath. The same identifier always maps to the same path,
// so a second invocation can find an already-running daemon. The digest
// keeps the path short regardless of identifier length; it is not a
// cryptographic guarantee against collisions.
func Resolve(logPath string) string {
	return filepath.Join(os.TempDir(), Prefix+Digest(logPath)+".sock")
}

// Digest returns the fixed-length hex digest of the canonical absolute
// form of the identifier.
func Digest(logPath string) string {
	absPath := logPath
	if !filepath.IsAbs(logPath) {
		if abs, err := filepath.Abs(logPath); err == nil {
			absPath = abs
		}
	}
	absPath = filepath.Clean(absPath)

	return fmt.Sprintf("%016x", xxhash.Sum64String(absPath))
}
