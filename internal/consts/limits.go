package consts

import "time"

// Buffer sizes for line I/O
const (
	// BufferSize64KB is 64 kilobytes
	BufferSize64KB = 64 * 1024
)

// Timeouts for various operations
const (
	// Timeout1Second is a 1 second timeout
	Timeout1Second = 1 * time.Second
	// Timeout10Seconds is a 10 second timeout
	Timeout10Seconds = 10 * time.Second
)

// WatchBatchInterval is how long the watcher coalesces change events
// before delivering them as one batch
const WatchBatchInterval = 100 * time.Millisecond
