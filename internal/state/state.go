// Package state holds the daemon's single mutable server state and the
// container discipline around it: the slot is read once at the start of a
// request and swapped once at its end, never partially updated.
package state

import (
	"sync"

	"github.com/codefionn/pyrite/internal/config"
)

// AnalysisConfig is the configuration derived for the analysis engine from
// the server configuration.
type AnalysisConfig struct {
	Root       string
	Extensions []string
}

// ServerState is one consistent snapshot of the daemon. The environment and
// error index always correspond to the same configuration generation.
type ServerState struct {
	SocketPath     string
	Config         *config.ServerConfig
	AnalysisConfig *AnalysisConfig
	Environment    *Environment
	Errors         *ErrorIndex
}

// Slot is the exclusively-owned holder of the current snapshot. All
// mutation goes through Swap; no component keeps a long-lived reference to
// a snapshot's internals.
type Slot struct {
	mu    sync.Mutex
	state *ServerState
}

// NewSlot creates a slot holding the initial snapshot
func NewSlot(initial *ServerState) *Slot {
	return &Slot{state: initial}
}

// Read returns the current snapshot without blocking on in-flight work
func (s *Slot) Read() *ServerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Swap atomically replaces the snapshot
func (s *Slot) Swap(next *ServerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = next
}

// Lazy defers server state construction until Force is called. The
// orchestrator forces it right after the listener is bound so request
// handling never pays the initialization cost inline.
type Lazy struct {
	once  sync.Once
	init  func() (*ServerState, error)
	state *ServerState
	err   error
}

// NewLazy wraps an initializer without running it
func NewLazy(init func() (*ServerState, error)) *Lazy {
	return &Lazy{init: init}
}

// Force runs the initializer on first call and returns the memoized result
// afterwards.
func (l *Lazy) Force() (*ServerState, error) {
	l.once.Do(func() {
		l.state, l.err = l.init()
	})
	return l.state, l.err
}
