// Package server ties the daemon's session layer together: socket
// lifecycle, connection handling, the watcher bridge, and the guarded
// request pipeline around the server state slot.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/codefionn/pyrite/internal/analysis"
	"github.com/codefionn/pyrite/internal/config"
	"github.com/codefionn/pyrite/internal/logger"
	"github.com/codefionn/pyrite/internal/protocol"
	"github.com/codefionn/pyrite/internal/sigwait"
	"github.com/codefionn/pyrite/internal/socketpath"
	"github.com/codefionn/pyrite/internal/socketutil"
	"github.com/codefionn/pyrite/internal/state"
	"github.com/codefionn/pyrite/internal/watcher"
)

// ReadyFunc is the continuation run once the server is serving. When it
// returns, the serving phase ends. The default waits for a termination
// signal.
type ReadyFunc func(ctx context.Context) error

// InitFunc builds the first server state snapshot. It is prepared at
// construction and forced right after the listener is bound.
type InitFunc func() (*state.ServerState, error)

// Server is the lifecycle orchestrator
type Server struct {
	cfg        *config.ServerConfig
	socketPath string
	slot       *state.Slot
	lazy       *state.Lazy
	pipeline   *Pipeline

	listener     net.Listener
	listenOnce   sync.Once
	subscription *watcher.Subscription
	teardownOnce sync.Once

	connMu    sync.Mutex
	conns     map[string]net.Conn
	connCount int

	stopServing context.CancelFunc
	fatalMu     sync.Mutex
	fatalErr    error

	wg sync.WaitGroup
}

// New prepares a server: the socket path is resolved and the lazy state
// initializer is captured, but nothing runs until Run.
func New(cfg *config.ServerConfig, engine analysis.Engine, initState InitFunc) *Server {
	path := cfg.SocketPath
	if path == "" {
		path = socketpath.Resolve(cfg.LogPath)
	}

	s := &Server{
		cfg:        cfg,
		socketPath: path,
		slot:       state.NewSlot(nil),
		conns:      make(map[string]net.Conn),
	}
	s.lazy = state.NewLazy(initState)
	s.pipeline = NewPipeline(s.slot, engine, cfg)
	return s
}

// SocketPath returns the resolved socket location
func (s *Server) SocketPath() string {
	return s.socketPath
}

// Run executes the full lifecycle: subscribe the watcher (before binding,
// so no update between bind and subscription is missed), bind the socket,
// force state initialization, then serve until the ready continuation
// finishes, the watcher dies, or a handler failure triggers containment.
// Teardown runs on every exit path.
func (s *Server) Run(ctx context.Context, ready ReadyFunc) error {
	if ready == nil {
		ready = func(ctx context.Context) error {
			_, err := sigwait.Wait(ctx)
			return err
		}
	}

	if s.cfg.WatchRoot != "" {
		filter := watcher.NewFilter(s.cfg)
		sub, err := watcher.Subscribe(s.cfg.WatchRoot, filter)
		if err != nil {
			return fmt.Errorf("failed to establish watch subscription: %w", err)
		}
		s.subscription = sub
	}

	defer s.teardown()

	if err := s.bind(); err != nil {
		return err
	}

	// Force the lazy state now so request handling never pays the
	// initialization cost inline
	st, err := s.lazy.Force()
	if err != nil {
		return fmt.Errorf("failed to initialize server state: %w", err)
	}
	s.slot.Swap(st)
	logger.Info("Server state initialized: %d tracked files", st.Environment.Count())

	if err := s.serve(ctx, ready); err != nil {
		return err
	}
	return s.fatalError()
}

// bind removes any stale socket, listens, and restricts permissions to the
// owning user. Trust is conferred by filesystem permissions.
func (s *Server) bind() error {
	if err := socketutil.RemoveStaleSocket(s.socketPath); err != nil {
		return fmt.Errorf("failed to remove stale socket file: %w", err)
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener

	if err := os.Chmod(s.socketPath, 0600); err != nil {
		s.closeListener()
		return fmt.Errorf("failed to set socket permissions: %w", err)
	}

	logger.Info("Listening on %s", s.socketPath)
	return nil
}

// serve races the accept loop, the watcher listen loop, and the ready
// continuation under one cancellation scope; whichever finishes first ends
// the serving phase.
func (s *Server) serve(ctx context.Context, ready ReadyFunc) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.stopServing = cancel

	g, gctx := errgroup.WithContext(ctx)

	// Unblock Accept when the serving phase ends
	g.Go(func() error {
		<-gctx.Done()
		s.closeListener()
		return nil
	})

	g.Go(func() error {
		defer cancel()
		return s.acceptLoop(gctx)
	})

	if s.subscription != nil {
		g.Go(func() error {
			defer cancel()
			err := s.subscription.Listen(gctx, func(paths []string) {
				s.onWatchBatch(gctx, paths)
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			// A dead watcher must not leave a live server silently
			// skipping updates
			return fmt.Errorf("watcher stopped: %w", err)
		})
	}

	g.Go(func() error {
		defer cancel()
		err := ready(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err := g.Wait()
	s.wg.Wait()
	return err
}

// acceptLoop accepts connections until the listener closes
func (s *Server) acceptLoop(ctx context.Context) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || ctx.Err() != nil {
				logger.Info("Accept loop stopped")
				return nil
			}
			logger.Error("Error accepting connection: %v", err)
			continue
		}

		id := s.trackConn(conn)
		logger.Info("New connection accepted: %s", id)

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrackConn(id)
			defer conn.Close()

			c := newConnection(id, conn, s.pipeline)
			if err := c.serve(ctx); err != nil {
				s.recordFatal(err)
			}
		}()
	}
}

// onWatchBatch pushes a synthetic incremental-update request through the
// same guarded pipeline as client requests; the response is discarded.
func (s *Server) onWatchBatch(ctx context.Context, paths []string) {
	req := protocol.NewIncrementalUpdate(paths)
	if _, err := s.pipeline.Dispatch(ctx, req); err != nil {
		if !errors.Is(err, ErrServingStopped) && !errors.Is(err, context.Canceled) {
			s.recordFatal(err)
		}
	}
}

// recordFatal stores the first fatal failure and ends the serving phase
func (s *Server) recordFatal(err error) {
	s.fatalMu.Lock()
	if s.fatalErr == nil {
		s.fatalErr = err
	}
	s.fatalMu.Unlock()

	if s.stopServing != nil {
		s.stopServing()
	}
}

func (s *Server) fatalError() error {
	s.fatalMu.Lock()
	defer s.fatalMu.Unlock()
	return s.fatalErr
}

func (s *Server) trackConn(conn net.Conn) string {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	s.connCount++
	id := fmt.Sprintf("conn_%d", s.connCount)
	s.conns[id] = conn
	return id
}

func (s *Server) untrackConn(id string) {
	s.connMu.Lock()
	defer s.connMu.Unlock()
	delete(s.conns, id)
}

func (s *Server) closeListener() {
	s.listenOnce.Do(func() {
		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Error("Error closing socket listener: %v", err)
			}
		}
	})
}

// teardown releases the socket and the watch subscription exactly once,
// on every exit path.
func (s *Server) teardown() {
	s.teardownOnce.Do(func() {
		logger.Info("Tearing down server")

		s.closeListener()

		s.connMu.Lock()
		for id, conn := range s.conns {
			if err := conn.Close(); err != nil {
				logger.Debug("Error closing connection %s: %v", id, err)
			}
		}
		s.connMu.Unlock()

		if s.subscription != nil {
			if err := s.subscription.Close(); err != nil {
				logger.Warn("Error closing watch subscription: %v", err)
			}
		}

		if s.listener != nil {
			if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
				logger.Warn("Failed to remove socket file %s: %v", s.socketPath, err)
			} else {
				logger.Info("Socket file removed: %s", s.socketPath)
			}
		}
	})
}
