package server

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/codefionn/pyrite/internal/analysis"
	"github.com/codefionn/pyrite/internal/config"
	"github.com/codefionn/pyrite/internal/logger"
	"github.com/codefionn/pyrite/internal/notify"
	"github.com/codefionn/pyrite/internal/protocol"
	"github.com/codefionn/pyrite/internal/state"
)

// ErrServingStopped is returned for requests arriving after crash
// containment has fired.
var ErrServingStopped = errors.New("serving loop stopped")

// Pipeline is the guarded request path: read snapshot, call the engine
// under crash containment, swap snapshot. The mutex keeps at most one
// request between its read and its swap, so concurrent connections and the
// watcher serialize here.
type Pipeline struct {
	mu     sync.Mutex
	slot   *state.Slot
	engine analysis.Engine
	cfg    *config.ServerConfig

	fatalOnce sync.Once
	failed    bool
}

// NewPipeline wires the guarded pipeline around the state slot
func NewPipeline(slot *state.Slot, engine analysis.Engine, cfg *config.ServerConfig) *Pipeline {
	return &Pipeline{
		slot:   slot,
		engine: engine,
		cfg:    cfg,
	}
}

// Dispatch runs one request through the guarded pipeline. A nil error means
// the snapshot was swapped and the response must be written. A non-nil
// error is fatal: no response exists, the restart notification has been
// emitted, and the serving phase must end.
func (p *Pipeline) Dispatch(ctx context.Context, req *protocol.Request) (resp *protocol.Response, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failed {
		return nil, ErrServingStopped
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
			resp = nil
			p.contain(err)
		}
	}()

	current := p.slot.Read()

	next, response, procErr := p.engine.ProcessRequest(ctx, current, req)
	if procErr != nil {
		// Cancellation is shutdown in progress, not a handler failure:
		// no notification, and the pipeline stays usable
		if errors.Is(procErr, context.Canceled) || errors.Is(procErr, context.DeadlineExceeded) {
			return nil, procErr
		}
		p.contain(procErr)
		return nil, procErr
	}

	// The swap is the request's single point of effect; a failure above
	// leaves the pre-request snapshot in place.
	p.slot.Swap(next)
	return response, nil
}

// contain applies the fail-fast policy: log, emit exactly one restart
// notification, and refuse all further requests.
func (p *Pipeline) contain(cause error) {
	p.failed = true
	p.fatalOnce.Do(func() {
		logger.Error("Unhandled failure while processing request: %v", cause)
		if err := notify.Restart(p.cfg, notify.RestartMessage); err != nil {
			logger.Error("Failed to emit restart notification: %v", err)
		}
	})
}
