// Package analysis defines the engine interface consumed by the session
// layer and a runner that keeps the error index current. The per-file check
// itself is pluggable; the session layer only depends on the request
// contract.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/codefionn/pyrite/internal/protocol"
	"github.com/codefionn/pyrite/internal/state"
)

// Engine processes one request against the current snapshot and returns
// the successor snapshot with the response. Returning an error means the
// failure was unhandled: the caller must not write a response and must
// begin teardown.
type Engine interface {
	ProcessRequest(ctx context.Context, st *state.ServerState, req *protocol.Request) (*state.ServerState, *protocol.Response, error)
}

// CheckFunc analyzes one source file
type CheckFunc func(path string) ([]protocol.Diagnostic, error)

// Runner is the bundled engine. It answers the session-layer request kinds
// and delegates per-file analysis to its CheckFunc.
type Runner struct {
	check   CheckFunc
	started time.Time
}

// NewRunner creates a runner using the given check; nil means DefaultCheck
func NewRunner(check CheckFunc) *Runner {
	if check == nil {
		check = DefaultCheck
	}
	return &Runner{
		check:   check,
		started: time.Now(),
	}
}

// DefaultCheck reports files that cannot be read and nothing else. Real
// type checking is supplied by the embedding binary.
func DefaultCheck(path string) ([]protocol.Diagnostic, error) {
	if err := readable(path); err != nil {
		return []protocol.Diagnostic{{
			Path:        path,
			Line:        1,
			Code:        "read-error",
			Description: fmt.Sprintf("Could not read file: %v", err),
		}}, nil
	}
	return nil, nil
}

// ProcessRequest implements Engine
func (r *Runner) ProcessRequest(ctx context.Context, st *state.ServerState, req *protocol.Request) (*state.ServerState, *protocol.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	switch req.Kind {
	case protocol.KindPing:
		return st, protocol.NewPongResponse(), nil

	case protocol.KindStats:
		return st, protocol.NewStatsResponse(map[string]interface{}{
			"tracked_files":     st.Environment.Count(),
			"files_with_errors": st.Errors.Files(),
			"total_errors":      st.Errors.Total(),
			"uptime_seconds":    int(time.Since(r.started).Seconds()),
			"socket_path":       st.SocketPath,
		}), nil

	case protocol.KindTypeErrors:
		if len(req.Paths) == 0 {
			return st, protocol.NewTypeErrorsResponse(st.Errors.All()), nil
		}
		var diags []protocol.Diagnostic
		for _, path := range req.Paths {
			diags = append(diags, st.Errors.Get(path)...)
		}
		return st, protocol.NewTypeErrorsResponse(diags), nil

	case protocol.KindIncrementalUpdate:
		next, err := r.recheck(st, req.Paths)
		if err != nil {
			return nil, nil, err
		}
		return next, protocol.NewOkResponse(), nil

	default:
		return st, protocol.NewErrorResponse(fmt.Sprintf("Unsupported request kind: %s", req.Kind)), nil
	}
}

// recheck re-analyzes the given files and produces the successor snapshot.
// The batch is applied all-or-nothing: a check failure discards the whole
// successor.
func (r *Runner) recheck(st *state.ServerState, paths []string) (*state.ServerState, error) {
	env := st.Environment.Copy()
	index := st.Errors.Copy()

	for _, path := range paths {
		index.Drop(path)

		if err := readable(path); err != nil {
			// Deleted or unreadable files leave the environment
			env.Untrack(path)
			continue
		}

		diags, err := r.check(path)
		if err != nil {
			return nil, fmt.Errorf("check failed for %s: %w", path, err)
		}
		env.Track(path)
		index.Add(path, diags...)
	}

	return &state.ServerState{
		SocketPath:     st.SocketPath,
		Config:         st.Config,
		AnalysisConfig: st.AnalysisConfig,
		Environment:    env,
		Errors:         index,
	}, nil
}
