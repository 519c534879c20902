// Package sigwait produces a one-shot completion when the process receives
// a termination signal.
package sigwait

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/codefionn/pyrite/internal/logger"
)

// DefaultSignals are the termination signals waited on in foreground mode
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGINT, syscall.SIGTERM}
}

// Wait blocks until one of the given signals is delivered or the context is
// cancelled, and returns the signal that fired. The first delivery wins;
// interest is released before returning.
func Wait(ctx context.Context, signals ...os.Signal) (os.Signal, error) {
	if len(signals) == 0 {
		signals = DefaultSignals()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, signals...)
	defer signal.Stop(sigChan)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal: %v", sig)
		return sig, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
