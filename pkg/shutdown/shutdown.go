// Package shutdown handles process signals, ordered teardown and fatal
// startup errors.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"chatd/pkg/logger"
)

// exit is swapped out in tests.
var exit = os.Exit

// Abort logs a fatal startup error and exits with status 1.
func Abort(contextMsg string, err error) {
	logger.Error("startup_fatal", "msg", contextMsg, "error", err)
	fmt.Fprintf(os.Stderr, "%s: %v\n", contextMsg, err)
	exit(1)
}

// Step is one named stage of a teardown.
type Step struct {
	Name string
	Stop func(ctx context.Context) error
}

// Run executes steps in order. Every step runs even if an earlier one
// fails or ctx expires; the errors are joined.
func Run(ctx context.Context, steps ...Step) error {
	logger.Info("shutdown_requested")
	var errs []error
	for _, s := range steps {
		if s.Stop == nil {
			continue
		}
		logger.Info("shutdown_step", "step", s.Name)
		if err := s.Stop(ctx); err != nil {
			logger.Error("shutdown_step_failed", "step", s.Name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name, err))
		}
	}
	if err := ctx.Err(); err != nil {
		errs = append(errs, err)
	}
	logger.Info("shutdown_complete")
	return errors.Join(errs...)
}

// SetupSignalHandler returns a context cancelled on SIGINT or SIGTERM.
// SIGPIPE dumps every goroutine stack before cancelling.
func SetupSignalHandler(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case s := <-sigc:
			logger.Info("signal_received", "signal", s.String(), "msg", "shutdown requested")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigc)
	}()

	sigpipe := make(chan os.Signal, 1)
	signal.Notify(sigpipe, syscall.SIGPIPE)
	go func() {
		select {
		case s := <-sigpipe:
			logger.Info("signal_received", "signal", s.String(), "msg", "SIGPIPE - dumping goroutine stacks")
			buf := make([]byte, 1<<20)
			n := runtime.Stack(buf, true)
			logger.Info("goroutine_stack_dump", "dump", string(buf[:n]))
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigpipe)
	}()

	return ctx, cancel
}
