package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/palgatox64/sonusitory/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	err := runner.app().Run(ctx, os.Args)
	stop()

	switch {
	case err == nil:
	case errors.Is(err, shared.ErrTaskAborted):
		logger.Warn("polling stopped before the task finished")
		os.Exit(130)
	case errors.Is(err, shared.ErrTaskFailed):
		logger.Error("task failed", "err", err)
		os.Exit(1)
	default:
		logger.Fatalf("application error: %v", err)
	}
}
