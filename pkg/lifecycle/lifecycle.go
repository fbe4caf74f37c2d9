// Package lifecycle generalizes the signal.NotifyContext + server.Shutdown
// pattern duplicated across every service's main.
package lifecycle

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Shutdowner is anything with a context-bounded graceful shutdown, such as
// *http.Server or *rpc.Server (wrapped).
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Run blocks until SIGINT or SIGTERM is received, then calls Shutdown on
// each component in order with a fresh timeout context. Components are run
// concurrently from serve (e.g. server.ListenAndServe); Run only owns the
// signal wait and shutdown sequencing.
func Run(shutdownTimeout time.Duration, components ...Shutdowner) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	slog.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	for _, c := range components {
		if err := c.Shutdown(shutdownCtx); err != nil {
			slog.Error("component shutdown error", "error", err)
		}
	}
}

// WaitForSignal blocks until SIGINT or SIGTERM is received and returns. It
// is the low-level primitive Run is built on, exposed for callers that need
// custom shutdown sequencing.
func WaitForSignal() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
}
