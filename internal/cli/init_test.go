package cli

import (
	"context"
	"log/slog"
	"os"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

func TestGracefulShutdownRunsCleanupOnSignal(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	var cleaned atomic.Bool
	ctx, done := GracefulShutdown(logger, 5*time.Second, func(shutdownCtx context.Context) {
		if shutdownCtx.Err() != nil {
			t.Error("shutdown context should still be live inside cleanup")
		}
		cleaned.Store(true)
	})

	// The helper's signal.Notify intercepts this before the default
	// handler can kill the test process.
	if err := syscall.Kill(os.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("send signal: %v", err)
	}

	waitDone := make(chan struct{})
	go func() {
		WaitForShutdown(ctx, done)
		close(waitDone)
	}()

	select {
	case <-waitDone:
	case <-time.After(5 * time.Second):
		t.Fatal("shutdown did not complete")
	}
	if !cleaned.Load() {
		t.Error("cleanup did not run")
	}
}
