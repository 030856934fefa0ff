package shutdown

import (
	"context"
	"syscall"
	"testing"
	"time"
)

func TestNew(t *testing.T) {
	ctx, done := New()

	select {
	case <-ctx.Done():
		t.Fatal("context cancelled before done was called")
	default:
	}

	done()
	<-ctx.Done()
}

func TestInterruptContextCancel(t *testing.T) {
	ctx, cancel := InterruptContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	cancel()
	<-ctx.Done()
}

func TestInterruptContextSignal(t *testing.T) {
	ctx, cancel := InterruptContext(context.Background(), syscall.SIGUSR1)
	defer cancel()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGUSR1); err != nil {
		t.Fatalf("kill: %v", err)
	}

	select {
	case <-ctx.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("signal did not cancel the context")
	}
}
