package shutdown

import (
	"bytes"
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"jubily/internal/pkg/logger"
)

func newTestLogger() *logger.Logger {
	var buf bytes.Buffer
	return logger.New(logger.Config{
		Level:  "debug",
		Format: "json",
		Output: &buf,
	})
}

func TestNewManager(t *testing.T) {
	log := newTestLogger()

	t.Run("with default timeout", func(t *testing.T) {
		mgr := NewManager(log, 0)
		if mgr == nil {
			t.Fatal("expected manager to be non-nil")
		}
		if mgr.timeout != 30*time.Second {
			t.Errorf("expected default 30s timeout, got %v", mgr.timeout)
		}
	})

	t.Run("with custom timeout", func(t *testing.T) {
		mgr := NewManager(log, 10*time.Second)
		if mgr.timeout != 10*time.Second {
			t.Errorf("expected 10s timeout, got %v", mgr.timeout)
		}
	})
}

func TestRegister(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	mgr.Register("test", func(ctx context.Context) error {
		return nil
	})

	if len(mgr.handlers) != 1 {
		t.Errorf("expected 1 handler, got %d", len(mgr.handlers))
	}
	if mgr.handlers[0].Name != "test" {
		t.Errorf("expected handler name 'test', got %s", mgr.handlers[0].Name)
	}
}

func TestShutdownRunsAllHandlers(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	var count int32
	for i := 0; i < 3; i++ {
		mgr.Register(fmt.Sprintf("h%d", i), func(ctx context.Context) error {
			atomic.AddInt32(&count, 1)
			return nil
		})
	}

	mgr.Shutdown()

	if got := atomic.LoadInt32(&count); got != 3 {
		t.Errorf("expected 3 handlers to run, got %d", got)
	}

	select {
	case <-mgr.Done():
	default:
		t.Error("expected Done channel to be closed after shutdown")
	}
}

func TestShutdownContinuesOnHandlerError(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	var ran atomic.Bool
	mgr.Register("failing", func(ctx context.Context) error {
		return fmt.Errorf("cleanup failed")
	})
	mgr.Register("healthy", func(ctx context.Context) error {
		ran.Store(true)
		return nil
	})

	mgr.Shutdown()

	if !ran.Load() {
		t.Error("expected healthy handler to run despite sibling failure")
	}
}

func TestRegisterSimple(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, 5*time.Second)

	var ran atomic.Bool
	mgr.RegisterSimple("simple", func() { ran.Store(true) })

	mgr.Shutdown()

	if !ran.Load() {
		t.Error("expected simple handler to run")
	}
}

func TestContextCanceledOnShutdown(t *testing.T) {
	log := newTestLogger()
	mgr := NewManager(log, time.Second)

	ctx := mgr.Context()
	mgr.Shutdown()

	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Error("expected context to be canceled after shutdown")
	}
}
