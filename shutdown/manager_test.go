package shutdown

import (
	"context"
	"errors"
	"syscall"
	"testing"
	"time"

	"popart_backend/core"
	"popart_backend/logging"
)

func TestManagerShutdownRunsHandlers(t *testing.T) {
	manager := NewManager(logging.NewNop())

	var order []string
	manager.Register("http server", 0, func(context.Context) error {
		order = append(order, "http server")
		return nil
	})
	manager.Register("logger", 20, func(context.Context) error {
		order = append(order, "logger")
		return nil
	})

	if err := manager.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if len(order) != 2 || order[0] != "http server" || order[1] != "logger" {
		t.Errorf("handler order = %v", order)
	}

	// Idempotent.
	if err := manager.Shutdown(); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
	if len(order) != 2 {
		t.Errorf("handlers ran again on second Shutdown: %v", order)
	}
}

func TestManagerShutdownReportsErrors(t *testing.T) {
	manager := NewManager(logging.NewNop())
	manager.Register("flaky", 0, func(context.Context) error {
		return errors.New("close failed")
	})

	if err := manager.Shutdown(); err == nil {
		t.Error("Shutdown() should report handler failures")
	}
}

func TestManagerInitiateShutdownCancelsContext(t *testing.T) {
	manager := NewManager(logging.NewNop())

	if manager.IsShuttingDown() {
		t.Fatal("new manager should not be shutting down")
	}

	manager.InitiateShutdown()

	select {
	case <-manager.Context().Done():
	case <-time.After(time.Second):
		t.Fatal("context not cancelled after InitiateShutdown")
	}
	if !manager.IsShuttingDown() {
		t.Error("IsShuttingDown() = false after InitiateShutdown")
	}
	if code := manager.ExitCode(); code != core.ExitCodeSuccess {
		t.Errorf("ExitCode() = %d without a signal, want %d", code, core.ExitCodeSuccess)
	}
}

func TestManagerSignalHandling(t *testing.T) {
	forced := make(chan int, 1)
	manager := NewManager(logging.NewNop(), WithForceExit(func(code int) {
		forced <- code
	}))
	manager.Start()

	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("sending SIGTERM: %v", err)
	}

	select {
	case <-manager.Context().Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context not cancelled after SIGTERM")
	}

	// The exit code follows the 128+signal convention.
	deadline := time.Now().Add(time.Second)
	for manager.ExitCode() != core.ExitCodeSIGTERM {
		if time.Now().After(deadline) {
			t.Fatalf("ExitCode() = %d, want %d", manager.ExitCode(), core.ExitCodeSIGTERM)
		}
		time.Sleep(10 * time.Millisecond)
	}

	// A second signal forces an exit instead of waiting.
	if err := syscall.Kill(syscall.Getpid(), syscall.SIGTERM); err != nil {
		t.Fatalf("sending second SIGTERM: %v", err)
	}
	select {
	case code := <-forced:
		if code != core.ExitCodeError {
			t.Errorf("forced exit code = %d, want %d", code, core.ExitCodeError)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("second signal did not force an exit")
	}

	manager.Shutdown()
}

func TestManagerRegisteredHandlers(t *testing.T) {
	manager := NewManager(nil, WithTimeout(time.Second))
	manager.Register("b", 10, func(context.Context) error { return nil })
	manager.Register("a", 0, func(context.Context) error { return nil })

	names := manager.RegisteredHandlers()
	if len(names) != 2 || names[0] != "a" || names[1] != "b" {
		t.Errorf("RegisteredHandlers() = %v", names)
	}
}
