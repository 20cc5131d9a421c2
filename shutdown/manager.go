package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"popart_backend/core"
	"popart_backend/logging"

	"go.uber.org/zap"
)

// Manager coordinates graceful shutdown for the storefront backend. It
// composes a Registry of ordered cleanup functions with a SignalCounter
// that turns a second SIGINT/SIGTERM into an immediate forced exit.
//
// Usage:
//
//	manager := shutdown.NewManager(logger)
//	manager.Register("http server", 0, server.Shutdown)
//	manager.Register("logger", 20, func(ctx context.Context) error {
//	    return logger.Sync()
//	})
//	manager.Start()
//	manager.Wait()
//	manager.Shutdown()
//	os.Exit(manager.ExitCode())
type Manager struct {
	logger  *logging.Logger
	timeout time.Duration

	mu       sync.Mutex
	started  bool
	shutdown bool
	lastSig  os.Signal

	ctx    context.Context
	cancel context.CancelFunc

	registry *Registry
	signals  *SignalCounter
	sigChan  chan os.Signal

	forceExit func(code int)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTimeout sets the total shutdown timeout. Default is 30 seconds.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// WithForceExit replaces the process-exit call made on a repeated signal.
// Used by tests.
func WithForceExit(fn func(code int)) ManagerOption {
	return func(m *Manager) {
		m.forceExit = fn
	}
}

// NewManager creates a Manager ready to coordinate graceful shutdown.
func NewManager(logger *logging.Logger, opts ...ManagerOption) *Manager {
	if logger == nil {
		logger = logging.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		logger:    logger,
		timeout:   30 * time.Second,
		ctx:       ctx,
		cancel:    cancel,
		registry:  NewRegistry(),
		sigChan:   make(chan os.Signal, 1),
		forceExit: os.Exit,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		m.logger.Warn("Received second signal, forcing immediate shutdown")
		m.forceExit(core.ExitCodeError)
	})

	return m
}

// Context returns the managed context, cancelled when shutdown begins.
// Long-running components should watch it to stop their work.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup function to run during shutdown. Lower priority
// values execute first.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.logger.Debug("Registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority),
	)
}

// Start begins signal handling for SIGINT and SIGTERM. The first signal
// cancels the managed context; a second signal forces an immediate exit.
// Safe to call more than once.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range m.sigChan {
			m.mu.Lock()
			m.lastSig = sig
			m.mu.Unlock()

			count := m.signals.Increment()
			if count == 1 {
				m.logger.Info("Received shutdown signal, initiating graceful shutdown",
					zap.String("signal", sig.String()),
				)
				m.cancel()
			}
		}
	}()
}

// InitiateShutdown cancels the managed context without an OS signal, for
// programmatic shutdown (service stop, fatal startup error).
func (m *Manager) InitiateShutdown() {
	m.cancel()
}

// Shutdown executes the registered cleanup functions in priority order
// under the configured timeout. Idempotent; subsequent calls return nil.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	startTime := time.Now()
	m.logger.Info("Initiating graceful shutdown",
		zap.Duration("timeout", m.timeout),
		zap.Int("registered_handlers", m.registry.Count()),
	)

	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.logger.Error("Cleanup function failed", zap.Error(err))
	}

	duration := time.Since(startTime)

	signal.Stop(m.sigChan)

	if len(errs) > 0 {
		m.logger.Error("Shutdown completed with errors",
			zap.Duration("duration", duration),
			zap.Int("error_count", len(errs)),
		)
		return fmt.Errorf("shutdown had %d errors", len(errs))
	}

	m.logger.Info("Graceful shutdown completed",
		zap.Duration("duration", duration),
	)
	return nil
}

// Wait blocks until the managed context is cancelled.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// IsShuttingDown returns true once shutdown has been initiated.
func (m *Manager) IsShuttingDown() bool {
	select {
	case <-m.ctx.Done():
		return true
	default:
		return false
	}
}

// ExitCode maps the signal that triggered shutdown to a process exit code
// following the 128+signal convention. Returns ExitCodeSuccess when no
// signal was received.
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.lastSig {
	case syscall.SIGINT, os.Interrupt:
		return core.ExitCodeSIGINT
	case syscall.SIGTERM:
		return core.ExitCodeSIGTERM
	default:
		return core.ExitCodeSuccess
	}
}

// RegisteredHandlers returns the names of all registered cleanup handlers
// in execution order.
func (m *Manager) RegisteredHandlers() []string {
	return m.registry.Names()
}
