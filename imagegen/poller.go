// Package imagegen provides generation dispatch and task polling.
//
// poller.go implements the task polling driver. A single "poll once"
// operation fetches and normalizes one status payload; the wait driver
// repeats it on a fixed interval until the task is terminal or the
// wall-clock budget runs out. The budget is measured from the start of
// the wait, not per attempt.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"popart_backend/logging"

	"go.uber.org/zap"
)

// Default polling cadence and budget.
const (
	// DefaultPollInterval is the cooperative sleep between status checks.
	DefaultPollInterval = 4 * time.Second

	// DefaultPollBudget bounds how long one task is waited on.
	DefaultPollBudget = 60 * time.Second
)

// PollerConfig holds polling cadence settings.
type PollerConfig struct {
	// Interval is the sleep between attempts. Default: 4s.
	Interval time.Duration

	// Budget is the wall-clock budget measured from the start of the
	// wait. Default: 60s.
	Budget time.Duration

	// BatchBudget is the shared budget for waiting on a whole batch of
	// tasks. Default: same as Budget.
	BatchBudget time.Duration
}

// Poller waits for asynchronous generation tasks to reach a terminal
// state.
//
// Transient status-request errors (network failures on the poll call
// itself) never abort the wait; they are swallowed and polling continues
// until the budget is exhausted. Only the budget expiring is a hard
// timeout.
type Poller struct {
	source StatusSource
	config PollerConfig
	clock  Clock
	logger *logging.Logger
}

// NewPoller creates a Poller over the given status source.
// Zero-value config fields fall back to defaults; a nil clock uses real
// time.
func NewPoller(source StatusSource, config PollerConfig, clock Clock, logger *logging.Logger) (*Poller, error) {
	if source == nil {
		return nil, fmt.Errorf("imagegen: status source cannot be nil")
	}
	if config.Interval <= 0 {
		config.Interval = DefaultPollInterval
	}
	if config.Budget <= 0 {
		config.Budget = DefaultPollBudget
	}
	if config.BatchBudget <= 0 {
		config.BatchBudget = config.Budget
	}
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	return &Poller{
		source: source,
		config: config,
		clock:  clock,
		logger: logger.Named("poller"),
	}, nil
}

// PollOnce fetches and normalizes the current status of one task.
func (p *Poller) PollOnce(ctx context.Context, taskID string) (*TaskStatus, error) {
	raw, err := p.source.TaskStatus(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return ParseStatusPayload(raw)
}

// WaitForResult polls a task until terminal or until the budget elapses,
// and returns the result URL on success.
//
// Outcome mapping:
//   - FlagSuccess with a result URL: the URL is returned and polling
//     stops immediately, with no further status calls.
//   - FlagSuccess without a result URL: ErrMissingResultURL.
//   - FlagFailed / FlagRejected: ErrTaskFailed wrapping the provider's
//     message.
//   - any other flag: still pending, keep polling.
func (p *Poller) WaitForResult(ctx context.Context, taskID string) (string, error) {
	deadline := p.clock.Now().Add(p.config.Budget)
	return p.waitUntil(ctx, taskID, deadline)
}

// waitUntil is the poll loop against an absolute deadline.
func (p *Poller) waitUntil(ctx context.Context, taskID string, deadline time.Time) (string, error) {
	log := p.logger.With(zap.String("task_id", taskID))

	for attempt := 1; ; attempt++ {
		status, err := p.PollOnce(ctx, taskID)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// Transient: the task may still complete.
			log.Warn("status check failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err))
		case status.Flag == FlagSuccess:
			if status.ResultURL == "" {
				return "", ErrMissingResultURL
			}
			log.Debug("task completed", zap.Int("attempts", attempt))
			return status.ResultURL, nil
		case status.Flag == FlagFailed || status.Flag == FlagRejected:
			if status.Message != "" {
				return "", fmt.Errorf("%w: %s", ErrTaskFailed, status.Message)
			}
			return "", ErrTaskFailed
		default:
			log.Debug("task pending", zap.Int("attempt", attempt))
		}

		if p.clock.Now().Add(p.config.Interval).After(deadline) {
			log.Warn("polling budget exhausted", zap.Int("attempts", attempt))
			return "", ErrPollTimeout
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-p.clock.After(p.config.Interval):
		}
	}
}

// WaitForAll polls several tasks concurrently and independently, sharing
// one batch budget measured from the call. All tasks are waited on (no
// early abandon); if any task fails or times out, the whole batch fails
// with the individual errors aggregated.
//
// On success the returned URLs are in the same order as taskIDs.
func (p *Poller) WaitForAll(ctx context.Context, taskIDs []string) ([]string, error) {
	if len(taskIDs) == 0 {
		return nil, fmt.Errorf("imagegen: no tasks to wait for")
	}

	deadline := p.clock.Now().Add(p.config.BatchBudget)

	urls := make([]string, len(taskIDs))
	errs := make([]error, len(taskIDs))

	var wg sync.WaitGroup
	for i, taskID := range taskIDs {
		wg.Add(1)
		go func(i int, taskID string) {
			defer wg.Done()
			urls[i], errs[i] = p.waitUntil(ctx, taskID, deadline)
		}(i, taskID)
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return urls, nil
}
