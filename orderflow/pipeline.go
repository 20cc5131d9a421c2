package orderflow

import (
	"context"
	"fmt"

	"popart_backend/imagegen"
	"popart_backend/logging"
	"popart_backend/payments"

	"go.uber.org/zap"
)

// Pipeline drives a draft through generation and checkout. It is the
// orchestrator over the dispatcher, the poller and the checkout creator;
// each step only distinguishes success from failure and reverts the
// draft on failure.
type Pipeline struct {
	dispatcher *imagegen.Dispatcher
	poller     *imagegen.Poller
	checkout   *payments.CheckoutCreator
	logger     *logging.Logger
}

// NewPipeline creates a Pipeline. The poller may be nil when the
// generation provider is synchronous; the checkout creator may be nil
// when payment is not configured, in which case Checkout fails.
func NewPipeline(dispatcher *imagegen.Dispatcher, poller *imagegen.Poller, checkout *payments.CheckoutCreator, logger *logging.Logger) (*Pipeline, error) {
	if dispatcher == nil {
		return nil, fmt.Errorf("orderflow: dispatcher cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Pipeline{
		dispatcher: dispatcher,
		poller:     poller,
		checkout:   checkout,
		logger:     logger.Named("pipeline"),
	}, nil
}

// Process runs the generation step for a draft on the size step: it
// dispatches the batch, waits for asynchronous tasks when the provider
// requires it, and advances the draft to selection. Any failure reverts
// the draft to the size step with partial results discarded.
func (p *Pipeline) Process(ctx context.Context, draft *Draft) error {
	if err := draft.BeginProcessing(); err != nil {
		return err
	}

	results, err := p.generate(ctx, draft.SourceImage())
	if err != nil {
		p.logger.Warn("generation failed, reverting draft", zap.Error(err))
		if revertErr := draft.FailProcessing(); revertErr != nil {
			return revertErr
		}
		return err
	}

	return draft.CompleteProcessing(results)
}

// generate produces the final result URLs for one source image,
// regardless of provider mode.
func (p *Pipeline) generate(ctx context.Context, sourceImage string) ([]string, error) {
	dispatched, err := p.dispatcher.Dispatch(ctx, sourceImage)
	if err != nil {
		return nil, err
	}

	if dispatched.Mode == imagegen.ModeSync {
		return dispatched.Results, nil
	}

	if p.poller == nil {
		return nil, fmt.Errorf("orderflow: provider returned tasks but no poller is configured")
	}
	return p.poller.WaitForAll(ctx, dispatched.TaskIDs)
}

// Checkout finalizes a draft on the selection step: records the chosen
// result and contact details, then creates the hosted payment session.
// The returned session's redirect URL ends the draft's life.
func (p *Pipeline) Checkout(ctx context.Context, draft *Draft, resultIndex int, email, origin string, shipping *payments.ShippingInfo) (*payments.CheckoutSession, error) {
	if p.checkout == nil {
		return nil, fmt.Errorf("orderflow: payment is not configured")
	}

	if err := draft.SelectResult(resultIndex); err != nil {
		return nil, err
	}
	if err := draft.BeginCheckout(); err != nil {
		return nil, err
	}
	if err := draft.SetContact(email, shipping); err != nil {
		return nil, err
	}

	req, err := draft.CheckoutRequest(origin)
	if err != nil {
		return nil, err
	}
	return p.checkout.CreateSession(ctx, req)
}
