package orderflow

import (
	"errors"
	"fmt"
	"strings"

	"popart_backend/payments"
)

// Step is one position in the order flow.
type Step int

const (
	StepUpload Step = iota
	StepSize
	StepProcessing
	StepSelection
	StepCheckout
)

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepUpload:
		return "upload"
	case StepSize:
		return "size"
	case StepProcessing:
		return "processing"
	case StepSelection:
		return "selection"
	case StepCheckout:
		return "checkout"
	default:
		return "unknown"
	}
}

// Draft state errors.
var (
	// ErrInvalidTransition marks a step change that the flow does not
	// allow from the current step.
	ErrInvalidTransition = errors.New("orderflow: invalid transition")

	// ErrNoSelection is returned when checkout is attempted without a
	// selected result.
	ErrNoSelection = errors.New("orderflow: no result selected")

	// ErrNoContactEmail is returned when checkout is attempted without a
	// contact email.
	ErrNoContactEmail = errors.New("orderflow: contact email is required")
)

// noSelection marks an unset result index.
const noSelection = -1

// Draft is the transient record of one in-progress purchase. It moves
// through upload, size, processing, selection and checkout, and is
// discarded once the checkout redirect happens; from then on the payment
// session's metadata is the durable record.
//
// A Draft is not safe for concurrent use. Each flow owns its own draft.
type Draft struct {
	step        Step
	sourceImage string
	size        CanvasSize
	results     []string
	selected    int
	email       string
	shipping    *payments.ShippingInfo
}

// NewDraft starts a fresh draft at the upload step with the given
// default size preselected.
func NewDraft(defaultSize CanvasSize) *Draft {
	return &Draft{
		step:     StepUpload,
		size:     defaultSize,
		selected: noSelection,
	}
}

// Step returns the draft's current step.
func (d *Draft) Step() Step {
	return d.step
}

// SourceImage returns the encoded source image.
func (d *Draft) SourceImage() string {
	return d.sourceImage
}

// Size returns the currently selected canvas size.
func (d *Draft) Size() CanvasSize {
	return d.size
}

// Results returns the candidate result URLs.
func (d *Draft) Results() []string {
	return d.results
}

// transitionErr builds the uniform invalid-transition error.
func (d *Draft) transitionErr(event string) error {
	return fmt.Errorf("%w: cannot %s from step %s", ErrInvalidTransition, event, d.step)
}

// AttachImage stores the encoded source image and advances to size
// selection.
func (d *Draft) AttachImage(encoded string) error {
	if d.step != StepUpload {
		return d.transitionErr("attach image")
	}
	if strings.TrimSpace(encoded) == "" {
		return fmt.Errorf("orderflow: encoded image cannot be empty")
	}
	d.sourceImage = encoded
	d.step = StepSize
	return nil
}

// BackToUpload returns from size selection to the upload step so a
// different photo can be chosen.
func (d *Draft) BackToUpload() error {
	if d.step != StepSize {
		return d.transitionErr("go back to upload")
	}
	d.step = StepUpload
	return nil
}

// SelectSize picks a canvas size while on the size step.
func (d *Draft) SelectSize(size CanvasSize) error {
	if d.step != StepSize {
		return d.transitionErr("select size")
	}
	d.size = size
	return nil
}

// BeginProcessing advances to the processing step. A size is always set
// (the default counts), so the only precondition is being on the size
// step.
func (d *Draft) BeginProcessing() error {
	if d.step != StepSize {
		return d.transitionErr("begin processing")
	}
	d.step = StepProcessing
	return nil
}

// CompleteProcessing stores the generated results and advances to
// selection. The result set must be non-empty.
func (d *Draft) CompleteProcessing(results []string) error {
	if d.step != StepProcessing {
		return d.transitionErr("complete processing")
	}
	if len(results) == 0 {
		return fmt.Errorf("orderflow: processing produced no results")
	}
	d.results = results
	d.selected = noSelection
	d.step = StepSelection
	return nil
}

// FailProcessing reverts to the size step, discarding any partial
// results. The user must re-trigger processing; there is no automatic
// retry.
func (d *Draft) FailProcessing() error {
	if d.step != StepProcessing {
		return d.transitionErr("fail processing")
	}
	d.results = nil
	d.selected = noSelection
	d.step = StepSize
	return nil
}

// SelectResult picks one candidate while on the selection step.
func (d *Draft) SelectResult(index int) error {
	if d.step != StepSelection {
		return d.transitionErr("select result")
	}
	if index < 0 || index >= len(d.results) {
		return fmt.Errorf("orderflow: result index %d out of range [0,%d)", index, len(d.results))
	}
	d.selected = index
	return nil
}

// SelectedResult returns the chosen result URL, or false when nothing is
// selected yet.
func (d *Draft) SelectedResult() (string, bool) {
	if d.selected == noSelection {
		return "", false
	}
	return d.results[d.selected], true
}

// BeginCheckout advances to the checkout step. Requires a selected
// result.
func (d *Draft) BeginCheckout() error {
	if d.step != StepSelection {
		return d.transitionErr("begin checkout")
	}
	if d.selected == noSelection {
		return ErrNoSelection
	}
	d.step = StepCheckout
	return nil
}

// BackToSelection returns from checkout to selection without losing the
// chosen result.
func (d *Draft) BackToSelection() error {
	if d.step != StepCheckout {
		return d.transitionErr("go back to selection")
	}
	d.step = StepSelection
	return nil
}

// SetContact records the contact email and optional shipping details on
// the checkout step.
func (d *Draft) SetContact(email string, shipping *payments.ShippingInfo) error {
	if d.step != StepCheckout {
		return d.transitionErr("set contact details")
	}
	d.email = strings.TrimSpace(email)
	d.shipping = shipping
	return nil
}

// CheckoutRequest assembles the payment request for the draft. It is
// only valid on the checkout step with a selected result and a contact
// email; the draft is done once the caller redirects.
func (d *Draft) CheckoutRequest(origin string) (*payments.CheckoutRequest, error) {
	if d.step != StepCheckout {
		return nil, d.transitionErr("create checkout session")
	}
	selected, ok := d.SelectedResult()
	if !ok {
		return nil, ErrNoSelection
	}
	if d.email == "" {
		return nil, ErrNoContactEmail
	}

	return &payments.CheckoutRequest{
		Size:     d.size.Label,
		Price:    d.size.Price,
		Email:    d.email,
		ImageURL: selected,
		Origin:   origin,
		Shipping: d.shipping,
	}, nil
}
