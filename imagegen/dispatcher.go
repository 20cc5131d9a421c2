package imagegen

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"popart_backend/logging"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBatchSize is how many style variants one generation request
// fans out to.
const DefaultBatchSize = 2

// ErrNoImage is returned when a generation request carries no source
// image.
var ErrNoImage = errors.New("imagegen: source image is required")

// DispatchResult is the outcome of one generation fan-out.
//
// For synchronous providers Results holds the finished image URLs and
// TaskIDs is empty. For asynchronous providers TaskIDs holds the
// provider task handles to poll and Results is empty. Variants records
// which style variants were used, in the same order as the entries.
type DispatchResult struct {
	Mode     Mode
	Results  []string
	TaskIDs  []string
	Variants []StyleVariant
}

// Dispatcher fans one uploaded image out into a batch of stylized
// generation requests, one per randomly chosen style variant.
//
// The batch is all-or-nothing: every request must be accepted by the
// provider for the dispatch to succeed. Failures from individual
// requests are aggregated into one error.
type Dispatcher struct {
	provider  Provider
	uploader  *ImgBBUploader
	variants  []StyleVariant
	batchSize int
	logger    *logging.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithVariants overrides the style variant catalog.
func WithVariants(variants []StyleVariant) DispatcherOption {
	return func(d *Dispatcher) {
		if len(variants) > 0 {
			d.variants = variants
		}
	}
}

// WithBatchSize overrides how many variants one dispatch fans out to.
func WithBatchSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.batchSize = n
		}
	}
}

// WithUploader attaches a best-effort image host used to resolve data
// URIs into public URLs before submission. May be nil.
func WithUploader(uploader *ImgBBUploader) DispatcherOption {
	return func(d *Dispatcher) {
		d.uploader = uploader
	}
}

// WithRand replaces the variant sampling source. Tests use this for
// deterministic selection.
func WithRand(rng *rand.Rand) DispatcherOption {
	return func(d *Dispatcher) {
		if rng != nil {
			d.rng = rng
		}
	}
}

// NewDispatcher creates a Dispatcher over the given provider.
func NewDispatcher(provider Provider, logger *logging.Logger, opts ...DispatcherOption) (*Dispatcher, error) {
	if provider == nil {
		return nil, fmt.Errorf("imagegen: provider cannot be nil")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	d := &Dispatcher{
		provider:  provider,
		variants:  DefaultStyleVariants(),
		batchSize: DefaultBatchSize,
		logger:    logger.Named("dispatcher"),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.batchSize > len(d.variants) {
		return nil, fmt.Errorf("imagegen: batch size %d exceeds %d available variants",
			d.batchSize, len(d.variants))
	}
	return d, nil
}

// Dispatch submits one generation batch for the given source image.
//
// imageRef is either a public URL or a data URI. Data URIs are first
// offered to the configured image host; if that fails or no host is
// configured, the data URI itself is submitted.
func (d *Dispatcher) Dispatch(ctx context.Context, imageRef string) (*DispatchResult, error) {
	if strings.TrimSpace(imageRef) == "" {
		return nil, ErrNoImage
	}

	batchID := uuid.NewString()
	log := d.logger.With(zap.String("batch_id", batchID))

	imageRef = d.resolveImageRef(ctx, imageRef, log)

	variants, err := d.sampleVariants()
	if err != nil {
		return nil, err
	}

	log.Info("dispatching generation batch",
		zap.Int("count", len(variants)),
		zap.String("mode", d.provider.Mode().String()))

	subs := make([]*Submission, len(variants))
	errs := make([]error, len(variants))

	var wg sync.WaitGroup
	for i, variant := range variants {
		wg.Add(1)
		go func(i int, variant StyleVariant) {
			defer wg.Done()
			subs[i], errs[i] = d.provider.Generate(ctx, Request{
				Prompt:   BuildPrompt(variant),
				ImageRef: imageRef,
			})
		}(i, variant)
	}
	wg.Wait()

	// All-or-nothing: one rejected request fails the batch.
	if err := errors.Join(errs...); err != nil {
		log.Error("generation batch failed", zap.Error(err))
		return nil, err
	}

	result := &DispatchResult{
		Mode:     d.provider.Mode(),
		Variants: variants,
	}
	for _, sub := range subs {
		switch result.Mode {
		case ModeSync:
			result.Results = append(result.Results, sub.ResultURL)
		default:
			result.TaskIDs = append(result.TaskIDs, sub.TaskID)
		}
	}

	log.Info("generation batch accepted",
		zap.Int("count", len(variants)))
	return result, nil
}

// sampleVariants draws the batch's variants under the sampling lock.
func (d *Dispatcher) sampleVariants() ([]StyleVariant, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return SampleVariants(d.rng, d.variants, d.batchSize)
}

// resolveImageRef swaps a data URI for a hosted URL when an image host
// is configured and the upload succeeds. Hosting is best-effort; any
// failure falls back to the data URI.
func (d *Dispatcher) resolveImageRef(ctx context.Context, imageRef string, log *logging.Logger) string {
	if d.uploader == nil || !IsDataURIRef(imageRef) {
		return imageRef
	}
	if hosted, ok := d.uploader.Upload(ctx, imageRef); ok {
		log.Debug("source image hosted", zap.String("url", hosted))
		return hosted
	}
	return imageRef
}

// IsDataURIRef reports whether an image reference is an inline data URI
// rather than a fetchable URL.
func IsDataURIRef(ref string) bool {
	return strings.HasPrefix(ref, "data:")
}
