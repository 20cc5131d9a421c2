package imagegen

import (
	"context"
)

// Mode distinguishes how a provider delivers results.
type Mode int

const (
	// ModeSync providers block until the final image is produced and
	// return its URL directly.
	ModeSync Mode = iota

	// ModeAsync providers return a task identifier immediately;
	// completion is observed by polling.
	ModeAsync
)

// String returns the string representation of a provider mode.
func (m Mode) String() string {
	switch m {
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	default:
		return "unknown"
	}
}

// Request is one stylization request: the full prompt for a single
// variant plus the source photo as a data URI or public URL.
type Request struct {
	Prompt   string
	ImageRef string
}

// Submission is the provider's answer to one Request. Exactly one of the
// fields is set, matching the provider's Mode.
type Submission struct {
	// ResultURL is the final image URL (sync mode).
	ResultURL string

	// TaskID identifies the asynchronous generation task (async mode).
	TaskID string
}

// Provider is the interface for image stylization providers. Each
// provider (NanoBanana tasks, OpenAI images) implements this interface to
// allow swappable generation backends.
type Provider interface {
	// Mode reports whether Generate returns final URLs or task IDs.
	Mode() Mode

	// Generate issues one stylization request. The context can be used
	// for cancellation and timeout control.
	Generate(ctx context.Context, req Request) (*Submission, error)
}

// StatusSource fetches the raw status payload for an asynchronous task.
// The raw bytes are exposed unmodified so the API layer can pass them
// through; the poller normalizes them via ParseStatusPayload.
type StatusSource interface {
	TaskStatus(ctx context.Context, taskID string) ([]byte, error)
}
