package core

import "context"

// ShutdownFunc is the function signature for cleanup handlers run during
// graceful shutdown. Implementations should respect ctx and return promptly
// once it is cancelled.
type ShutdownFunc func(ctx context.Context) error
