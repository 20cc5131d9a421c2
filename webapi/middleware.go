// Package webapi exposes the storefront's HTTP API: generation,
// checkout, the payment webhook and the supporting endpoints.
// This file contains the request logging middleware.
package webapi

import (
	"net/http"
	"time"

	"popart_backend/logging"

	"go.uber.org/zap"
)

// LoggingMiddleware logs every request with method, path, status code
// and duration.
//
// Thread-safe for concurrent HTTP requests.
type LoggingMiddleware struct {
	logger *logging.Logger

	// skipPaths are paths to skip logging (e.g. health checks)
	skipPaths map[string]bool
}

// LoggingMiddlewareConfig holds configuration for the LoggingMiddleware.
type LoggingMiddlewareConfig struct {
	// Logger for request logging.
	Logger *logging.Logger

	// SkipPaths are paths to skip logging (default: none).
	SkipPaths []string
}

// NewLoggingMiddleware creates a middleware with the given configuration.
func NewLoggingMiddleware(config LoggingMiddlewareConfig) *LoggingMiddleware {
	logger := config.Logger
	if logger == nil {
		logger = logging.NewNop()
	}

	skip := make(map[string]bool, len(config.SkipPaths))
	for _, path := range config.SkipPaths {
		skip[path] = true
	}

	return &LoggingMiddleware{
		logger:    logger.Named("http"),
		skipPaths: skip,
	}
}

// statusRecorder wraps a ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	n, err := r.ResponseWriter.Write(b)
	r.written += int64(n)
	return n, err
}

// Handler wraps an http.Handler with request logging.
func (m *LoggingMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(recorder, r)

		fields := []zap.Field{
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", recorder.status),
			zap.Duration("duration", time.Since(start)),
			zap.String("remote_addr", r.RemoteAddr),
		}

		switch {
		case recorder.status >= http.StatusInternalServerError:
			m.logger.Error("request failed", fields...)
		case recorder.status >= http.StatusBadRequest:
			m.logger.Warn("request rejected", fields...)
		default:
			m.logger.Info("request served", fields...)
		}
	})
}
