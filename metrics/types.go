// Package metrics provides in-memory operation metrics for the storefront
// backend. This file contains pure data types with no behavior.
package metrics

import "time"

// OperationRecord represents a single handled operation.
type OperationRecord struct {
	// ID is the unique identifier for this operation (batch ID, session
	// ID or a generated value)
	ID string `json:"id"`

	// Type identifies the kind of operation (e.g. "generate", "checkout",
	// "webhook", "email")
	Type string `json:"type"`

	// Status indicates the outcome: "success" or "error"
	Status string `json:"status"`

	// StartTime is when the operation began
	StartTime time.Time `json:"start_time"`

	// Duration is the total execution time
	Duration time.Duration `json:"duration"`

	// ErrorMsg contains error details if Status is "error"
	ErrorMsg string `json:"error_msg,omitempty"`
}

// OperationMetrics represents aggregated operation statistics.
type OperationMetrics struct {
	// TotalProcessed is the total number of operations handled
	TotalProcessed int64 `json:"total_processed"`

	// TotalSuccess is the count of successful operations
	TotalSuccess int64 `json:"total_success"`

	// TotalErrors is the count of failed operations
	TotalErrors int64 `json:"total_errors"`

	// ByType contains per-type statistics
	ByType map[string]*OperationTypeMetrics `json:"by_type"`
}

// OperationTypeMetrics represents statistics for one operation type.
type OperationTypeMetrics struct {
	// Count is the total number of operations of this type
	Count int64 `json:"count"`

	// SuccessRate is the percentage of successful operations (0-100)
	SuccessRate float64 `json:"success_rate"`

	// AvgDuration is the average execution time for this type
	AvgDuration time.Duration `json:"avg_duration"`
}

// Snapshot is the full metrics view served over HTTP.
type Snapshot struct {
	// Uptime is the duration since the application started
	Uptime time.Duration `json:"uptime"`

	// Operations are the aggregated statistics
	Operations OperationMetrics `json:"operations"`

	// Recent are the most recent operation records, oldest first
	Recent []OperationRecord `json:"recent"`
}

// Status constants for OperationRecord
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Operation type constants
const (
	OpGenerate = "generate"
	OpCheckout = "checkout"
	OpWebhook  = "webhook"
	OpEmail    = "email"
)
