// Package metrics provides the Store for in-memory metrics storage.
package metrics

import (
	"sync"
	"time"
)

// Recorder is the write-side interface handlers use to report operations.
type Recorder interface {
	// Record logs a completed operation.
	Record(record OperationRecord)
}

// Store is thread-safe in-memory storage for operation metrics. It keeps a
// circular buffer of recent records plus per-type aggregations.
//
// Usage:
//
//	store := metrics.NewStore(metrics.DefaultStoreConfig(), time.Now())
//	store.Record(record)
//	snapshot := store.GetSnapshot(20)
type Store struct {
	mu sync.RWMutex

	// Recent history (circular buffer)
	history []OperationRecord
	cap     int
	head    int
	size    int

	// Aggregation
	totalOps     int64
	totalSuccess int64
	totalErrors  int64
	byType       map[string]*typeStats

	startTime time.Time
}

// typeStats holds per-type aggregation data
type typeStats struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
}

// StoreConfig configures the Store behavior.
type StoreConfig struct {
	// HistoryCapacity is the max number of records to retain
	HistoryCapacity int
}

// DefaultStoreConfig returns a default configuration.
func DefaultStoreConfig() StoreConfig {
	return StoreConfig{
		HistoryCapacity: 100,
	}
}

// NewStore creates a Store with the specified configuration. The startTime
// is used to calculate uptime.
func NewStore(config StoreConfig, startTime time.Time) *Store {
	cap := config.HistoryCapacity
	if cap < 1 {
		cap = 100
	}

	return &Store{
		history:   make([]OperationRecord, cap),
		cap:       cap,
		byType:    make(map[string]*typeStats),
		startTime: startTime,
	}
}

// Record logs a completed operation. Implements Recorder.
func (s *Store) Record(record OperationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = record
	s.head = (s.head + 1) % s.cap
	if s.size < s.cap {
		s.size++
	}

	s.totalOps++
	switch record.Status {
	case StatusSuccess:
		s.totalSuccess++
	case StatusError:
		s.totalErrors++
	}

	stats, ok := s.byType[record.Type]
	if !ok {
		stats = &typeStats{}
		s.byType[record.Type] = stats
	}
	stats.count++
	if record.Status == StatusSuccess {
		stats.successCount++
	}
	stats.totalDuration += record.Duration
}

// GetOperationMetrics returns aggregated operation statistics.
func (s *Store) GetOperationMetrics() OperationMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := OperationMetrics{
		TotalProcessed: s.totalOps,
		TotalSuccess:   s.totalSuccess,
		TotalErrors:    s.totalErrors,
		ByType:         make(map[string]*OperationTypeMetrics),
	}

	for opType, stats := range s.byType {
		var successRate float64
		if stats.count > 0 {
			successRate = float64(stats.successCount) / float64(stats.count) * 100
		}

		var avgDuration time.Duration
		if stats.count > 0 {
			avgDuration = stats.totalDuration / time.Duration(stats.count)
		}

		metrics.ByType[opType] = &OperationTypeMetrics{
			Count:       stats.count,
			SuccessRate: successRate,
			AvgDuration: avgDuration,
		}
	}

	return metrics
}

// GetRecent returns the N most recent operation records, oldest first.
// If limit exceeds available records, all available are returned.
func (s *Store) GetRecent(limit int) []OperationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []OperationRecord{}
	}

	if limit > s.size {
		limit = s.size
	}

	result := make([]OperationRecord, limit)
	for i := 0; i < limit; i++ {
		idx := (s.head - limit + i + s.cap) % s.cap
		result[i] = s.history[idx]
	}

	return result
}

// GetSnapshot composes the aggregate view served by the metrics endpoint.
func (s *Store) GetSnapshot(recentLimit int) Snapshot {
	return Snapshot{
		Uptime:     time.Since(s.startTime),
		Operations: s.GetOperationMetrics(),
		Recent:     s.GetRecent(recentLimit),
	}
}

// Verify Store implements Recorder
var _ Recorder = (*Store)(nil)
