package metrics

import "sync/atomic"

// Metrics captures shared operational counters for ingest, the rating
// engine, and the worker queue.
type Metrics struct {
	queueLength   int64
	queueCapacity int64
	workerCount   int64

	rowsProcessed   int64
	rowsSkipped     int64
	filesProcessed  int64
	ratingsUpserted int64
	engineFailures  int64
}

// Snapshot provides a consistent view of the current metrics.
type Snapshot struct {
	QueueLength     int   `json:"queue_length"`
	QueueCapacity   int   `json:"queue_capacity"`
	WorkerCount     int   `json:"worker_count"`
	RowsProcessed   int64 `json:"rows_processed"`
	RowsSkipped     int64 `json:"rows_skipped"`
	FilesProcessed  int64 `json:"files_processed"`
	RatingsUpserted int64 `json:"ratings_upserted"`
	EngineFailures  int64 `json:"engine_failures"`
}

// New creates a zeroed Metrics instance.
func New() *Metrics {
	return &Metrics{}
}

// UpdateQueue records the current queue stats.
func (m *Metrics) UpdateQueue(length, capacity, workers int) {
	atomic.StoreInt64(&m.queueLength, int64(length))
	atomic.StoreInt64(&m.queueCapacity, int64(capacity))
	atomic.StoreInt64(&m.workerCount, int64(workers))
}

// RecordRows tracks one ingest pass: rows stored and rows rejected.
func (m *Metrics) RecordRows(processed, skipped int) {
	atomic.AddInt64(&m.rowsProcessed, int64(processed))
	atomic.AddInt64(&m.rowsSkipped, int64(skipped))
}

// RecordFile counts one watched workbook handled end to end.
func (m *Metrics) RecordFile() {
	atomic.AddInt64(&m.filesProcessed, 1)
}

// RecordRatings counts assessment rows written by an analysis run.
func (m *Metrics) RecordRatings(n int) {
	atomic.AddInt64(&m.ratingsUpserted, int64(n))
}

// RecordEngineFailure counts a failed rating-engine call or run.
func (m *Metrics) RecordEngineFailure() {
	atomic.AddInt64(&m.engineFailures, 1)
}

// Snapshot returns a read-only view of metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		QueueLength:     int(atomic.LoadInt64(&m.queueLength)),
		QueueCapacity:   int(atomic.LoadInt64(&m.queueCapacity)),
		WorkerCount:     int(atomic.LoadInt64(&m.workerCount)),
		RowsProcessed:   atomic.LoadInt64(&m.rowsProcessed),
		RowsSkipped:     atomic.LoadInt64(&m.rowsSkipped),
		FilesProcessed:  atomic.LoadInt64(&m.filesProcessed),
		RatingsUpserted: atomic.LoadInt64(&m.ratingsUpserted),
		EngineFailures:  atomic.LoadInt64(&m.engineFailures),
	}
}
