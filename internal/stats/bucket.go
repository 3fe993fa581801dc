// Package stats provides utilities for tracking activity-bucket write
// statistics.
package stats

import (
	"log/slog"
	"sync/atomic"
)

// BucketStats tracks cumulative statistics for heatmap bucket writes.
// All operations are thread-safe using atomic counters.
type BucketStats struct {
	created     int64 // Buckets created (first write for a key)
	incremented int64 // Existing buckets incremented in place
	skipped     int64 // Writes skipped because the store was unavailable
}

// NewBucketStats creates a new BucketStats instance.
func NewBucketStats() *BucketStats {
	return &BucketStats{}
}

// RecordCreate increments the created counter.
func (s *BucketStats) RecordCreate() {
	atomic.AddInt64(&s.created, 1)
}

// RecordIncrement increments the incremented counter.
func (s *BucketStats) RecordIncrement() {
	atomic.AddInt64(&s.incremented, 1)
}

// RecordSkip increments the skipped counter.
func (s *BucketStats) RecordSkip() {
	atomic.AddInt64(&s.skipped, 1)
}

// Created returns the total number of buckets created.
func (s *BucketStats) Created() int64 {
	return atomic.LoadInt64(&s.created)
}

// Incremented returns the total number of in-place increments.
func (s *BucketStats) Incremented() int64 {
	return atomic.LoadInt64(&s.incremented)
}

// Skipped returns the total number of skipped writes.
func (s *BucketStats) Skipped() int64 {
	return atomic.LoadInt64(&s.skipped)
}

// Total returns the total number of attempted bucket writes.
func (s *BucketStats) Total() int64 {
	return s.Created() + s.Incremented() + s.Skipped()
}

// LogSummary logs a summary of bucket write statistics at INFO level.
// The collection scheduler emits one after every successful cycle.
func (s *BucketStats) LogSummary(logger *slog.Logger) {
	logger.Info("activity bucket statistics",
		"created", s.Created(),
		"incremented", s.Incremented(),
		"skipped", s.Skipped(),
		"total", s.Total(),
	)
}
