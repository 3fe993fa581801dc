// Package store provides the persistence gateway between the collection
// pipeline and the relational store. Every write path probes availability
// first and skips on failure; this subsystem never queues writes for later
// retry, so a write against an unavailable store is simply lost.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/itsearth/pulse/internal/monetize"
	"github.com/itsearth/pulse/internal/signal"
	"github.com/itsearth/pulse/internal/stats"
)

// ErrUnavailable is returned when the connectivity probe fails before a
// read or write. Callers log a warning and continue; there is no
// single-operation retry.
var ErrUnavailable = errors.New("store unavailable")

// Table names in the relational store.
const (
	TableSocial   = "social_engagement_analytics"
	TableNetwork  = "network_performance_analytics"
	TableActivity = "location_activity_heatmap"
	TableInsights = "monetization_insights"
)

// Store is the gateway contract consumed by the collector and the
// aggregator. Records are immutable once written; the activity heatmap
// bucket is the sole mutable aggregate and is only ever incremented.
type Store interface {
	// Available performs a cheap connectivity probe.
	Available(ctx context.Context) bool

	// InsertSocial persists a social-engagement record.
	InsertSocial(ctx context.Context, rec *signal.SocialEngagement) error

	// InsertNetwork persists a network-performance record.
	InsertNetwork(ctx context.Context, rec *signal.NetworkPerformance) error

	// RecordActivity creates the heatmap bucket for the record's
	// (location, date, hour) key if absent, otherwise increments the
	// existing bucket's counters in place. A bucket is created at most
	// once per key.
	RecordActivity(ctx context.Context, bucket signal.ActivityBucket) error

	// InsertInsight persists a monetization insight row.
	InsertInsight(ctx context.Context, in *monetize.Insight) error

	// SocialSince returns social records at or after since, newest first.
	// An empty locationName matches all locations.
	SocialSince(ctx context.Context, locationName string, since time.Time) ([]signal.SocialEngagement, error)

	// NetworkSince returns network records at or after since, newest first.
	NetworkSince(ctx context.Context, locationName string, since time.Time) ([]signal.NetworkPerformance, error)

	// ActivitySince returns heatmap buckets for activity dates at or after
	// since, ordered by date then hour.
	ActivitySince(ctx context.Context, locationName string, since time.Time) ([]signal.ActivityBucket, error)

	// InsightsSince returns insights created at or after since, newest first.
	InsightsSince(ctx context.Context, since time.Time) ([]monetize.Insight, error)

	// BucketStats exposes cumulative heatmap write statistics for
	// periodic reporting.
	BucketStats() *stats.BucketStats
}
