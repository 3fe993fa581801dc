package store

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/itsearth/pulse/internal/monetize"
	"github.com/itsearth/pulse/internal/signal"
	"github.com/itsearth/pulse/internal/stats"
)

// bucketID is the composite key of a heatmap bucket.
type bucketID struct {
	location string
	date     string
	hour     int
}

// Memory implements Store in process memory, mirroring the Postgres
// gateway's semantics. Used by tests and by the dev binary when no
// database is configured.
type Memory struct {
	mu          sync.RWMutex
	available   bool
	social      []signal.SocialEngagement
	network     []signal.NetworkPerformance
	activity    map[bucketID]*signal.ActivityBucket
	insights    []monetize.Insight
	logger      *slog.Logger
	bucketStats *stats.BucketStats
}

// NewMemory creates an available in-memory store.
func NewMemory(logger *slog.Logger) *Memory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Memory{
		available:   true,
		activity:    make(map[bucketID]*signal.ActivityBucket),
		logger:      logger,
		bucketStats: stats.NewBucketStats(),
	}
}

// SetAvailable toggles the simulated connectivity state.
func (s *Memory) SetAvailable(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.available = v
}

// BucketStats exposes cumulative heatmap write statistics.
func (s *Memory) BucketStats() *stats.BucketStats {
	return s.bucketStats
}

// Available implements Store.
func (s *Memory) Available(_ context.Context) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.available
}

// InsertSocial implements Store.
func (s *Memory) InsertSocial(ctx context.Context, rec *signal.SocialEngagement) error {
	if !s.Available(ctx) {
		s.logger.Warn("store unavailable, skipping write", slog.String("table", TableSocial))
		return ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	copied := *rec
	copied.TrendingHashtags = append([]string(nil), rec.TrendingHashtags...)
	copied.Topics = append([]string(nil), rec.Topics...)
	s.social = append(s.social, copied)
	return nil
}

// InsertNetwork implements Store.
func (s *Memory) InsertNetwork(ctx context.Context, rec *signal.NetworkPerformance) error {
	if !s.Available(ctx) {
		s.logger.Warn("store unavailable, skipping write", slog.String("table", TableNetwork))
		return ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	s.network = append(s.network, *rec)
	return nil
}

// RecordActivity implements Store.
func (s *Memory) RecordActivity(ctx context.Context, bucket signal.ActivityBucket) error {
	if !s.Available(ctx) {
		s.logger.Warn("store unavailable, skipping write", slog.String("table", TableActivity))
		s.bucketStats.RecordSkip()
		return ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := bucketID{bucket.LocationName, bucket.ActivityDate, bucket.Hour}
	if existing, ok := s.activity[id]; ok {
		existing.TotalInteractions += bucket.TotalInteractions
		existing.UniqueUsers += bucket.UniqueUsers
		existing.ActiveUsers = bucket.ActiveUsers
		s.bucketStats.RecordIncrement()
		return nil
	}

	copied := bucket
	s.activity[id] = &copied
	s.bucketStats.RecordCreate()
	return nil
}

// InsertInsight implements Store.
func (s *Memory) InsertInsight(ctx context.Context, in *monetize.Insight) error {
	if !s.Available(ctx) {
		s.logger.Warn("store unavailable, skipping write", slog.String("table", TableInsights))
		return ErrUnavailable
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	s.insights = append(s.insights, *in)
	return nil
}

// SocialSince implements Store.
func (s *Memory) SocialSince(ctx context.Context, locationName string, since time.Time) ([]signal.SocialEngagement, error) {
	if !s.Available(ctx) {
		return nil, ErrUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []signal.SocialEngagement
	for _, rec := range s.social {
		if rec.RecordedAt.Before(since) {
			continue
		}
		if locationName != "" && rec.LocationName != locationName {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RecordedAt.After(out[j].RecordedAt) })
	return out, nil
}

// NetworkSince implements Store.
func (s *Memory) NetworkSince(ctx context.Context, locationName string, since time.Time) ([]signal.NetworkPerformance, error) {
	if !s.Available(ctx) {
		return nil, ErrUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []signal.NetworkPerformance
	for _, rec := range s.network {
		if rec.TestedAt.Before(since) {
			continue
		}
		if locationName != "" && rec.LocationName != locationName {
			continue
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TestedAt.After(out[j].TestedAt) })
	return out, nil
}

// ActivitySince implements Store.
func (s *Memory) ActivitySince(ctx context.Context, locationName string, since time.Time) ([]signal.ActivityBucket, error) {
	if !s.Available(ctx) {
		return nil, ErrUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	sinceDate := since.Format("2006-01-02")
	var out []signal.ActivityBucket
	for _, b := range s.activity {
		if b.ActivityDate < sinceDate {
			continue
		}
		if locationName != "" && b.LocationName != locationName {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ActivityDate != out[j].ActivityDate {
			return out[i].ActivityDate < out[j].ActivityDate
		}
		return out[i].Hour < out[j].Hour
	})
	return out, nil
}

// InsightsSince implements Store.
func (s *Memory) InsightsSince(ctx context.Context, since time.Time) ([]monetize.Insight, error) {
	if !s.Available(ctx) {
		return nil, ErrUnavailable
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []monetize.Insight
	for _, in := range s.insights {
		if in.CreatedAt.Before(since) {
			continue
		}
		out = append(out, in)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
