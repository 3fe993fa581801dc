package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/itsearth/pulse/internal/monetize"
	"github.com/itsearth/pulse/internal/signal"
	"github.com/itsearth/pulse/internal/stats"
	"github.com/itsearth/pulse/internal/tracing"
)

// probeTimeout bounds the availability check so a wedged connection pool
// cannot stall a collection cycle.
const probeTimeout = 2 * time.Second

// Postgres implements Store on database/sql with the lib/pq driver.
type Postgres struct {
	db          *sql.DB
	logger      *slog.Logger
	bucketStats *stats.BucketStats
}

// NewPostgres creates a Postgres gateway over an open connection pool.
func NewPostgres(db *sql.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		db:          db,
		logger:      logger,
		bucketStats: stats.NewBucketStats(),
	}
}

// BucketStats exposes cumulative heatmap write statistics.
func (s *Postgres) BucketStats() *stats.BucketStats {
	return s.bucketStats
}

// Available implements Store with a bounded ping.
func (s *Postgres) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	return s.db.PingContext(ctx) == nil
}

// skipIfUnavailable probes the store and logs the standard skip warning.
func (s *Postgres) skipIfUnavailable(ctx context.Context, table string) error {
	if s.Available(ctx) {
		return nil
	}
	s.logger.Warn("store unavailable, skipping write",
		slog.String("table", table))
	return ErrUnavailable
}

// InsertSocial implements Store.
func (s *Postgres) InsertSocial(ctx context.Context, rec *signal.SocialEngagement) (err error) {
	if err := s.skipIfUnavailable(ctx, TableSocial); err != nil {
		return err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, TableSocial, tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	const q = `
		INSERT INTO social_engagement_analytics (
			id, location_name, latitude, longitude, platform,
			post_count, like_count, retweet_count, reply_count, unique_users,
			avg_sentiment, engagement_rate, trending_hashtags, topics,
			recorded_at, hour, day_of_week, is_weekend, is_holiday
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
	`
	_, err = s.db.ExecContext(ctx, q,
		rec.ID, rec.LocationName, rec.Latitude, rec.Longitude, rec.Platform,
		rec.PostCount, rec.LikeCount, rec.RetweetCount, rec.ReplyCount, rec.UniqueUsers,
		rec.AvgSentiment, rec.EngagementRate, pq.Array(rec.TrendingHashtags), pq.Array(rec.Topics),
		rec.RecordedAt, rec.Calendar.Hour, rec.Calendar.DayOfWeek, rec.Calendar.IsWeekend, rec.Calendar.IsHoliday,
	)
	if err != nil {
		return fmt.Errorf("insert social record: %w", err)
	}
	return nil
}

// InsertNetwork implements Store.
func (s *Postgres) InsertNetwork(ctx context.Context, rec *signal.NetworkPerformance) (err error) {
	if err := s.skipIfUnavailable(ctx, TableNetwork); err != nil {
		return err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, TableNetwork, tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	const q = `
		INSERT INTO network_performance_analytics (
			id, location_name, latitude, longitude, network_type,
			signal_strength, download_mbps, upload_mbps, latency_ms, jitter_ms,
			device_type, reliability_score, tested_at,
			hour, day_of_week, is_weekend, is_holiday, peak_hour
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
	`
	_, err = s.db.ExecContext(ctx, q,
		rec.ID, rec.LocationName, rec.Latitude, rec.Longitude, rec.NetworkType,
		rec.SignalStrength, rec.DownloadMbps, rec.UploadMbps, rec.LatencyMs, rec.JitterMs,
		rec.DeviceType, rec.ReliabilityScore, rec.TestedAt,
		rec.Calendar.Hour, rec.Calendar.DayOfWeek, rec.Calendar.IsWeekend, rec.Calendar.IsHoliday, rec.PeakHour,
	)
	if err != nil {
		return fmt.Errorf("insert network record: %w", err)
	}
	return nil
}

// RecordActivity implements Store. The path is check-then-act: an existing
// bucket is incremented in place; a missing bucket is inserted with ON
// CONFLICT DO UPDATE so a concurrent cycle racing the check still lands as
// an increment rather than an error.
func (s *Postgres) RecordActivity(ctx context.Context, bucket signal.ActivityBucket) (err error) {
	if err := s.skipIfUnavailable(ctx, TableActivity); err != nil {
		s.bucketStats.RecordSkip()
		return err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, TableActivity, tracing.DBOperationUpsert)
	defer func() { endSpan(err) }()

	const checkQ = `
		SELECT 1 FROM location_activity_heatmap
		WHERE location_name = $1 AND activity_date = $2 AND hour = $3
	`
	var one int
	err = s.db.QueryRowContext(ctx, checkQ, bucket.LocationName, bucket.ActivityDate, bucket.Hour).Scan(&one)
	switch {
	case err == nil:
		const updateQ = `
			UPDATE location_activity_heatmap
			SET total_interactions = total_interactions + $4,
			    unique_users = unique_users + $5,
			    active_users = $6,
			    updated_at = NOW()
			WHERE location_name = $1 AND activity_date = $2 AND hour = $3
		`
		if _, err = s.db.ExecContext(ctx, updateQ,
			bucket.LocationName, bucket.ActivityDate, bucket.Hour,
			bucket.TotalInteractions, bucket.UniqueUsers, bucket.ActiveUsers,
		); err != nil {
			return fmt.Errorf("increment activity bucket: %w", err)
		}
		s.bucketStats.RecordIncrement()
		return nil

	case err == sql.ErrNoRows:
		const insertQ = `
			INSERT INTO location_activity_heatmap (
				location_name, activity_date, hour,
				total_interactions, unique_users, active_users,
				created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,NOW(),NOW())
			ON CONFLICT (location_name, activity_date, hour) DO UPDATE
			SET total_interactions = location_activity_heatmap.total_interactions + EXCLUDED.total_interactions,
			    unique_users = location_activity_heatmap.unique_users + EXCLUDED.unique_users,
			    active_users = EXCLUDED.active_users,
			    updated_at = NOW()
		`
		if _, err = s.db.ExecContext(ctx, insertQ,
			bucket.LocationName, bucket.ActivityDate, bucket.Hour,
			bucket.TotalInteractions, bucket.UniqueUsers, bucket.ActiveUsers,
		); err != nil {
			return fmt.Errorf("insert activity bucket: %w", err)
		}
		s.bucketStats.RecordCreate()
		return nil

	default:
		return fmt.Errorf("check activity bucket: %w", err)
	}
}

// InsertInsight implements Store. Payload is stored as jsonb.
func (s *Postgres) InsertInsight(ctx context.Context, in *monetize.Insight) (err error) {
	if err := s.skipIfUnavailable(ctx, TableInsights); err != nil {
		return err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, TableInsights, tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	payload, err := json.Marshal(in.Payload)
	if err != nil {
		return fmt.Errorf("marshal insight payload: %w", err)
	}

	const q = `
		INSERT INTO monetization_insights (
			id, insight_type, data_category, geographic_scope,
			time_period, market_value, payload, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`
	_, err = s.db.ExecContext(ctx, q,
		in.ID, in.InsightType, in.DataCategory, in.GeographicScope,
		in.TimePeriod, in.MarketValue, payload, in.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert insight: %w", err)
	}
	return nil
}

// SocialSince implements Store.
func (s *Postgres) SocialSince(ctx context.Context, locationName string, since time.Time) (recs []signal.SocialEngagement, err error) {
	if !s.Available(ctx) {
		return nil, ErrUnavailable
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, TableSocial, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	const q = `
		SELECT id, location_name, latitude, longitude, platform,
		       post_count, like_count, retweet_count, reply_count, unique_users,
		       avg_sentiment, engagement_rate, trending_hashtags, topics,
		       recorded_at, hour, day_of_week, is_weekend, is_holiday
		FROM social_engagement_analytics
		WHERE recorded_at >= $1 AND ($2 = '' OR location_name = $2)
		ORDER BY recorded_at DESC
	`
	rows, err := s.db.QueryContext(ctx, q, since, locationName)
	if err != nil {
		return nil, fmt.Errorf("query social records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec signal.SocialEngagement
		if err := rows.Scan(
			&rec.ID, &rec.LocationName, &rec.Latitude, &rec.Longitude, &rec.Platform,
			&rec.PostCount, &rec.LikeCount, &rec.RetweetCount, &rec.ReplyCount, &rec.UniqueUsers,
			&rec.AvgSentiment, &rec.EngagementRate, pq.Array(&rec.TrendingHashtags), pq.Array(&rec.Topics),
			&rec.RecordedAt, &rec.Calendar.Hour, &rec.Calendar.DayOfWeek, &rec.Calendar.IsWeekend, &rec.Calendar.IsHoliday,
		); err != nil {
			return nil, fmt.Errorf("scan social record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// NetworkSince implements Store.
func (s *Postgres) NetworkSince(ctx context.Context, locationName string, since time.Time) (recs []signal.NetworkPerformance, err error) {
	if !s.Available(ctx) {
		return nil, ErrUnavailable
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, TableNetwork, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	const q = `
		SELECT id, location_name, latitude, longitude, network_type,
		       signal_strength, download_mbps, upload_mbps, latency_ms, jitter_ms,
		       device_type, reliability_score, tested_at,
		       hour, day_of_week, is_weekend, is_holiday, peak_hour
		FROM network_performance_analytics
		WHERE tested_at >= $1 AND ($2 = '' OR location_name = $2)
		ORDER BY tested_at DESC
	`
	rows, err := s.db.QueryContext(ctx, q, since, locationName)
	if err != nil {
		return nil, fmt.Errorf("query network records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec signal.NetworkPerformance
		if err := rows.Scan(
			&rec.ID, &rec.LocationName, &rec.Latitude, &rec.Longitude, &rec.NetworkType,
			&rec.SignalStrength, &rec.DownloadMbps, &rec.UploadMbps, &rec.LatencyMs, &rec.JitterMs,
			&rec.DeviceType, &rec.ReliabilityScore, &rec.TestedAt,
			&rec.Calendar.Hour, &rec.Calendar.DayOfWeek, &rec.Calendar.IsWeekend, &rec.Calendar.IsHoliday, &rec.PeakHour,
		); err != nil {
			return nil, fmt.Errorf("scan network record: %w", err)
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// ActivitySince implements Store.
func (s *Postgres) ActivitySince(ctx context.Context, locationName string, since time.Time) (buckets []signal.ActivityBucket, err error) {
	if !s.Available(ctx) {
		return nil, ErrUnavailable
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, TableActivity, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	const q = `
		SELECT location_name, activity_date::text, hour,
		       total_interactions, unique_users, active_users
		FROM location_activity_heatmap
		WHERE activity_date >= $1::date AND ($2 = '' OR location_name = $2)
		ORDER BY activity_date, hour
	`
	rows, err := s.db.QueryContext(ctx, q, since.Format("2006-01-02"), locationName)
	if err != nil {
		return nil, fmt.Errorf("query activity buckets: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var b signal.ActivityBucket
		if err := rows.Scan(
			&b.LocationName, &b.ActivityDate, &b.Hour,
			&b.TotalInteractions, &b.UniqueUsers, &b.ActiveUsers,
		); err != nil {
			return nil, fmt.Errorf("scan activity bucket: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// InsightsSince implements Store.
func (s *Postgres) InsightsSince(ctx context.Context, since time.Time) (insights []monetize.Insight, err error) {
	if !s.Available(ctx) {
		return nil, ErrUnavailable
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, TableInsights, tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	const q = `
		SELECT id, insight_type, data_category, geographic_scope,
		       time_period, market_value, payload, created_at
		FROM monetization_insights
		WHERE created_at >= $1
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, q, since)
	if err != nil {
		return nil, fmt.Errorf("query insights: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var in monetize.Insight
		var payload []byte
		if err := rows.Scan(
			&in.ID, &in.InsightType, &in.DataCategory, &in.GeographicScope,
			&in.TimePeriod, &in.MarketValue, &payload, &in.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan insight: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &in.Payload); err != nil {
				return nil, fmt.Errorf("unmarshal insight payload: %w", err)
			}
		}
		insights = append(insights, in)
	}
	return insights, rows.Err()
}
