// Package signal defines the canonical record shapes produced by the
// collection pipeline and the normalization boundary that converts raw
// source payloads into them.
package signal

import "time"

// Location identifies a monitored geographic point. The set of monitored
// locations is fixed at startup and locations are always processed in the
// order they were supplied.
type Location struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DefaultLocations returns the built-in monitored city list.
func DefaultLocations() []Location {
	return []Location{
		{Name: "New York", Latitude: 40.7128, Longitude: -74.0060},
		{Name: "London", Latitude: 51.5074, Longitude: -0.1278},
		{Name: "Tokyo", Latitude: 35.6762, Longitude: 139.6503},
		{Name: "Paris", Latitude: 48.8566, Longitude: 2.3522},
		{Name: "Sydney", Latitude: -33.8688, Longitude: 151.2093},
		{Name: "Berlin", Latitude: 52.5200, Longitude: 13.4050},
		{Name: "San Francisco", Latitude: 37.7749, Longitude: -122.4194},
		{Name: "Singapore", Latitude: 1.3521, Longitude: 103.8198},
		{Name: "Dubai", Latitude: 25.2048, Longitude: 55.2708},
		{Name: "Toronto", Latitude: 43.6532, Longitude: -79.3832},
	}
}

// CalendarFields are derived time-of-day attributes attached to every
// analytics record at normalization time.
type CalendarFields struct {
	Hour      int  `json:"hour"`
	DayOfWeek int  `json:"day_of_week"` // 0 = Sunday
	IsWeekend bool `json:"is_weekend"`
	IsHoliday bool `json:"is_holiday"`
}

// fixedHolidays lists fixed-date holidays checked when deriving calendar
// fields. Month/day only; movable holidays are not modeled.
var fixedHolidays = map[[2]int]bool{
	{1, 1}:   true, // New Year's Day
	{7, 4}:   true, // Independence Day
	{12, 25}: true, // Christmas Day
	{12, 31}: true, // New Year's Eve
}

// DeriveCalendar computes the calendar fields for a record timestamp.
func DeriveCalendar(t time.Time) CalendarFields {
	wd := t.Weekday()
	return CalendarFields{
		Hour:      t.Hour(),
		DayOfWeek: int(wd),
		IsWeekend: wd == time.Saturday || wd == time.Sunday,
		IsHoliday: fixedHolidays[[2]int{int(t.Month()), t.Day()}],
	}
}

// peakHourRanges are the local hours treated as network peak load windows:
// morning commute, lunch, and evening.
var peakHourRanges = [][2]int{{7, 9}, {12, 14}, {17, 21}}

// IsPeakHour reports whether the given hour falls in a peak load window.
func IsPeakHour(hour int) bool {
	for _, r := range peakHourRanges {
		if hour >= r[0] && hour <= r[1] {
			return true
		}
	}
	return false
}

// SocialEngagement is the canonical social-signal record persisted per
// location per collection cycle. Sentiment and engagement rate are always
// clamped to [0, 1] before the record leaves the normalizer.
type SocialEngagement struct {
	ID               string         `json:"id,omitempty"`
	LocationName     string         `json:"location_name"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	Platform         string         `json:"platform"`
	PostCount        int64          `json:"post_count"`
	LikeCount        int64          `json:"like_count"`
	RetweetCount     int64          `json:"retweet_count"`
	ReplyCount       int64          `json:"reply_count"`
	UniqueUsers      int64          `json:"unique_users"`
	AvgSentiment     float64        `json:"avg_sentiment"`
	EngagementRate   float64        `json:"engagement_rate"`
	TrendingHashtags []string       `json:"trending_hashtags"`
	Topics           []string       `json:"topics"`
	RecordedAt       time.Time      `json:"recorded_at"`
	Calendar         CalendarFields `json:"calendar"`
}

// NetworkPerformance is the canonical network-quality record. The
// reliability score is derived, never supplied by a source.
type NetworkPerformance struct {
	ID               string         `json:"id,omitempty"`
	LocationName     string         `json:"location_name"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	NetworkType      string         `json:"network_type"`
	SignalStrength   float64        `json:"signal_strength"` // 0-100
	DownloadMbps     float64        `json:"download_mbps"`
	UploadMbps       float64        `json:"upload_mbps"`
	LatencyMs        float64        `json:"latency_ms"`
	JitterMs         float64        `json:"jitter_ms"`
	DeviceType       string         `json:"device_type"`
	ReliabilityScore float64        `json:"reliability_score"` // [0, 1]
	TestedAt         time.Time      `json:"tested_at"`
	Calendar         CalendarFields `json:"calendar"`
	PeakHour         bool           `json:"peak_hour"`
}

// ActivityBucket is the per-location, per-hour aggregate row. Buckets are
// created at most once per (location, date, hour); later activity in the
// same hour increments the counters in place.
type ActivityBucket struct {
	LocationName      string `json:"location_name"`
	ActivityDate      string `json:"activity_date"` // YYYY-MM-DD
	Hour              int    `json:"hour"`
	TotalInteractions int64  `json:"total_interactions"`
	UniqueUsers       int64  `json:"unique_users"`
	ActiveUsers       int64  `json:"active_users"`
}

// BucketKeyFor returns the (date, hour) bucket coordinates for a timestamp.
func BucketKeyFor(t time.Time) (date string, hour int) {
	return t.Format("2006-01-02"), t.Hour()
}
