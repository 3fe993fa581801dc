package signal

import (
	"math/rand"
	"strings"
	"time"
)

// Estimation bounds used when a source omits a measured field. These are
// documented approximations, not measured data.
const (
	// Upload speed, when absent, is estimated as a fraction of download
	// speed in [0.2, 0.5).
	uploadEstimateMin = 0.2
	uploadEstimateMax = 0.5

	// Missing jitter is filled with a placeholder in [1, 10) ms.
	jitterFillMinMs = 1.0
	jitterFillMaxMs = 10.0
)

// Clamp01 bounds v into [0, 1].
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// FilterTags keeps only non-empty string elements from a loosely typed tag
// list, trimming whitespace and dropping duplicates while preserving order.
func FilterTags(raw []any) []string {
	if len(raw) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		s, ok := v.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// ReliabilityScore derives the [0, 1] network quality indicator from signal
// strength (0-100) and latency (ms). Latency at or above 200ms zeroes the
// latency factor.
func ReliabilityScore(signalStrength, latencyMs float64) float64 {
	return Clamp01((signalStrength / 100) * (1 - latencyMs/200))
}

// NormalizeSocial converts a raw social payload into a canonical record for
// the given location, sanitizing tag lists and clamping ratio fields.
func NormalizeSocial(loc Location, raw *RawSocial, at time.Time) *SocialEngagement {
	platform := raw.Platform
	if platform == "" {
		platform = "unknown"
	}
	return &SocialEngagement{
		LocationName:     loc.Name,
		Latitude:         loc.Latitude,
		Longitude:        loc.Longitude,
		Platform:         platform,
		PostCount:        raw.Posts,
		LikeCount:        raw.Likes,
		RetweetCount:     raw.Retweets,
		ReplyCount:       raw.Replies,
		UniqueUsers:      raw.Users,
		AvgSentiment:     Clamp01(raw.Sentiment),
		EngagementRate:   Clamp01(raw.EngagementRate),
		TrendingHashtags: FilterTags(raw.Hashtags),
		Topics:           FilterTags(raw.Topics),
		RecordedAt:       at,
		Calendar:         DeriveCalendar(at),
	}
}

// NormalizeNews converts a raw news payload into a secondary
// social-engagement record tagged with the "news" platform. Article count
// maps to post count; news carries no per-user engagement counters.
func NormalizeNews(loc Location, raw *RawNews, at time.Time) *SocialEngagement {
	return &SocialEngagement{
		LocationName: loc.Name,
		Latitude:     loc.Latitude,
		Longitude:    loc.Longitude,
		Platform:     "news",
		PostCount:    raw.ArticleCount,
		AvgSentiment: Clamp01(raw.Sentiment),
		Topics:       FilterTags(raw.Topics),
		RecordedAt:   at,
		Calendar:     DeriveCalendar(at),
	}
}

// NormalizeNetwork converts a raw network payload into a canonical record,
// deriving the reliability score and filling omitted measurements.
func NormalizeNetwork(loc Location, raw *RawNetwork, at time.Time) *NetworkPerformance {
	upload := 0.0
	if raw.UploadMbps != nil {
		upload = *raw.UploadMbps
	} else {
		frac := uploadEstimateMin + rand.Float64()*(uploadEstimateMax-uploadEstimateMin)
		upload = raw.DownloadMbps * frac
	}

	jitter := 0.0
	if raw.JitterMs != nil {
		jitter = *raw.JitterMs
	} else {
		jitter = jitterFillMinMs + rand.Float64()*(jitterFillMaxMs-jitterFillMinMs)
	}

	deviceType := raw.DeviceType
	if deviceType == "" {
		deviceType = "unknown"
	}

	cal := DeriveCalendar(at)
	return &NetworkPerformance{
		LocationName:     loc.Name,
		Latitude:         loc.Latitude,
		Longitude:        loc.Longitude,
		NetworkType:      raw.NetworkType,
		SignalStrength:   raw.SignalStrength,
		DownloadMbps:     raw.DownloadMbps,
		UploadMbps:       upload,
		LatencyMs:        raw.LatencyMs,
		JitterMs:         jitter,
		DeviceType:       deviceType,
		ReliabilityScore: ReliabilityScore(raw.SignalStrength, raw.LatencyMs),
		TestedAt:         at,
		Calendar:         cal,
		PeakHour:         IsPeakHour(cal.Hour),
	}
}
