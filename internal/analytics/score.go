// Package analytics aggregates persisted collection history over time
// windows into derived metrics: growth rates, trend classifications,
// sentiment distributions, tag rankings, and weighted composite scores.
package analytics

import (
	"sort"

	"github.com/itsearth/pulse/internal/signal"
)

// Trend classifies the direction of a growth rate.
type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// GrowthRate computes the percentage change from previous to current.
// A zero previous value is special-cased: any growth from nothing reports
// as 100, and no activity in either period reports as 0.
func GrowthRate(current, previous float64) float64 {
	if previous == 0 {
		if current > 0 {
			return 100
		}
		return 0
	}
	return ((current - previous) / previous) * 100
}

// Classify maps a growth rate to a trend. Boundaries are exclusive: growth
// of exactly 5 or -5 is still stable.
func Classify(growth float64) Trend {
	switch {
	case growth > 5:
		return TrendUp
	case growth < -5:
		return TrendDown
	default:
		return TrendStable
	}
}

// SentimentDistribution is the positive/neutral/negative percentage split
// of a record set. The three values sum to 100 up to rounding.
type SentimentDistribution struct {
	PositivePct float64 `json:"positive_pct"`
	NeutralPct  float64 `json:"neutral_pct"`
	NegativePct float64 `json:"negative_pct"`
}

// Sentiment bucket boundaries. A score of exactly 0.6 is positive and
// exactly 0.4 is negative.
const (
	positiveSentimentMin = 0.6
	negativeSentimentMax = 0.4
)

// DistributeSentiment buckets records by average sentiment and reports the
// split as percentages. An empty record set yields all zeros.
func DistributeSentiment(records []signal.SocialEngagement) SentimentDistribution {
	if len(records) == 0 {
		return SentimentDistribution{}
	}

	var positive, negative int
	for _, r := range records {
		switch {
		case r.AvgSentiment >= positiveSentimentMin:
			positive++
		case r.AvgSentiment <= negativeSentimentMax:
			negative++
		}
	}
	neutral := len(records) - positive - negative

	total := float64(len(records))
	return SentimentDistribution{
		PositivePct: float64(positive) / total * 100,
		NeutralPct:  float64(neutral) / total * 100,
		NegativePct: float64(negative) / total * 100,
	}
}

// TagCount is one entry of a tag frequency ranking.
type TagCount struct {
	Tag   string `json:"tag"`
	Count int    `json:"count"`
}

// Ranking truncation sizes.
const (
	GlobalTagLimit   = 10
	LocationTagLimit = 5
)

// RankTags builds a frequency ranking over the hashtag and topic lists of
// the given records, sorted descending by count and truncated to limit.
// Ties break alphabetically so rankings are deterministic.
func RankTags(records []signal.SocialEngagement, limit int) []TagCount {
	freq := make(map[string]int)
	for _, r := range records {
		for _, tag := range r.TrendingHashtags {
			freq[tag]++
		}
		for _, tag := range r.Topics {
			freq[tag]++
		}
	}
	if len(freq) == 0 {
		return nil
	}

	ranked := make([]TagCount, 0, len(freq))
	for tag, count := range freq {
		ranked = append(ranked, TagCount{Tag: tag, Count: count})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Tag < ranked[j].Tag
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Normalization ceilings for composite score components. Values at or
// above the ceiling saturate to 1.
const (
	interactionCeiling = 10000.0
	uniqueUserCeiling  = 5000.0
	downloadCeiling    = 200.0 // Mbps
	latencyCeiling     = 200.0 // ms
)

// normalize maps v onto [0, 1] against a saturation ceiling.
func normalize(v, ceiling float64) float64 {
	if v <= 0 {
		return 0
	}
	if v >= ceiling {
		return 1
	}
	return v / ceiling
}

// PopularityScore computes the weighted location popularity score in
// [0, 1]. Growth is mapped from [-100, 100] onto [0, 1] before weighting
// so shrinking locations drag the score down instead of clipping at zero.
func PopularityScore(interactions, uniqueUsers int64, growth float64, w *Weights) float64 {
	if w == nil {
		w = DefaultWeights()
	}

	growthComponent := signal.Clamp01((growth + 100) / 200)

	return w.Popularity.Interactions*normalize(float64(interactions), interactionCeiling) +
		w.Popularity.UniqueUsers*normalize(float64(uniqueUsers), uniqueUserCeiling) +
		w.Popularity.Growth*growthComponent
}

// NetworkScore computes the weighted network reliability score in [0, 1]
// from average download speed and latency. Lower latency scores higher.
func NetworkScore(downloadMbps, latencyMs float64, w *Weights) float64 {
	if w == nil {
		w = DefaultWeights()
	}

	latencyHeadroom := 1 - normalize(latencyMs, latencyCeiling)

	return w.Reliability.Speed*normalize(downloadMbps, downloadCeiling) +
		w.Reliability.Latency*latencyHeadroom
}
