// Package monetize turns aggregated insights into priced, named data
// packages and revenue reports for enterprise resale.
package monetize

import "time"

// Insight is an aggregated, sellable observation derived from collected
// analytics. Payload is an opaque document; its shape varies by insight
// type and is stored as-is.
type Insight struct {
	ID              string         `json:"id,omitempty"`
	InsightType     string         `json:"insight_type"`
	DataCategory    string         `json:"data_category"`
	GeographicScope string         `json:"geographic_scope"`
	TimePeriod      string         `json:"time_period"`
	MarketValue     float64        `json:"market_value"`
	Payload         map[string]any `json:"payload"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Package is the display object built from an Insight: a named, priced
// bundle with target-customer tags and a sample preview.
type Package struct {
	Name            string         `json:"name"`
	Description     string         `json:"description"`
	Price           float64        `json:"price"`
	TargetCustomers []string       `json:"target_customers"`
	Sample          map[string]any `json:"sample"`
}

// RevenueReport aggregates insight market value over a trailing window.
type RevenueReport struct {
	TotalValue     float64            `json:"total_value"`
	ByCategory     map[string]float64 `json:"by_category"`
	AveragePackage float64            `json:"average_package_value"`
	PackageCount   int                `json:"package_count"`
	WindowDays     int                `json:"window_days"`
	GeneratedAt    time.Time          `json:"generated_at"`
}

// Well-known insight types.
const (
	InsightLocationTrends  = "location_trends"
	InsightNetworkQuality  = "network_quality"
	InsightSocialSentiment = "social_sentiment"
	InsightActivityPattern = "activity_patterns"
)

// Well-known data categories.
const (
	CategoryMobility     = "mobility"
	CategoryConnectivity = "connectivity"
	CategoryConsumerMood = "consumer_mood"
	CategoryFootTraffic  = "foot_traffic"
)
