package monetize

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Pricing constants. The scope multiplier scales a package's price with
// the breadth of its geographic coverage.
const (
	BasePrice          = 500.0
	dataTypeMultiplier = 0.5
	revenueWindowDays  = 30
)

// scopeMultipliers maps a geographic scope to its price multiplier.
var scopeMultipliers = map[string]float64{
	"city":    1.0,
	"region":  1.5,
	"country": 2.0,
	"global":  3.0,
}

// descriptions maps an insight type to its package description.
var descriptions = map[string]string{
	InsightLocationTrends:  "Hourly interaction trends and growth trajectories for monitored locations.",
	InsightNetworkQuality:  "Network performance benchmarks including speed, latency, and reliability scoring.",
	InsightSocialSentiment: "Aggregated social sentiment distributions and trending topics by location.",
	InsightActivityPattern: "Peak-hour activity heatmaps and footfall proxies across monitored cities.",
}

// targetCustomers maps a data category to the buyer segments the package
// is marketed to.
var targetCustomers = map[string][]string{
	CategoryMobility:     {"urban planners", "ride-share operators", "logistics providers"},
	CategoryConnectivity: {"telecom carriers", "ISPs", "infrastructure investors"},
	CategoryConsumerMood: {"brand marketers", "retail analysts", "hedge funds"},
	CategoryFootTraffic:  {"commercial real estate", "retail chains", "event promoters"},
}

// Packager builds sellable packages and revenue reports from insights.
type Packager struct{}

// NewPackager creates a Packager.
func NewPackager() *Packager {
	return &Packager{}
}

// BuildPackage derives the display package for an insight. Unknown insight
// types and categories fall back to generic copy so a malformed insight
// row never breaks package listings.
func (p *Packager) BuildPackage(in Insight) Package {
	desc, ok := descriptions[in.InsightType]
	if !ok {
		desc = "Aggregated location intelligence derived from multi-source signal collection."
	}

	customers := targetCustomers[in.DataCategory]
	if len(customers) == 0 {
		customers = []string{"data brokers", "market researchers"}
	}

	return Package{
		Name:            packageName(in.InsightType, in.GeographicScope),
		Description:     desc,
		Price:           in.MarketValue,
		TargetCustomers: customers,
		Sample:          samplePreview(in),
	}
}

// CustomPrice computes the price of a bespoke package covering the given
// data types at the given scope:
//
//	round(base * (0.5 * len(dataTypes)) * scopeMultiplier)
//
// Unknown scopes price at the city multiplier.
func (p *Packager) CustomPrice(dataTypes []string, scope string) float64 {
	mult, ok := scopeMultipliers[strings.ToLower(scope)]
	if !ok {
		mult = scopeMultipliers["city"]
	}
	return math.Round(BasePrice * (dataTypeMultiplier * float64(len(dataTypes))) * mult)
}

// ReportRevenue aggregates insight value over the trailing 30-day window:
// total value, per-category totals, and the average package value.
func (p *Packager) ReportRevenue(insights []Insight, now time.Time) RevenueReport {
	cutoff := now.AddDate(0, 0, -revenueWindowDays)

	report := RevenueReport{
		ByCategory:  make(map[string]float64),
		WindowDays:  revenueWindowDays,
		GeneratedAt: now,
	}

	for _, in := range insights {
		if in.CreatedAt.Before(cutoff) {
			continue
		}
		report.TotalValue += in.MarketValue
		report.ByCategory[in.DataCategory] += in.MarketValue
		report.PackageCount++
	}

	if report.PackageCount > 0 {
		report.AveragePackage = report.TotalValue / float64(report.PackageCount)
	}
	return report
}

// packageName generates the package display name from the insight type and
// geographic scope, e.g. "Network Quality - Global Edition".
func packageName(insightType, scope string) string {
	return fmt.Sprintf("%s - %s Edition", titleWords(insightType), titleWords(scope))
}

// samplePreview returns a truncated view of the insight payload suitable
// for listings: at most three keys, values untouched.
func samplePreview(in Insight) map[string]any {
	if len(in.Payload) == 0 {
		return map[string]any{"time_period": in.TimePeriod}
	}
	sample := make(map[string]any, 3)
	for k, v := range in.Payload {
		sample[k] = v
		if len(sample) == 3 {
			break
		}
	}
	return sample
}

// titleWords converts a snake_case or lower identifier into title-cased
// display words.
func titleWords(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
