package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/itsearth/pulse/internal/monetize"
	"github.com/itsearth/pulse/internal/signal"
	"github.com/itsearth/pulse/internal/store"
)

// Range is a supported dashboard time window.
type Range string

const (
	Range24h Range = "24h"
	Range7d  Range = "7d"
	Range30d Range = "30d"
	Range90d Range = "90d"
)

// ErrInvalidRange is returned for time windows outside the supported set.
var ErrInvalidRange = errors.New("invalid time range")

// ErrNoData is returned by per-location reads when the window holds no
// records for the requested location.
var ErrNoData = errors.New("no records for location")

// rangeDurations maps each supported range to its window length.
var rangeDurations = map[Range]time.Duration{
	Range24h: 24 * time.Hour,
	Range7d:  7 * 24 * time.Hour,
	Range30d: 30 * 24 * time.Hour,
	Range90d: 90 * 24 * time.Hour,
}

// ParseRange validates a raw range string. The empty string defaults to
// the 24-hour window.
func ParseRange(s string) (Range, error) {
	if s == "" {
		return Range24h, nil
	}
	r := Range(s)
	if _, ok := rangeDurations[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRange, s)
	}
	return r, nil
}

// Duration returns the window length of the range.
func (r Range) Duration() time.Duration {
	return rangeDurations[r]
}

// Bounds returns the lower bound of the current window and of the
// equal-length previous window ending where the current one begins.
func (r Range) Bounds(now time.Time) (since, prevSince time.Time) {
	d := r.Duration()
	return now.Add(-d), now.Add(-2 * d)
}

// SocialSection summarizes social engagement over the window.
type SocialSection struct {
	RecordCount       int                   `json:"record_count"`
	TotalPosts        int64                 `json:"total_posts"`
	TotalInteractions int64                 `json:"total_interactions"`
	UniqueUsers       int64                 `json:"unique_users"`
	AvgSentiment      float64               `json:"avg_sentiment"`
	Sentiment         SentimentDistribution `json:"sentiment"`
	TrendingTags      []TagCount            `json:"trending_tags"`
	Growth            float64               `json:"growth"`
	Trend             Trend                 `json:"trend"`
}

// NetworkSection summarizes network performance over the window.
type NetworkSection struct {
	RecordCount       int     `json:"record_count"`
	AvgDownloadMbps   float64 `json:"avg_download_mbps"`
	AvgUploadMbps     float64 `json:"avg_upload_mbps"`
	AvgLatencyMs      float64 `json:"avg_latency_ms"`
	AvgSignalStrength float64 `json:"avg_signal_strength"`
	AvgReliability    float64 `json:"avg_reliability"`
	Score             float64 `json:"score"`
	SpeedGrowth       float64 `json:"speed_growth"`
	SpeedTrend        Trend   `json:"speed_trend"`
}

// LocationSummary is the per-location dashboard row.
type LocationSummary struct {
	Name              string           `json:"name"`
	TotalInteractions int64            `json:"total_interactions"`
	UniqueUsers       int64            `json:"unique_users"`
	Growth            float64          `json:"growth"`
	Trend             Trend            `json:"trend"`
	Popularity        float64          `json:"popularity"`
	TopTags           []TagCount       `json:"top_tags"`
	PeakHours         []int            `json:"peak_hours"`
	Recommendations   []Recommendation `json:"recommendations"`
}

// LocationSection lists per-location summaries, most popular first.
type LocationSection struct {
	Locations []LocationSummary `json:"locations"`
}

// AISection carries the model-style predictions surfaced on the dashboard.
type AISection struct {
	PredictedPeakHours []int   `json:"predicted_peak_hours"`
	AvgPopularity      float64 `json:"avg_popularity"`
	Summary            string  `json:"summary"`
}

// MonetizationSection reports packaged insights and trailing revenue.
type MonetizationSection struct {
	Revenue  monetize.RevenueReport `json:"revenue"`
	Packages []monetize.Package     `json:"packages"`
}

// Dashboard is the full aggregation read served to the presentation layer.
type Dashboard struct {
	Range        Range               `json:"range"`
	GeneratedAt  time.Time           `json:"generated_at"`
	Social       SocialSection       `json:"social"`
	Network      NetworkSection      `json:"network"`
	Location     LocationSection     `json:"location"`
	AI           AISection           `json:"ai"`
	Monetization MonetizationSection `json:"monetization"`
}

// Aggregator computes dashboards from persisted collection history.
type Aggregator struct {
	store    store.Store
	packager *monetize.Packager
	weights  *Weights
	logger   *slog.Logger
	now      func() time.Time
}

// NewAggregator creates an Aggregator. Nil weights fall back to defaults.
func NewAggregator(st store.Store, packager *monetize.Packager, weights *Weights, logger *slog.Logger) *Aggregator {
	if packager == nil {
		packager = monetize.NewPackager()
	}
	if weights == nil {
		weights = DefaultWeights()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		store:    st,
		packager: packager,
		weights:  weights,
		logger:   logger,
		now:      time.Now,
	}
}

// Dashboard aggregates the window's history into all dashboard sections.
// It is a pure read: serving a dashboard never writes. An unavailable
// store degrades every section to zero values rather than failing.
func (a *Aggregator) Dashboard(ctx context.Context, r Range) (*Dashboard, error) {
	if _, ok := rangeDurations[r]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, string(r))
	}

	now := a.now()
	d, err := a.buildSections(ctx, r, now)
	if err != nil {
		return nil, err
	}
	d.Monetization = a.monetizationSection(ctx, now)

	return d, nil
}

// buildSections computes the social, network, location, and AI sections
// over the range's two-window read.
func (a *Aggregator) buildSections(ctx context.Context, r Range, now time.Time) (*Dashboard, error) {
	since, prevSince := r.Bounds(now)

	social, err := a.socialWindow(ctx, prevSince)
	if err != nil {
		return nil, err
	}
	network, err := a.networkWindow(ctx, prevSince)
	if err != nil {
		return nil, err
	}

	curSocial, prevSocial := splitSocial(social, since)
	curNetwork, prevNetwork := splitNetwork(network, since)

	d := &Dashboard{
		Range:       r,
		GeneratedAt: now,
		Social:      buildSocialSection(curSocial, prevSocial),
		Network:     a.buildNetworkSection(curNetwork, prevNetwork),
	}
	d.Location = a.buildLocationSection(curSocial, prevSocial, curNetwork, now)
	d.AI = buildAISection(d.Location, now)
	return d, nil
}

// LocationDetail is the single-location analytics read: the dashboard's
// per-location row plus the location's network and sentiment aggregates.
type LocationDetail struct {
	Range       Range                 `json:"range"`
	GeneratedAt time.Time             `json:"generated_at"`
	Summary     LocationSummary       `json:"summary"`
	Sentiment   SentimentDistribution `json:"sentiment"`
	Network     NetworkSection        `json:"network"`
}

// Location aggregates one location's history over the window. Returns
// ErrNoData when the window holds no social or network records for it.
func (a *Aggregator) Location(ctx context.Context, name string, r Range) (*LocationDetail, error) {
	if _, ok := rangeDurations[r]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, string(r))
	}

	now := a.now()
	since, prevSince := r.Bounds(now)

	social, err := a.store.SocialSince(ctx, name, prevSince)
	if err != nil && !errors.Is(err, store.ErrUnavailable) {
		return nil, err
	}
	network, err := a.store.NetworkSince(ctx, name, prevSince)
	if err != nil && !errors.Is(err, store.ErrUnavailable) {
		return nil, err
	}

	curSocial, prevSocial := splitSocial(social, since)
	curNetwork, prevNetwork := splitNetwork(network, since)
	if len(curSocial) == 0 && len(curNetwork) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoData, name)
	}

	section := a.buildLocationSection(curSocial, prevSocial, curNetwork, now)
	detail := &LocationDetail{
		Range:       r,
		GeneratedAt: now,
		Sentiment:   DistributeSentiment(curSocial),
		Network:     a.buildNetworkSection(curNetwork, prevNetwork),
	}
	if len(section.Locations) > 0 {
		detail.Summary = section.Locations[0]
	}
	return detail, nil
}

// Heatmap returns the location's activity buckets inside the window,
// ordered by date then hour. An empty location name returns every location.
func (a *Aggregator) Heatmap(ctx context.Context, name string, r Range) ([]signal.ActivityBucket, error) {
	if _, ok := rangeDurations[r]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRange, string(r))
	}
	since := a.now().Add(-r.Duration())
	return a.store.ActivitySince(ctx, name, since)
}

// Monetization reads the trailing 30-day insight history and reports the
// catalog and revenue built from it, without deriving new insights.
func (a *Aggregator) Monetization(ctx context.Context) (*MonetizationSection, error) {
	now := a.now()
	history, err := a.store.InsightsSince(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		return nil, err
	}

	packages := make([]monetize.Package, 0, len(history))
	for _, in := range history {
		packages = append(packages, a.packager.BuildPackage(in))
	}

	return &MonetizationSection{
		Revenue:  a.packager.ReportRevenue(history, now),
		Packages: packages,
	}, nil
}

// socialWindow reads social records back to since, treating an unavailable
// store as an empty window.
func (a *Aggregator) socialWindow(ctx context.Context, since time.Time) ([]signal.SocialEngagement, error) {
	records, err := a.store.SocialSince(ctx, "", since)
	if errors.Is(err, store.ErrUnavailable) {
		a.logger.Warn("store unavailable, social section degrades to empty")
		return nil, nil
	}
	return records, err
}

func (a *Aggregator) networkWindow(ctx context.Context, since time.Time) ([]signal.NetworkPerformance, error) {
	records, err := a.store.NetworkSince(ctx, "", since)
	if errors.Is(err, store.ErrUnavailable) {
		a.logger.Warn("store unavailable, network section degrades to empty")
		return nil, nil
	}
	return records, err
}

// splitSocial partitions a two-window read into current and previous
// periods around the current window's lower bound.
func splitSocial(records []signal.SocialEngagement, since time.Time) (current, previous []signal.SocialEngagement) {
	for _, rec := range records {
		if rec.RecordedAt.Before(since) {
			previous = append(previous, rec)
		} else {
			current = append(current, rec)
		}
	}
	return current, previous
}

func splitNetwork(records []signal.NetworkPerformance, since time.Time) (current, previous []signal.NetworkPerformance) {
	for _, rec := range records {
		if rec.TestedAt.Before(since) {
			previous = append(previous, rec)
		} else {
			current = append(current, rec)
		}
	}
	return current, previous
}

// socialInteractions sums all interaction counters of a record.
func socialInteractions(rec *signal.SocialEngagement) int64 {
	return rec.PostCount + rec.LikeCount + rec.RetweetCount + rec.ReplyCount
}

func buildSocialSection(current, previous []signal.SocialEngagement) SocialSection {
	s := SocialSection{RecordCount: len(current)}
	if len(current) == 0 {
		s.Growth = GrowthRate(0, sumInteractions(previous))
		s.Trend = Classify(s.Growth)
		return s
	}

	var sentimentTotal float64
	for i := range current {
		rec := &current[i]
		s.TotalPosts += rec.PostCount
		s.TotalInteractions += socialInteractions(rec)
		s.UniqueUsers += rec.UniqueUsers
		sentimentTotal += rec.AvgSentiment
	}
	s.AvgSentiment = sentimentTotal / float64(len(current))
	s.Sentiment = DistributeSentiment(current)
	s.TrendingTags = RankTags(current, GlobalTagLimit)
	s.Growth = GrowthRate(float64(s.TotalInteractions), sumInteractions(previous))
	s.Trend = Classify(s.Growth)
	return s
}

func sumInteractions(records []signal.SocialEngagement) float64 {
	var total int64
	for i := range records {
		total += socialInteractions(&records[i])
	}
	return float64(total)
}

func (a *Aggregator) buildNetworkSection(current, previous []signal.NetworkPerformance) NetworkSection {
	n := NetworkSection{RecordCount: len(current)}
	if len(current) == 0 {
		n.SpeedTrend = TrendStable
		return n
	}

	var download, upload, latency, strength, reliability float64
	for i := range current {
		rec := &current[i]
		download += rec.DownloadMbps
		upload += rec.UploadMbps
		latency += rec.LatencyMs
		strength += rec.SignalStrength
		reliability += rec.ReliabilityScore
	}
	count := float64(len(current))
	n.AvgDownloadMbps = download / count
	n.AvgUploadMbps = upload / count
	n.AvgLatencyMs = latency / count
	n.AvgSignalStrength = strength / count
	n.AvgReliability = reliability / count
	n.Score = NetworkScore(n.AvgDownloadMbps, n.AvgLatencyMs, a.weights)

	var prevDownload float64
	for i := range previous {
		prevDownload += previous[i].DownloadMbps
	}
	prevAvg := 0.0
	if len(previous) > 0 {
		prevAvg = prevDownload / float64(len(previous))
	}
	n.SpeedGrowth = GrowthRate(n.AvgDownloadMbps, prevAvg)
	n.SpeedTrend = Classify(n.SpeedGrowth)
	return n
}

// buildLocationSection groups the window's records per location and
// derives the per-location intelligence rows.
func (a *Aggregator) buildLocationSection(curSocial, prevSocial []signal.SocialEngagement, curNetwork []signal.NetworkPerformance, now time.Time) LocationSection {
	type locAccum struct {
		social       []signal.SocialEngagement
		interactions int64
		uniqueUsers  int64
		sentiment    float64
		strength     float64
		networkCount int
	}

	accums := make(map[string]*locAccum)
	get := func(name string) *locAccum {
		acc, ok := accums[name]
		if !ok {
			acc = &locAccum{}
			accums[name] = acc
		}
		return acc
	}

	for i := range curSocial {
		rec := &curSocial[i]
		acc := get(rec.LocationName)
		acc.social = append(acc.social, *rec)
		acc.interactions += socialInteractions(rec)
		acc.uniqueUsers += rec.UniqueUsers
		acc.sentiment += rec.AvgSentiment
	}
	for i := range curNetwork {
		rec := &curNetwork[i]
		acc := get(rec.LocationName)
		acc.strength += rec.SignalStrength
		acc.networkCount++
	}

	prevInteractions := make(map[string]int64)
	for i := range prevSocial {
		rec := &prevSocial[i]
		prevInteractions[rec.LocationName] += socialInteractions(rec)
	}

	summaries := make([]LocationSummary, 0, len(accums))
	for name, acc := range accums {
		growth := GrowthRate(float64(acc.interactions), float64(prevInteractions[name]))

		avgSentiment := 0.0
		if len(acc.social) > 0 {
			avgSentiment = acc.sentiment / float64(len(acc.social))
		}
		avgStrength := 0.0
		if acc.networkCount > 0 {
			avgStrength = acc.strength / float64(acc.networkCount)
		}

		summaries = append(summaries, LocationSummary{
			Name:              name,
			TotalInteractions: acc.interactions,
			UniqueUsers:       acc.uniqueUsers,
			Growth:            growth,
			Trend:             Classify(growth),
			Popularity:        PopularityScore(acc.interactions, acc.uniqueUsers, growth, a.weights),
			TopTags:           RankTags(acc.social, LocationTagLimit),
			PeakHours:         PredictPeakHours(now),
			Recommendations:   Recommend(avgStrength, avgSentiment, acc.networkCount > 0, len(acc.social) > 0, now),
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Popularity != summaries[j].Popularity {
			return summaries[i].Popularity > summaries[j].Popularity
		}
		return summaries[i].Name < summaries[j].Name
	})

	return LocationSection{Locations: summaries}
}

func buildAISection(loc LocationSection, now time.Time) AISection {
	ai := AISection{PredictedPeakHours: PredictPeakHours(now)}
	if len(loc.Locations) == 0 {
		ai.Summary = "No location activity recorded in this window."
		return ai
	}

	var total float64
	for _, l := range loc.Locations {
		total += l.Popularity
	}
	ai.AvgPopularity = total / float64(len(loc.Locations))
	ai.Summary = fmt.Sprintf("%d locations active; %s is the most popular with a %.2f popularity score.",
		len(loc.Locations), loc.Locations[0].Name, loc.Locations[0].Popularity)
	return ai
}

// monetizationSection reads the trailing 30-day insight history into the
// dashboard's monetization section. A failed history read degrades to an
// empty section so the rest of the dashboard still serves.
func (a *Aggregator) monetizationSection(ctx context.Context, now time.Time) MonetizationSection {
	history, err := a.store.InsightsSince(ctx, now.AddDate(0, 0, -30))
	if err != nil {
		if !errors.Is(err, store.ErrUnavailable) {
			a.logger.Error("insight history read failed", slog.String("error", err.Error()))
		}
		return MonetizationSection{}
	}

	packages := make([]monetize.Package, 0, len(history))
	for _, in := range history {
		packages = append(packages, a.packager.BuildPackage(in))
	}

	return MonetizationSection{
		Revenue:  a.packager.ReportRevenue(history, now),
		Packages: packages,
	}
}

// GenerateInsights derives sellable insights from the trailing 24-hour
// aggregation and persists them. It runs once per collection cycle; this
// is the only path that writes insight rows, so insight volume tracks
// collection activity rather than dashboard traffic. Returns the number
// of insights persisted.
func (a *Aggregator) GenerateInsights(ctx context.Context) (int, error) {
	now := a.now()
	d, err := a.buildSections(ctx, Range24h, now)
	if err != nil {
		return 0, err
	}

	insights := a.deriveInsights(d, now)
	persisted := 0
	for i := range insights {
		if err := a.store.InsertInsight(ctx, &insights[i]); err != nil {
			if !errors.Is(err, store.ErrUnavailable) {
				a.logger.Error("insight persistence failed",
					slog.String("insight_type", insights[i].InsightType),
					slog.String("error", err.Error()))
			}
			continue
		}
		persisted++
	}
	return persisted, nil
}

// deriveInsights converts populated dashboard sections into insight rows.
// Sections with no data produce no insight.
func (a *Aggregator) deriveInsights(d *Dashboard, now time.Time) []monetize.Insight {
	var insights []monetize.Insight
	period := string(d.Range)

	if len(d.Location.Locations) > 0 {
		top := d.Location.Locations[0]
		insights = append(insights, monetize.Insight{
			InsightType:     monetize.InsightLocationTrends,
			DataCategory:    monetize.CategoryMobility,
			GeographicScope: "global",
			TimePeriod:      period,
			MarketValue:     a.packager.CustomPrice([]string{"interactions", "growth"}, "global"),
			Payload: map[string]any{
				"locations":      len(d.Location.Locations),
				"top_location":   top.Name,
				"top_popularity": top.Popularity,
			},
			CreatedAt: now,
		})
	}

	if d.Network.RecordCount > 0 {
		insights = append(insights, monetize.Insight{
			InsightType:     monetize.InsightNetworkQuality,
			DataCategory:    monetize.CategoryConnectivity,
			GeographicScope: "global",
			TimePeriod:      period,
			MarketValue:     a.packager.CustomPrice([]string{"speed", "latency", "reliability"}, "global"),
			Payload: map[string]any{
				"avg_download_mbps": d.Network.AvgDownloadMbps,
				"avg_latency_ms":    d.Network.AvgLatencyMs,
				"score":             d.Network.Score,
			},
			CreatedAt: now,
		})
	}

	if d.Social.RecordCount > 0 {
		insights = append(insights, monetize.Insight{
			InsightType:     monetize.InsightSocialSentiment,
			DataCategory:    monetize.CategoryConsumerMood,
			GeographicScope: "global",
			TimePeriod:      period,
			MarketValue:     a.packager.CustomPrice([]string{"sentiment", "topics"}, "global"),
			Payload: map[string]any{
				"avg_sentiment": d.Social.AvgSentiment,
				"positive_pct":  d.Social.Sentiment.PositivePct,
				"trending_tags": d.Social.TrendingTags,
			},
			CreatedAt: now,
		})

		insights = append(insights, monetize.Insight{
			InsightType:     monetize.InsightActivityPattern,
			DataCategory:    monetize.CategoryFootTraffic,
			GeographicScope: "global",
			TimePeriod:      period,
			MarketValue:     a.packager.CustomPrice([]string{"heatmap"}, "global"),
			Payload: map[string]any{
				"total_interactions": d.Social.TotalInteractions,
				"unique_users":       d.Social.UniqueUsers,
				"peak_hours":         d.AI.PredictedPeakHours,
			},
			CreatedAt: now,
		})
	}

	return insights
}
