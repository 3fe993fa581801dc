package signal

import (
	"context"
	"math/rand"
	"strings"
)

// SimulatedSources returns a Sources bundle backed by randomized generators.
// Used by the dev binary and tests when no real adapters are configured.
func SimulatedSources() Sources {
	return Sources{
		Social:  &SimulatedSocial{},
		Network: &SimulatedNetwork{},
		News:    &SimulatedNews{},
	}
}

// SimulatedSocial generates plausible social-engagement payloads.
type SimulatedSocial struct{}

// FetchSocial implements SocialSource.
func (s *SimulatedSocial) FetchSocial(_ context.Context, loc Location) (*RawSocial, error) {
	posts := int64(rand.Intn(9900) + 100)
	tag := "#" + strings.ToLower(strings.ReplaceAll(loc.Name, " ", ""))
	return &RawSocial{
		Platform:       "twitter",
		Posts:          posts,
		Likes:          posts * 5,
		Retweets:       int64(float64(posts) * 0.3),
		Replies:        int64(float64(posts) * 0.4),
		Users:          int64(float64(posts) * 0.7),
		Sentiment:      0.3 + rand.Float64()*0.6,
		EngagementRate: rand.Float64(),
		Hashtags:       []any{tag, "#travel", "#weather"},
		Topics:         []any{"travel", "local news", "events"},
	}, nil
}

// SimulatedNetwork generates plausible network-quality payloads. Upload and
// jitter are deliberately omitted so the normalizer's estimation paths are
// exercised in development.
type SimulatedNetwork struct{}

var networkTypes = []string{"5G", "4G", "3G", "WiFi"}

// FetchNetwork implements NetworkSource.
func (s *SimulatedNetwork) FetchNetwork(_ context.Context, _ Location) (*RawNetwork, error) {
	return &RawNetwork{
		NetworkType:    networkTypes[rand.Intn(len(networkTypes))],
		SignalStrength: 60 + rand.Float64()*40,
		DownloadMbps:   10 + rand.Float64()*190,
		LatencyMs:      5 + rand.Float64()*95,
		DeviceType:     "mobile",
	}, nil
}

// SimulatedNews generates plausible news payloads.
type SimulatedNews struct{}

// FetchNews implements NewsSource.
func (s *SimulatedNews) FetchNews(_ context.Context, loc Location) (*RawNews, error) {
	return &RawNews{
		ArticleCount: int64(rand.Intn(50) + 1),
		Sentiment:    0.2 + rand.Float64()*0.7,
		Topics:       []any{loc.Name, "politics", "business"},
	}, nil
}
