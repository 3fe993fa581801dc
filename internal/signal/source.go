package signal

import (
	"context"
	"errors"
)

// ErrSourceUnavailable is returned by a source when its upstream cannot be
// reached or times out. The collector logs it and omits that source's
// contribution for the current location; it never aborts the cycle.
var ErrSourceUnavailable = errors.New("signal source unavailable")

// RawSocial is the untrusted social-engagement payload as delivered by an
// adapter. Hashtags and Topics are deliberately loosely typed: sources have
// been observed to mix numbers and nulls into tag arrays, and the
// normalizer filters rather than rejects.
type RawSocial struct {
	Platform       string
	Posts          int64
	Likes          int64
	Retweets       int64
	Replies        int64
	Users          int64
	Sentiment      float64
	EngagementRate float64
	Hashtags       []any
	Topics         []any
}

// RawNetwork is the untrusted network-quality payload. UploadMbps and
// JitterMs are pointers because most sources omit them.
type RawNetwork struct {
	NetworkType    string
	SignalStrength float64
	DownloadMbps   float64
	UploadMbps     *float64
	LatencyMs      float64
	JitterMs       *float64
	DeviceType     string
}

// RawNews is the untrusted news payload. News contributes a secondary
// social-engagement record rather than a record shape of its own.
type RawNews struct {
	ArticleCount int64
	Sentiment    float64
	Topics       []any
}

// SocialSource fetches the social-engagement signal for a location.
// Implementations own their transport, credentials, and timeouts; the
// collector additionally bounds every fetch with a context deadline.
type SocialSource interface {
	FetchSocial(ctx context.Context, loc Location) (*RawSocial, error)
}

// NetworkSource fetches the network-quality signal for a location.
type NetworkSource interface {
	FetchNetwork(ctx context.Context, loc Location) (*RawNetwork, error)
}

// NewsSource fetches the news signal for a location.
type NewsSource interface {
	FetchNews(ctx context.Context, loc Location) (*RawNews, error)
}

// Sources bundles the three per-location signal adapters consumed by a
// collection cycle.
type Sources struct {
	Social  SocialSource
	Network NetworkSource
	News    NewsSource
}
