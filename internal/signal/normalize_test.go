package signal

import (
	"context"
	"testing"
	"time"
)

func TestClamp01(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.42, 0.42},
		{1, 1},
		{1.7, 1},
	}
	for _, tt := range tests {
		if got := Clamp01(tt.in); got != tt.want {
			t.Errorf("Clamp01(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFilterTags(t *testing.T) {
	tests := []struct {
		name string
		in   []any
		want []string
	}{
		{"nil input", nil, nil},
		{"strings kept in order", []any{"#a", "#b"}, []string{"#a", "#b"}},
		{"non-strings dropped", []any{"#a", 42, nil, true, "#b"}, []string{"#a", "#b"}},
		{"whitespace trimmed", []any{"  #a  ", "\t"}, []string{"#a"}},
		{"duplicates dropped", []any{"#a", "#a", "#b"}, []string{"#a", "#b"}},
		{"all invalid yields nil", []any{42, nil, ""}, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FilterTags(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("FilterTags(%v) = %v, want %v", tt.in, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FilterTags(%v)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestReliabilityScore(t *testing.T) {
	tests := []struct {
		name           string
		signalStrength float64
		latencyMs      float64
		want           float64
	}{
		{"perfect signal no latency", 100, 0, 1},
		{"half signal half latency", 50, 100, 0.25},
		{"latency at ceiling zeroes factor", 100, 200, 0},
		{"latency beyond ceiling clamps to zero", 100, 400, 0},
		{"no signal", 0, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReliabilityScore(tt.signalStrength, tt.latencyMs)
			if got != tt.want {
				t.Errorf("ReliabilityScore(%v, %v) = %v, want %v",
					tt.signalStrength, tt.latencyMs, got, tt.want)
			}
		})
	}
}

func TestDeriveCalendar(t *testing.T) {
	tests := []struct {
		name        string
		t           time.Time
		wantHour    int
		wantDay     int
		wantWeekend bool
		wantHoliday bool
	}{
		{
			name:     "weekday afternoon",
			t:        time.Date(2025, 6, 11, 14, 30, 0, 0, time.UTC), // Wednesday
			wantHour: 14, wantDay: 3,
		},
		{
			name:     "saturday",
			t:        time.Date(2025, 6, 14, 9, 0, 0, 0, time.UTC),
			wantHour: 9, wantDay: 6, wantWeekend: true,
		},
		{
			name:     "sunday",
			t:        time.Date(2025, 6, 15, 23, 0, 0, 0, time.UTC),
			wantHour: 23, wantDay: 0, wantWeekend: true,
		},
		{
			name:     "christmas on a thursday",
			t:        time.Date(2025, 12, 25, 10, 0, 0, 0, time.UTC),
			wantHour: 10, wantDay: 4, wantHoliday: true,
		},
		{
			name:     "new years day",
			t:        time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), // Wednesday
			wantHour: 0, wantDay: 3, wantHoliday: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cal := DeriveCalendar(tt.t)
			if cal.Hour != tt.wantHour {
				t.Errorf("Hour = %d, want %d", cal.Hour, tt.wantHour)
			}
			if cal.DayOfWeek != tt.wantDay {
				t.Errorf("DayOfWeek = %d, want %d", cal.DayOfWeek, tt.wantDay)
			}
			if cal.IsWeekend != tt.wantWeekend {
				t.Errorf("IsWeekend = %v, want %v", cal.IsWeekend, tt.wantWeekend)
			}
			if cal.IsHoliday != tt.wantHoliday {
				t.Errorf("IsHoliday = %v, want %v", cal.IsHoliday, tt.wantHoliday)
			}
		})
	}
}

func TestIsPeakHour(t *testing.T) {
	peaks := map[int]bool{
		7: true, 8: true, 9: true,
		12: true, 13: true, 14: true,
		17: true, 18: true, 19: true, 20: true, 21: true,
	}
	for hour := 0; hour < 24; hour++ {
		if got := IsPeakHour(hour); got != peaks[hour] {
			t.Errorf("IsPeakHour(%d) = %v, want %v", hour, got, peaks[hour])
		}
	}
}

func TestBucketKeyFor(t *testing.T) {
	date, hour := BucketKeyFor(time.Date(2025, 6, 15, 14, 59, 59, 0, time.UTC))
	if date != "2025-06-15" {
		t.Errorf("date = %q, want 2025-06-15", date)
	}
	if hour != 14 {
		t.Errorf("hour = %d, want 14", hour)
	}
}

func TestNormalizeSocial(t *testing.T) {
	loc := Location{Name: "Tokyo", Latitude: 35.6762, Longitude: 139.6503}
	at := time.Date(2025, 6, 14, 13, 0, 0, 0, time.UTC) // Saturday lunch
	raw := &RawSocial{
		Platform:       "twitter",
		Posts:          1000,
		Likes:          5000,
		Retweets:       300,
		Replies:        120,
		Users:          700,
		Sentiment:      1.4,
		EngagementRate: -0.2,
		Hashtags:       []any{"#tokyo", 42, "#tokyo", "#travel"},
		Topics:         []any{"events", nil},
	}

	rec := NormalizeSocial(loc, raw, at)

	if rec.LocationName != "Tokyo" || rec.Latitude != loc.Latitude || rec.Longitude != loc.Longitude {
		t.Errorf("location fields not carried: %+v", rec)
	}
	if rec.Platform != "twitter" {
		t.Errorf("Platform = %q, want twitter", rec.Platform)
	}
	if rec.PostCount != 1000 || rec.LikeCount != 5000 || rec.RetweetCount != 300 || rec.ReplyCount != 120 || rec.UniqueUsers != 700 {
		t.Errorf("counters not carried: %+v", rec)
	}
	if rec.AvgSentiment != 1 {
		t.Errorf("AvgSentiment = %v, want clamped 1", rec.AvgSentiment)
	}
	if rec.EngagementRate != 0 {
		t.Errorf("EngagementRate = %v, want clamped 0", rec.EngagementRate)
	}
	if len(rec.TrendingHashtags) != 2 {
		t.Errorf("TrendingHashtags = %v, want 2 sanitized tags", rec.TrendingHashtags)
	}
	if len(rec.Topics) != 1 || rec.Topics[0] != "events" {
		t.Errorf("Topics = %v, want [events]", rec.Topics)
	}
	if !rec.Calendar.IsWeekend || rec.Calendar.Hour != 13 {
		t.Errorf("Calendar = %+v, want weekend hour 13", rec.Calendar)
	}
}

func TestNormalizeSocialDefaultsPlatform(t *testing.T) {
	rec := NormalizeSocial(Location{Name: "Paris"}, &RawSocial{}, time.Now())
	if rec.Platform != "unknown" {
		t.Errorf("Platform = %q, want unknown", rec.Platform)
	}
}

func TestNormalizeNews(t *testing.T) {
	loc := Location{Name: "Berlin", Latitude: 52.52, Longitude: 13.405}
	at := time.Date(2025, 6, 11, 8, 0, 0, 0, time.UTC)
	rec := NormalizeNews(loc, &RawNews{ArticleCount: 40, Sentiment: 0.55, Topics: []any{"politics"}}, at)

	if rec.Platform != "news" {
		t.Errorf("Platform = %q, want news", rec.Platform)
	}
	if rec.PostCount != 40 {
		t.Errorf("PostCount = %d, want 40", rec.PostCount)
	}
	if rec.UniqueUsers != 0 || rec.LikeCount != 0 {
		t.Errorf("news record carries engagement counters: %+v", rec)
	}
	if rec.AvgSentiment != 0.55 {
		t.Errorf("AvgSentiment = %v, want 0.55", rec.AvgSentiment)
	}
}

func TestNormalizeNetwork(t *testing.T) {
	loc := Location{Name: "Sydney", Latitude: -33.8688, Longitude: 151.2093}
	at := time.Date(2025, 6, 11, 18, 0, 0, 0, time.UTC) // evening peak
	upload := 42.0
	jitter := 3.5
	raw := &RawNetwork{
		NetworkType:    "5G",
		SignalStrength: 80,
		DownloadMbps:   150,
		UploadMbps:     &upload,
		LatencyMs:      40,
		JitterMs:       &jitter,
		DeviceType:     "mobile",
	}

	rec := NormalizeNetwork(loc, raw, at)

	if rec.UploadMbps != 42 {
		t.Errorf("UploadMbps = %v, want measured 42", rec.UploadMbps)
	}
	if rec.JitterMs != 3.5 {
		t.Errorf("JitterMs = %v, want measured 3.5", rec.JitterMs)
	}
	want := ReliabilityScore(80, 40)
	if rec.ReliabilityScore != want {
		t.Errorf("ReliabilityScore = %v, want %v", rec.ReliabilityScore, want)
	}
	if !rec.PeakHour {
		t.Error("expected 18:00 to be a peak hour")
	}
}

func TestNormalizeNetworkEstimatesMissingFields(t *testing.T) {
	raw := &RawNetwork{NetworkType: "4G", SignalStrength: 70, DownloadMbps: 100, LatencyMs: 30}
	at := time.Date(2025, 6, 11, 3, 0, 0, 0, time.UTC)

	for i := 0; i < 20; i++ {
		rec := NormalizeNetwork(Location{Name: "Dubai"}, raw, at)
		if rec.UploadMbps < 20 || rec.UploadMbps >= 50 {
			t.Fatalf("estimated UploadMbps = %v, want in [20, 50)", rec.UploadMbps)
		}
		if rec.JitterMs < 1 || rec.JitterMs >= 10 {
			t.Fatalf("filled JitterMs = %v, want in [1, 10)", rec.JitterMs)
		}
		if rec.DeviceType != "unknown" {
			t.Fatalf("DeviceType = %q, want unknown", rec.DeviceType)
		}
		if rec.PeakHour {
			t.Fatal("expected 03:00 not to be a peak hour")
		}
	}
}

func TestSimulatedSources(t *testing.T) {
	sources := SimulatedSources()
	loc := Location{Name: "New York", Latitude: 40.7128, Longitude: -74.0060}

	social, err := sources.Social.FetchSocial(context.Background(), loc)
	if err != nil {
		t.Fatalf("FetchSocial: %v", err)
	}
	if social.Posts < 100 || social.Posts >= 10000 {
		t.Errorf("Posts = %d, want in [100, 10000)", social.Posts)
	}
	if social.Sentiment < 0.3 || social.Sentiment >= 0.9 {
		t.Errorf("Sentiment = %v, want in [0.3, 0.9)", social.Sentiment)
	}
	tags := FilterTags(social.Hashtags)
	if len(tags) == 0 || tags[0] != "#newyork" {
		t.Errorf("Hashtags = %v, want leading #newyork", tags)
	}

	network, err := sources.Network.FetchNetwork(context.Background(), loc)
	if err != nil {
		t.Fatalf("FetchNetwork: %v", err)
	}
	if network.UploadMbps != nil || network.JitterMs != nil {
		t.Error("simulated network should omit upload and jitter")
	}
	if network.SignalStrength < 60 || network.SignalStrength >= 100 {
		t.Errorf("SignalStrength = %v, want in [60, 100)", network.SignalStrength)
	}

	news, err := sources.News.FetchNews(context.Background(), loc)
	if err != nil {
		t.Fatalf("FetchNews: %v", err)
	}
	if news.ArticleCount < 1 || news.ArticleCount > 50 {
		t.Errorf("ArticleCount = %d, want in [1, 50]", news.ArticleCount)
	}
}

func TestDefaultLocations(t *testing.T) {
	locs := DefaultLocations()
	if len(locs) != 10 {
		t.Fatalf("len = %d, want 10", len(locs))
	}
	if locs[0].Name != "New York" {
		t.Errorf("first location = %q, want New York (order is load-bearing)", locs[0].Name)
	}
	seen := make(map[string]bool)
	for _, l := range locs {
		if seen[l.Name] {
			t.Errorf("duplicate location %q", l.Name)
		}
		seen[l.Name] = true
		if l.Latitude == 0 && l.Longitude == 0 {
			t.Errorf("location %q has zero coordinates", l.Name)
		}
	}
}
