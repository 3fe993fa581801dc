package analytics

import (
	"fmt"
	"time"
)

// Recommendation is a rule-derived, human-readable note attached to a
// location summary.
type Recommendation struct {
	Type        string `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// PredictPeakHours predicts the next peak activity hours for a location
// given the current hour. The heuristic rotates through the day: from a
// morning vantage the afternoon and evening peaks are next, and so on.
func PredictPeakHours(now time.Time) []int {
	hour := now.Hour()
	switch {
	case hour < 12:
		return []int{12, 17, 20}
	case hour < 17:
		return []int{17, 20, 9}
	default:
		return []int{20, 9, 12}
	}
}

// Recommendation rule thresholds.
const (
	lowSignalStrength      = 70.0
	positiveSentimentScore = 0.7
	lunchStartHour         = 11
	lunchEndHour           = 14
)

// Recommend derives location recommendations from the period's average
// signal strength and sentiment plus the current time of day. Rules fire
// independently; an unremarkable location gets an empty list.
func Recommend(avgSignalStrength, avgSentiment float64, hasNetwork, hasSocial bool, now time.Time) []Recommendation {
	var recs []Recommendation

	if hasNetwork && avgSignalStrength < lowSignalStrength {
		recs = append(recs, Recommendation{
			Type:        "network",
			Title:       "Connectivity Alert",
			Description: fmt.Sprintf("Signal strength is low (%.0f%%). Consider moving to a better coverage area.", avgSignalStrength),
			Priority:    "medium",
		})
	}

	if hasSocial && avgSentiment > positiveSentimentScore {
		recs = append(recs, Recommendation{
			Type:        "social",
			Title:       "Positive Social Activity",
			Description: "This location is trending positively on social media.",
			Priority:    "low",
		})
	}

	if hour := now.Hour(); hour >= lunchStartHour && hour <= lunchEndHour {
		recs = append(recs, Recommendation{
			Type:        "time",
			Title:       "Lunch Time Activity",
			Description: "It's lunch time! Popular dining spots nearby may be busy.",
			Priority:    "medium",
		})
	}

	return recs
}
