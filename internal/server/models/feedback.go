package models

import "time"

// Feedback is a candidate's free-text comment on a job. Text lives in
// object storage; Sentiment is -1, 0 or 1, nil when scoring failed.
type Feedback struct {
	ID          string
	AccountID   string
	JobID       string
	FeedbackURL string
	Sentiment   *int
	CreatedAt   time.Time
}

// MinFeedbackForStats is the number of entries needed before an average
// sentiment is reported.
const MinFeedbackForStats = 5

// SentimentRating maps a sentiment label onto a 1..5 rating.
func SentimentRating(s int) float64 {
	switch {
	case s > 0:
		return 5
	case s < 0:
		return 1
	default:
		return 3
	}
}

// FeedbackStats is the aggregated sentiment for a job. Average is nil while
// fewer than MinFeedbackForStats scored entries exist.
type FeedbackStats struct {
	Count   int
	Average *float64
}

// AggregateSentiment averages the mapped ratings of scored entries.
func AggregateSentiment(items []*Feedback) FeedbackStats {
	var sum float64
	var n int
	for _, f := range items {
		if f.Sentiment == nil {
			continue
		}
		sum += SentimentRating(*f.Sentiment)
		n++
	}

	stats := FeedbackStats{Count: len(items)}
	if n >= MinFeedbackForStats {
		avg := sum / float64(n)
		stats.Average = &avg
	}
	return stats
}
