package service

import (
	"time"

	"github.com/godilite/milestone-server/internal/scoring"
)

// Policy holds the tunable rules of the scoring engine.
type Policy struct {
	MaxAgeMonths        int
	GracePeriod         time.Duration
	SessionLifetime     time.Duration
	SuspiciousThreshold float64
	// GroupAgeWindow is the +/- months merged for group feedback.
	GroupAgeWindow int
	Relevance      scoring.RelevancePolicy
	Feedback       scoring.FeedbackPolicy
}

func DefaultPolicy() Policy {
	return Policy{
		MaxAgeMonths:        scoring.DefaultMaxAgeMonths,
		GracePeriod:         7 * 24 * time.Hour,
		SessionLifetime:     14 * 24 * time.Hour,
		SuspiciousThreshold: 1.0,
		GroupAgeWindow:      6,
		Relevance:           scoring.DefaultRelevancePolicy(),
		Feedback:            scoring.DefaultFeedbackPolicy(),
	}
}

// ageWindow clips [age-window, age+window] to the supported ages.
func (p Policy) ageWindow(age int) (int, int) {
	lo, hi := age-p.GroupAgeWindow, age+p.GroupAgeWindow
	if lo < 0 {
		lo = 0
	}
	if hi > p.MaxAgeMonths {
		hi = p.MaxAgeMonths
	}
	return lo, hi
}

func (p Policy) supportedAge(age int) bool {
	return age >= 0 && age <= p.MaxAgeMonths
}
