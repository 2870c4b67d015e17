package models

import (
	"time"

	"github.com/godilite/milestone-server/internal/scoring"
)

// MilestoneAgeScoreCollection holds the per-age answer counts of one
// milestone together with its derived expected age.
type MilestoneAgeScoreCollection struct {
	MilestoneID      int64
	ExpectedAge      int
	ExpectedAgeDelta int
	CreatedAt        time.Time
	Scores           map[int]scoring.AnswerCounts
}

func NewMilestoneAgeScoreCollection(milestoneID int64, now time.Time) MilestoneAgeScoreCollection {
	return MilestoneAgeScoreCollection{
		MilestoneID: milestoneID,
		CreatedAt:   now,
		Scores:      map[int]scoring.AnswerCounts{},
	}
}

// CountsByAge lays out the counts as a slice indexed by age.
func (c MilestoneAgeScoreCollection) CountsByAge(maxAge int) []scoring.AnswerCounts {
	out := make([]scoring.AnswerCounts, maxAge+1)
	for age, counts := range c.Scores {
		if age >= 0 && age <= maxAge {
			out[age] = counts
		}
	}
	return out
}

type MilestoneGroupAgeScoreCollection struct {
	GroupID   int64
	CreatedAt time.Time
	Scores    map[int]scoring.GroupAccumulator
}

func NewMilestoneGroupAgeScoreCollection(groupID int64, now time.Time) MilestoneGroupAgeScoreCollection {
	return MilestoneGroupAgeScoreCollection{
		GroupID:   groupID,
		CreatedAt: now,
		Scores:    map[int]scoring.GroupAccumulator{},
	}
}

// Window merges the accumulators of ages lo..hi inclusive.
func (c MilestoneGroupAgeScoreCollection) Window(lo, hi int) scoring.GroupAccumulator {
	var acc scoring.GroupAccumulator
	for age := lo; age <= hi; age++ {
		acc.Merge(c.Scores[age])
	}
	return acc
}

// GroupSample is a session's score for one milestone group as first folded
// into the statistics.
type GroupSample struct {
	SessionID int64
	GroupID   int64
	Score     float64
}

// StatisticsRun is one entry of the statistics update ledger.
type StatisticsRun struct {
	ID           int64
	RunID        string
	Incremental  bool
	SessionsUsed int
	StartedAt    time.Time
	FinishedAt   time.Time
	Summary      string
}
