package models

import "github.com/godilite/milestone-server/internal/scoring"

type Child struct {
	ID         int64
	UserID     int64
	Name       string
	BirthYear  int
	BirthMonth int
}

// Respondent is the slice of the identity provider's user record needed for
// cohort and research-group filtering.
type Respondent struct {
	ID              int64
	Email           string
	ResearchGroupID int64
}

type MilestoneGroup struct {
	ID    int64
	Order int
}

type Milestone struct {
	ID                int64
	GroupID           int64
	Order             int
	ExpectedAgeMonths int
	ExpectedAgeDelta  int
	RelevantAgeMin    int
	RelevantAgeMax    int
}

// Relevance returns the stored window of the milestone.
func (m Milestone) Relevance() scoring.Relevance {
	return scoring.Relevance{
		ExpectedAge:      m.ExpectedAgeMonths,
		ExpectedAgeDelta: m.ExpectedAgeDelta,
		MinAge:           m.RelevantAgeMin,
		MaxAge:           m.RelevantAgeMax,
	}
}
