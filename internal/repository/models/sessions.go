package models

import (
	"time"

	"github.com/godilite/milestone-server/internal/scoring"
)

type SuspiciousState string

const (
	SuspiciousUnknown  SuspiciousState = "unknown"
	SuspiciousNo       SuspiciousState = "not_suspicious"
	SuspiciousYes      SuspiciousState = "suspicious"
	SuspiciousAdminNo  SuspiciousState = "admin_not_suspicious"
	SuspiciousAdminYes SuspiciousState = "admin_suspicious"
)

func (s SuspiciousState) Valid() bool {
	switch s {
	case SuspiciousUnknown, SuspiciousNo, SuspiciousYes, SuspiciousAdminNo, SuspiciousAdminYes:
		return true
	}
	return false
}

// Trusted reports whether sessions in this state may feed the statistics.
func (s SuspiciousState) Trusted() bool {
	return s == SuspiciousNo || s == SuspiciousAdminNo
}

// AdminAssigned reports whether the state was set by an administrator.
func (s SuspiciousState) AdminAssigned() bool {
	return s == SuspiciousAdminNo || s == SuspiciousAdminYes
}

type MilestoneAnswer struct {
	SessionID        int64
	MilestoneID      int64
	MilestoneGroupID int64
	Answer           int
}

// AnswerSession owns its answers, keyed by milestone id.
type AnswerSession struct {
	ID                   int64
	ChildID              int64
	UserID               int64
	CreatedAt            time.Time
	UpdatedAt            time.Time
	Expired              bool
	Completed            bool
	IncludedInStatistics bool
	SuspiciousState      SuspiciousState
	Answers              map[int64]MilestoneAnswer
}

// AllAnswered reports whether every seeded answer carries a value.
func (s AnswerSession) AllAnswered() bool {
	for _, a := range s.Answers {
		if a.Answer == scoring.Unanswered {
			return false
		}
	}
	return true
}

// ExpiredAt reports whether the session outlived its lifetime at now.
func (s AnswerSession) ExpiredAt(now time.Time, lifetime time.Duration) bool {
	return s.Expired || !now.Before(s.CreatedAt.Add(lifetime))
}

// Active reports whether the session can still receive answers.
func (s AnswerSession) Active(now time.Time, lifetime time.Duration) bool {
	return !s.Completed && !s.ExpiredAt(now, lifetime)
}

// SessionFilter narrows session listings. Zero values match everything.
type SessionFilter struct {
	ChildID       int64
	UserID        int64
	CompletedOnly bool
	// ExcludeIncluded drops sessions already folded into the statistics.
	ExcludeIncluded bool
	// UserIDs restricts the listing to these respondents when non-nil.
	UserIDs []int64
}
