package service

import (
	"context"
	"time"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
)

type ChildRepository interface {
	Get(ctx context.Context, id int64) (models.Child, error)
}

type MilestoneRepository interface {
	ListGroups(ctx context.Context) ([]models.MilestoneGroup, error)
	ListMilestones(ctx context.Context) ([]models.Milestone, error)
	GetMilestone(ctx context.Context, id int64) (models.Milestone, error)
	UpdateRelevance(ctx context.Context, id int64, rel scoring.Relevance) error
}

// SessionRepository defines the persistence operations of the answer
// session state machine.
type SessionRepository interface {
	Get(ctx context.Context, id int64) (models.AnswerSession, error)
	GetForUpdate(ctx context.Context, id int64) (models.AnswerSession, error)
	LatestOpen(ctx context.Context, userID, childID int64) (models.AnswerSession, error)
	LatestCompleted(ctx context.Context, userID, childID int64) (models.AnswerSession, error)
	List(ctx context.Context, filter models.SessionFilter) ([]models.AnswerSession, error)
	Create(ctx context.Context, s models.AnswerSession) (models.AnswerSession, error)
	ExpireIfOpen(ctx context.Context, id int64, now time.Time) (bool, error)
	UpdateAnswer(ctx context.Context, sessionID, milestoneID int64, answer int, now time.Time) error
	SetCompleted(ctx context.Context, id int64, completed bool, now time.Time) error
	DemoteIncomplete(ctx context.Context, now time.Time) ([]int64, error)
	SetSuspiciousStateIfUnknown(ctx context.Context, id int64, state models.SuspiciousState, now time.Time) (bool, error)
	SetSuspiciousState(ctx context.Context, id int64, state models.SuspiciousState, now time.Time) error
	MarkIncluded(ctx context.Context, ids []int64) error
	AchievedMilestones(ctx context.Context, childID int64) (map[int64]bool, error)
}

type ScoreRepository interface {
	MilestoneCollections(ctx context.Context) (map[int64]models.MilestoneAgeScoreCollection, error)
	MilestoneCollection(ctx context.Context, milestoneID int64) (models.MilestoneAgeScoreCollection, error)
	SaveMilestoneCollection(ctx context.Context, c models.MilestoneAgeScoreCollection) error
	GroupCollections(ctx context.Context) (map[int64]models.MilestoneGroupAgeScoreCollection, error)
	GroupCollection(ctx context.Context, groupID int64) (models.MilestoneGroupAgeScoreCollection, error)
	SaveGroupCollection(ctx context.Context, c models.MilestoneGroupAgeScoreCollection) error
	GroupSamples(ctx context.Context, sessionIDs []int64) (map[int64]map[int64]float64, error)
	SaveGroupSamples(ctx context.Context, samples []models.GroupSample) error
	ResetScores(ctx context.Context) error
}

type StatisticsRunRepository interface {
	Create(ctx context.Context, run models.StatisticsRun) (int64, error)
	Latest(ctx context.Context) (models.StatisticsRun, error)
}

type ResearchRepository interface {
	Questions(ctx context.Context, kind models.QuestionKind) ([]models.Question, error)
	Answers(ctx context.Context, kind models.QuestionKind) ([]models.QuestionAnswer, error)
}

// Transactor runs fn in a transaction carried by the context it receives.
// Repository calls made with that context join the transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// CohortFilter identifies respondents by cohort.
type CohortFilter interface {
	// TestAccountIDs returns respondents excluded from statistics and
	// suspicion checks.
	TestAccountIDs(ctx context.Context) ([]int64, error)
	ResearchGroupMembers(ctx context.Context, groupID int64) ([]int64, error)
}

// Storage bundles the persistence collaborators of the service.
type Storage struct {
	Tx         Transactor
	Children   ChildRepository
	Milestones MilestoneRepository
	Sessions   SessionRepository
	Scores     ScoreRepository
	Runs       StatisticsRunRepository
	Research   ResearchRepository
	Cohort     CohortFilter
}

func (s Storage) validate() error {
	switch {
	case s.Tx == nil:
		return errMissing("transactor")
	case s.Children == nil:
		return errMissing("child repository")
	case s.Milestones == nil:
		return errMissing("milestone repository")
	case s.Sessions == nil:
		return errMissing("session repository")
	case s.Scores == nil:
		return errMissing("score repository")
	case s.Runs == nil:
		return errMissing("statistics run repository")
	case s.Research == nil:
		return errMissing("research repository")
	case s.Cohort == nil:
		return errMissing("cohort filter")
	}
	return nil
}
