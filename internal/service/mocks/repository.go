package mocks

import (
	"context"
	"errors"
	"time"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
)

// MockTransactor runs fn directly with the caller's context.
type MockTransactor struct {
	WithinTxFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.WithinTxFunc != nil {
		return m.WithinTxFunc(ctx, fn)
	}
	return fn(ctx)
}

type MockChildRepository struct {
	GetFunc func(ctx context.Context, id int64) (models.Child, error)
}

func (m *MockChildRepository) Get(ctx context.Context, id int64) (models.Child, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return models.Child{}, errors.New("GetFunc not implemented")
}

type MockMilestoneRepository struct {
	ListGroupsFunc      func(ctx context.Context) ([]models.MilestoneGroup, error)
	ListMilestonesFunc  func(ctx context.Context) ([]models.Milestone, error)
	GetMilestoneFunc    func(ctx context.Context, id int64) (models.Milestone, error)
	UpdateRelevanceFunc func(ctx context.Context, id int64, rel scoring.Relevance) error
}

func (m *MockMilestoneRepository) ListGroups(ctx context.Context) ([]models.MilestoneGroup, error) {
	if m.ListGroupsFunc != nil {
		return m.ListGroupsFunc(ctx)
	}
	return nil, errors.New("ListGroupsFunc not implemented")
}

func (m *MockMilestoneRepository) ListMilestones(ctx context.Context) ([]models.Milestone, error) {
	if m.ListMilestonesFunc != nil {
		return m.ListMilestonesFunc(ctx)
	}
	return nil, errors.New("ListMilestonesFunc not implemented")
}

func (m *MockMilestoneRepository) GetMilestone(ctx context.Context, id int64) (models.Milestone, error) {
	if m.GetMilestoneFunc != nil {
		return m.GetMilestoneFunc(ctx, id)
	}
	return models.Milestone{}, errors.New("GetMilestoneFunc not implemented")
}

func (m *MockMilestoneRepository) UpdateRelevance(ctx context.Context, id int64, rel scoring.Relevance) error {
	if m.UpdateRelevanceFunc != nil {
		return m.UpdateRelevanceFunc(ctx, id, rel)
	}
	return errors.New("UpdateRelevanceFunc not implemented")
}

// MockSessionRepository is a mock implementation of the SessionRepository
// interface for testing the service layer.
type MockSessionRepository struct {
	GetFunc                         func(ctx context.Context, id int64) (models.AnswerSession, error)
	GetForUpdateFunc                func(ctx context.Context, id int64) (models.AnswerSession, error)
	LatestOpenFunc                  func(ctx context.Context, userID, childID int64) (models.AnswerSession, error)
	LatestCompletedFunc             func(ctx context.Context, userID, childID int64) (models.AnswerSession, error)
	ListFunc                        func(ctx context.Context, filter models.SessionFilter) ([]models.AnswerSession, error)
	CreateFunc                      func(ctx context.Context, s models.AnswerSession) (models.AnswerSession, error)
	ExpireIfOpenFunc                func(ctx context.Context, id int64, now time.Time) (bool, error)
	UpdateAnswerFunc                func(ctx context.Context, sessionID, milestoneID int64, answer int, now time.Time) error
	SetCompletedFunc                func(ctx context.Context, id int64, completed bool, now time.Time) error
	DemoteIncompleteFunc            func(ctx context.Context, now time.Time) ([]int64, error)
	SetSuspiciousStateIfUnknownFunc func(ctx context.Context, id int64, state models.SuspiciousState, now time.Time) (bool, error)
	SetSuspiciousStateFunc          func(ctx context.Context, id int64, state models.SuspiciousState, now time.Time) error
	MarkIncludedFunc                func(ctx context.Context, ids []int64) error
	AchievedMilestonesFunc          func(ctx context.Context, childID int64) (map[int64]bool, error)
}

func (m *MockSessionRepository) Get(ctx context.Context, id int64) (models.AnswerSession, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return models.AnswerSession{}, errors.New("GetFunc not implemented")
}

func (m *MockSessionRepository) GetForUpdate(ctx context.Context, id int64) (models.AnswerSession, error) {
	if m.GetForUpdateFunc != nil {
		return m.GetForUpdateFunc(ctx, id)
	}
	return models.AnswerSession{}, errors.New("GetForUpdateFunc not implemented")
}

func (m *MockSessionRepository) LatestOpen(ctx context.Context, userID, childID int64) (models.AnswerSession, error) {
	if m.LatestOpenFunc != nil {
		return m.LatestOpenFunc(ctx, userID, childID)
	}
	return models.AnswerSession{}, errors.New("LatestOpenFunc not implemented")
}

func (m *MockSessionRepository) LatestCompleted(ctx context.Context, userID, childID int64) (models.AnswerSession, error) {
	if m.LatestCompletedFunc != nil {
		return m.LatestCompletedFunc(ctx, userID, childID)
	}
	return models.AnswerSession{}, errors.New("LatestCompletedFunc not implemented")
}

func (m *MockSessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.AnswerSession, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, errors.New("ListFunc not implemented")
}

func (m *MockSessionRepository) Create(ctx context.Context, s models.AnswerSession) (models.AnswerSession, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, s)
	}
	return models.AnswerSession{}, errors.New("CreateFunc not implemented")
}

func (m *MockSessionRepository) ExpireIfOpen(ctx context.Context, id int64, now time.Time) (bool, error) {
	if m.ExpireIfOpenFunc != nil {
		return m.ExpireIfOpenFunc(ctx, id, now)
	}
	return false, errors.New("ExpireIfOpenFunc not implemented")
}

func (m *MockSessionRepository) UpdateAnswer(ctx context.Context, sessionID, milestoneID int64, answer int, now time.Time) error {
	if m.UpdateAnswerFunc != nil {
		return m.UpdateAnswerFunc(ctx, sessionID, milestoneID, answer, now)
	}
	return errors.New("UpdateAnswerFunc not implemented")
}

func (m *MockSessionRepository) SetCompleted(ctx context.Context, id int64, completed bool, now time.Time) error {
	if m.SetCompletedFunc != nil {
		return m.SetCompletedFunc(ctx, id, completed, now)
	}
	return errors.New("SetCompletedFunc not implemented")
}

func (m *MockSessionRepository) DemoteIncomplete(ctx context.Context, now time.Time) ([]int64, error) {
	if m.DemoteIncompleteFunc != nil {
		return m.DemoteIncompleteFunc(ctx, now)
	}
	return nil, errors.New("DemoteIncompleteFunc not implemented")
}

func (m *MockSessionRepository) SetSuspiciousStateIfUnknown(ctx context.Context, id int64, state models.SuspiciousState, now time.Time) (bool, error) {
	if m.SetSuspiciousStateIfUnknownFunc != nil {
		return m.SetSuspiciousStateIfUnknownFunc(ctx, id, state, now)
	}
	return false, errors.New("SetSuspiciousStateIfUnknownFunc not implemented")
}

func (m *MockSessionRepository) SetSuspiciousState(ctx context.Context, id int64, state models.SuspiciousState, now time.Time) error {
	if m.SetSuspiciousStateFunc != nil {
		return m.SetSuspiciousStateFunc(ctx, id, state, now)
	}
	return errors.New("SetSuspiciousStateFunc not implemented")
}

func (m *MockSessionRepository) MarkIncluded(ctx context.Context, ids []int64) error {
	if m.MarkIncludedFunc != nil {
		return m.MarkIncludedFunc(ctx, ids)
	}
	return errors.New("MarkIncludedFunc not implemented")
}

func (m *MockSessionRepository) AchievedMilestones(ctx context.Context, childID int64) (map[int64]bool, error) {
	if m.AchievedMilestonesFunc != nil {
		return m.AchievedMilestonesFunc(ctx, childID)
	}
	return nil, errors.New("AchievedMilestonesFunc not implemented")
}

type MockScoreRepository struct {
	MilestoneCollectionsFunc    func(ctx context.Context) (map[int64]models.MilestoneAgeScoreCollection, error)
	MilestoneCollectionFunc     func(ctx context.Context, milestoneID int64) (models.MilestoneAgeScoreCollection, error)
	SaveMilestoneCollectionFunc func(ctx context.Context, c models.MilestoneAgeScoreCollection) error
	GroupCollectionsFunc        func(ctx context.Context) (map[int64]models.MilestoneGroupAgeScoreCollection, error)
	GroupCollectionFunc         func(ctx context.Context, groupID int64) (models.MilestoneGroupAgeScoreCollection, error)
	SaveGroupCollectionFunc     func(ctx context.Context, c models.MilestoneGroupAgeScoreCollection) error
	GroupSamplesFunc            func(ctx context.Context, sessionIDs []int64) (map[int64]map[int64]float64, error)
	SaveGroupSamplesFunc        func(ctx context.Context, samples []models.GroupSample) error
	ResetScoresFunc             func(ctx context.Context) error
}

func (m *MockScoreRepository) MilestoneCollections(ctx context.Context) (map[int64]models.MilestoneAgeScoreCollection, error) {
	if m.MilestoneCollectionsFunc != nil {
		return m.MilestoneCollectionsFunc(ctx)
	}
	return nil, errors.New("MilestoneCollectionsFunc not implemented")
}

func (m *MockScoreRepository) MilestoneCollection(ctx context.Context, milestoneID int64) (models.MilestoneAgeScoreCollection, error) {
	if m.MilestoneCollectionFunc != nil {
		return m.MilestoneCollectionFunc(ctx, milestoneID)
	}
	return models.MilestoneAgeScoreCollection{}, errors.New("MilestoneCollectionFunc not implemented")
}

func (m *MockScoreRepository) SaveMilestoneCollection(ctx context.Context, c models.MilestoneAgeScoreCollection) error {
	if m.SaveMilestoneCollectionFunc != nil {
		return m.SaveMilestoneCollectionFunc(ctx, c)
	}
	return errors.New("SaveMilestoneCollectionFunc not implemented")
}

func (m *MockScoreRepository) GroupCollections(ctx context.Context) (map[int64]models.MilestoneGroupAgeScoreCollection, error) {
	if m.GroupCollectionsFunc != nil {
		return m.GroupCollectionsFunc(ctx)
	}
	return nil, errors.New("GroupCollectionsFunc not implemented")
}

func (m *MockScoreRepository) GroupCollection(ctx context.Context, groupID int64) (models.MilestoneGroupAgeScoreCollection, error) {
	if m.GroupCollectionFunc != nil {
		return m.GroupCollectionFunc(ctx, groupID)
	}
	return models.MilestoneGroupAgeScoreCollection{}, errors.New("GroupCollectionFunc not implemented")
}

func (m *MockScoreRepository) SaveGroupCollection(ctx context.Context, c models.MilestoneGroupAgeScoreCollection) error {
	if m.SaveGroupCollectionFunc != nil {
		return m.SaveGroupCollectionFunc(ctx, c)
	}
	return errors.New("SaveGroupCollectionFunc not implemented")
}

func (m *MockScoreRepository) GroupSamples(ctx context.Context, sessionIDs []int64) (map[int64]map[int64]float64, error) {
	if m.GroupSamplesFunc != nil {
		return m.GroupSamplesFunc(ctx, sessionIDs)
	}
	return nil, errors.New("GroupSamplesFunc not implemented")
}

func (m *MockScoreRepository) SaveGroupSamples(ctx context.Context, samples []models.GroupSample) error {
	if m.SaveGroupSamplesFunc != nil {
		return m.SaveGroupSamplesFunc(ctx, samples)
	}
	return errors.New("SaveGroupSamplesFunc not implemented")
}

func (m *MockScoreRepository) ResetScores(ctx context.Context) error {
	if m.ResetScoresFunc != nil {
		return m.ResetScoresFunc(ctx)
	}
	return errors.New("ResetScoresFunc not implemented")
}

type MockStatisticsRunRepository struct {
	CreateFunc func(ctx context.Context, run models.StatisticsRun) (int64, error)
	LatestFunc func(ctx context.Context) (models.StatisticsRun, error)
}

func (m *MockStatisticsRunRepository) Create(ctx context.Context, run models.StatisticsRun) (int64, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, run)
	}
	return 0, errors.New("CreateFunc not implemented")
}

func (m *MockStatisticsRunRepository) Latest(ctx context.Context) (models.StatisticsRun, error) {
	if m.LatestFunc != nil {
		return m.LatestFunc(ctx)
	}
	return models.StatisticsRun{}, errors.New("LatestFunc not implemented")
}

type MockResearchRepository struct {
	QuestionsFunc func(ctx context.Context, kind models.QuestionKind) ([]models.Question, error)
	AnswersFunc   func(ctx context.Context, kind models.QuestionKind) ([]models.QuestionAnswer, error)
}

func (m *MockResearchRepository) Questions(ctx context.Context, kind models.QuestionKind) ([]models.Question, error) {
	if m.QuestionsFunc != nil {
		return m.QuestionsFunc(ctx, kind)
	}
	return nil, errors.New("QuestionsFunc not implemented")
}

func (m *MockResearchRepository) Answers(ctx context.Context, kind models.QuestionKind) ([]models.QuestionAnswer, error) {
	if m.AnswersFunc != nil {
		return m.AnswersFunc(ctx, kind)
	}
	return nil, errors.New("AnswersFunc not implemented")
}

type MockCohortFilter struct {
	TestAccountIDsFunc       func(ctx context.Context) ([]int64, error)
	ResearchGroupMembersFunc func(ctx context.Context, groupID int64) ([]int64, error)
}

func (m *MockCohortFilter) TestAccountIDs(ctx context.Context) ([]int64, error) {
	if m.TestAccountIDsFunc != nil {
		return m.TestAccountIDsFunc(ctx)
	}
	return nil, nil
}

func (m *MockCohortFilter) ResearchGroupMembers(ctx context.Context, groupID int64) ([]int64, error) {
	if m.ResearchGroupMembersFunc != nil {
		return m.ResearchGroupMembersFunc(ctx, groupID)
	}
	return nil, errors.New("ResearchGroupMembersFunc not implemented")
}
