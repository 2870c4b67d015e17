package mocks

import (
	"context"
	"errors"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
	"github.com/godilite/milestone-server/internal/service"
)

// MockMilestoneService is a mock implementation of the MilestoneService
// interface for testing the handler layer.
type MockMilestoneService struct {
	GetOrCreateCurrentSessionFunc func(ctx context.Context, userID, childID int64) (models.AnswerSession, error)
	RecordAnswerFunc              func(ctx context.Context, sessionID, milestoneID int64, answer int) (models.AnswerSession, error)
	GetSessionFunc                func(ctx context.Context, sessionID int64) (models.AnswerSession, error)
	ClassifyGroupFeedbackFunc     func(ctx context.Context, childID, sessionID int64, detailed bool) (service.GroupFeedback, error)
	ClassifyMilestoneFeedbackFunc func(ctx context.Context, sessionID, milestoneID int64) (scoring.TrafficLight, error)
	RunStatisticsUpdateFunc       func(ctx context.Context, incremental bool) (service.StatisticsResult, error)
	SetSuspiciousStateFunc        func(ctx context.Context, sessionID int64, suspicious bool) (models.AnswerSession, error)
	GetMilestoneStatisticsFunc    func(ctx context.Context, milestoneID int64) (service.MilestoneStatistics, error)
	ListAnswerSessionsFunc        func(ctx context.Context, childID int64) ([]models.AnswerSession, error)
	StatisticsGenerationFunc      func(ctx context.Context) (string, error)
}

func (m *MockMilestoneService) GetOrCreateCurrentSession(ctx context.Context, userID, childID int64) (models.AnswerSession, error) {
	if m.GetOrCreateCurrentSessionFunc != nil {
		return m.GetOrCreateCurrentSessionFunc(ctx, userID, childID)
	}
	return models.AnswerSession{}, errors.New("GetOrCreateCurrentSessionFunc not implemented")
}

func (m *MockMilestoneService) RecordAnswer(ctx context.Context, sessionID, milestoneID int64, answer int) (models.AnswerSession, error) {
	if m.RecordAnswerFunc != nil {
		return m.RecordAnswerFunc(ctx, sessionID, milestoneID, answer)
	}
	return models.AnswerSession{}, errors.New("RecordAnswerFunc not implemented")
}

func (m *MockMilestoneService) GetSession(ctx context.Context, sessionID int64) (models.AnswerSession, error) {
	if m.GetSessionFunc != nil {
		return m.GetSessionFunc(ctx, sessionID)
	}
	return models.AnswerSession{}, errors.New("GetSessionFunc not implemented")
}

func (m *MockMilestoneService) ClassifyGroupFeedback(ctx context.Context, childID, sessionID int64, detailed bool) (service.GroupFeedback, error) {
	if m.ClassifyGroupFeedbackFunc != nil {
		return m.ClassifyGroupFeedbackFunc(ctx, childID, sessionID, detailed)
	}
	return service.GroupFeedback{}, errors.New("ClassifyGroupFeedbackFunc not implemented")
}

func (m *MockMilestoneService) ClassifyMilestoneFeedback(ctx context.Context, sessionID, milestoneID int64) (scoring.TrafficLight, error) {
	if m.ClassifyMilestoneFeedbackFunc != nil {
		return m.ClassifyMilestoneFeedbackFunc(ctx, sessionID, milestoneID)
	}
	return scoring.InsufficientData, errors.New("ClassifyMilestoneFeedbackFunc not implemented")
}

func (m *MockMilestoneService) RunStatisticsUpdate(ctx context.Context, incremental bool) (service.StatisticsResult, error) {
	if m.RunStatisticsUpdateFunc != nil {
		return m.RunStatisticsUpdateFunc(ctx, incremental)
	}
	return service.StatisticsResult{}, errors.New("RunStatisticsUpdateFunc not implemented")
}

func (m *MockMilestoneService) SetSuspiciousState(ctx context.Context, sessionID int64, suspicious bool) (models.AnswerSession, error) {
	if m.SetSuspiciousStateFunc != nil {
		return m.SetSuspiciousStateFunc(ctx, sessionID, suspicious)
	}
	return models.AnswerSession{}, errors.New("SetSuspiciousStateFunc not implemented")
}

func (m *MockMilestoneService) GetMilestoneStatistics(ctx context.Context, milestoneID int64) (service.MilestoneStatistics, error) {
	if m.GetMilestoneStatisticsFunc != nil {
		return m.GetMilestoneStatisticsFunc(ctx, milestoneID)
	}
	return service.MilestoneStatistics{}, errors.New("GetMilestoneStatisticsFunc not implemented")
}

func (m *MockMilestoneService) ListAnswerSessions(ctx context.Context, childID int64) ([]models.AnswerSession, error) {
	if m.ListAnswerSessionsFunc != nil {
		return m.ListAnswerSessionsFunc(ctx, childID)
	}
	return nil, errors.New("ListAnswerSessionsFunc not implemented")
}

// StatisticsGeneration defaults to the empty generation.
func (m *MockMilestoneService) StatisticsGeneration(ctx context.Context) (string, error) {
	if m.StatisticsGenerationFunc != nil {
		return m.StatisticsGenerationFunc(ctx)
	}
	return "", nil
}
