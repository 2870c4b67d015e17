package grpc

import (
	"context"
	"time"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
	"github.com/godilite/milestone-server/internal/service"
)

// Cacher defines the interface for cache operations.
type Cacher interface {
	Close() error
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

type MilestoneService interface {
	GetOrCreateCurrentSession(ctx context.Context, userID, childID int64) (models.AnswerSession, error)
	RecordAnswer(ctx context.Context, sessionID, milestoneID int64, answer int) (models.AnswerSession, error)
	GetSession(ctx context.Context, sessionID int64) (models.AnswerSession, error)
	ClassifyGroupFeedback(ctx context.Context, childID, sessionID int64, detailed bool) (service.GroupFeedback, error)
	ClassifyMilestoneFeedback(ctx context.Context, sessionID, milestoneID int64) (scoring.TrafficLight, error)
	RunStatisticsUpdate(ctx context.Context, incremental bool) (service.StatisticsResult, error)
	SetSuspiciousState(ctx context.Context, sessionID int64, suspicious bool) (models.AnswerSession, error)
	GetMilestoneStatistics(ctx context.Context, milestoneID int64) (service.MilestoneStatistics, error)
	ListAnswerSessions(ctx context.Context, childID int64) ([]models.AnswerSession, error)
	StatisticsGeneration(ctx context.Context) (string, error)
}
