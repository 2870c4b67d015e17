package grpc

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	pb "github.com/godilite/milestone-server/api/v1"
	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/service"
)

const (
	defaultCacheDuration = 10 * time.Minute
	defaultGRPCTimeout   = 10 * time.Second
	// statistics updates fold every qualifying session
	statisticsTimeout = 10 * time.Minute
)

type CacheKeyType string

const (
	cacheKeyGroupFeedback       CacheKeyType = "grpc:group_feedback"
	cacheKeyMilestoneStatistics CacheKeyType = "grpc:milestone_statistics"
)

type GRPCHandlers struct {
	pb.UnimplementedMilestoneServiceServer
	milestones MilestoneService
	cache      Cacher
	logger     *zap.Logger
	sfGroup    singleflight.Group
	cacheTTL   time.Duration
}

// NewGRPCHandlers initializes the gRPC handlers. cache may be nil.
func NewGRPCHandlers(milestones MilestoneService, cache Cacher, logger *zap.Logger, ttl time.Duration) *GRPCHandlers {
	if milestones == nil {
		panic("nil MilestoneService provided to NewGRPCHandlers")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = defaultCacheDuration
	}
	return &GRPCHandlers{
		milestones: milestones,
		cache:      cache,
		logger:     logger.Named("grpc-handler"),
		cacheTTL:   ttl,
	}
}

func requirePositive(field string, v int64) error {
	if v <= 0 {
		return status.Errorf(codes.InvalidArgument, "%s must be positive", field)
	}
	return nil
}

// generationKey versions a cache key by the committed statistics snapshot.
func generationKey(prefix CacheKeyType, generation string, parts ...any) string {
	if generation == "" {
		generation = "none"
	}
	key := fmt.Sprintf("%s:%s", prefix, generation)
	for _, p := range parts {
		key += fmt.Sprintf(":%v", p)
	}
	return key
}

func (s *GRPCHandlers) handleError(ctx context.Context, op string, err error) error {
	switch ctx.Err() {
	case context.Canceled:
		s.logger.Warn("request canceled", zap.String("op", op))
		return status.Error(codes.Canceled, "request canceled")
	case context.DeadlineExceeded:
		s.logger.Warn("request timeout", zap.String("op", op))
		return status.Error(codes.DeadlineExceeded, "request timed out")
	}

	switch {
	case errors.Is(err, service.ErrValidation):
		s.logger.Info("invalid request", zap.String("op", op), zap.Error(err))
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrChildNotFound),
		errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrMilestoneNotFound):
		s.logger.Info("not found", zap.String("op", op), zap.Error(err))
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, service.ErrMissingStatistics):
		s.logger.Info("no statistics", zap.String("op", op), zap.Error(err))
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrSessionClosed):
		s.logger.Info("session closed", zap.String("op", op), zap.Error(err))
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, service.ErrStorageFailure):
		s.logger.Error("storage failure", zap.String("op", op), zap.Error(err))
		return status.Error(codes.Internal, "database error")
	default:
		s.logger.Error("unexpected error", zap.String("op", op), zap.Error(err))
		return status.Errorf(codes.Internal, "%s failed: %v", op, err)
	}
}

func (s *GRPCHandlers) GetOrCreateCurrentSession(ctx context.Context, req *pb.GetOrCreateCurrentSessionRequest) (*pb.Session, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	session, err := s.milestones.GetOrCreateCurrentSession(ctx, req.GetRespondentID(), req.GetChildID())
	if err != nil {
		return nil, s.handleError(ctx, "GetOrCreateCurrentSession", err)
	}
	return toProtoSession(session), nil
}

func (s *GRPCHandlers) RecordAnswer(ctx context.Context, req *pb.RecordAnswerRequest) (*pb.Session, error) {
	if err := requirePositive("session_id", req.SessionID); err != nil {
		return nil, err
	}
	if err := requirePositive("milestone_id", req.MilestoneID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	session, err := s.milestones.RecordAnswer(ctx, req.SessionID, req.MilestoneID, int(req.Answer))
	if err != nil {
		return nil, s.handleError(ctx, "RecordAnswer", err)
	}
	return toProtoSession(session), nil
}

// ClassifyGroupFeedback is cached per statistics generation and session
// revision, so new answers and new statistics both miss the cache.
func (s *GRPCHandlers) ClassifyGroupFeedback(ctx context.Context, req *pb.ClassifyGroupFeedbackRequest) (*pb.GroupFeedbackResponse, error) {
	if err := requirePositive("child_id", req.ChildID); err != nil {
		return nil, err
	}
	if err := requirePositive("session_id", req.SessionID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	generation, err := s.milestones.StatisticsGeneration(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "ClassifyGroupFeedback", err)
	}
	session, err := s.milestones.GetSession(ctx, req.SessionID)
	if err != nil {
		return nil, s.handleError(ctx, "ClassifyGroupFeedback", err)
	}

	key := generationKey(cacheKeyGroupFeedback, generation,
		req.ChildID, req.SessionID, req.Detailed, session.UpdatedAt.UnixNano())

	resp, err := FindAndCache(ctx, s.cache, &s.sfGroup, key, s.cacheTTL, s.logger, func(fetchCtx context.Context) (*pb.GroupFeedbackResponse, error) {
		feedback, err := s.milestones.ClassifyGroupFeedback(fetchCtx, req.ChildID, req.SessionID, req.Detailed)
		if err != nil {
			return nil, err
		}
		return toProtoFeedback(feedback), nil
	})
	if err != nil {
		return nil, s.handleError(ctx, "ClassifyGroupFeedback", err)
	}
	return resp, nil
}

func (s *GRPCHandlers) ClassifyMilestoneFeedback(ctx context.Context, req *pb.ClassifyMilestoneFeedbackRequest) (*pb.MilestoneFeedbackResponse, error) {
	if err := requirePositive("session_id", req.SessionID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	light, err := s.milestones.ClassifyMilestoneFeedback(ctx, req.SessionID, req.MilestoneID)
	if err != nil {
		return nil, s.handleError(ctx, "ClassifyMilestoneFeedback", err)
	}
	return &pb.MilestoneFeedbackResponse{TrafficLight: int32(light)}, nil
}

func (s *GRPCHandlers) RunStatisticsUpdate(ctx context.Context, req *pb.RunStatisticsUpdateRequest) (*pb.RunStatisticsUpdateResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, statisticsTimeout)
	defer cancel()

	result, err := s.milestones.RunStatisticsUpdate(ctx, req.Incremental)
	if err != nil {
		return nil, s.handleError(ctx, "RunStatisticsUpdate", err)
	}
	return &pb.RunStatisticsUpdateResponse{
		RunID:           result.RunID,
		Summary:         result.Summary,
		SessionsUsed:    int64(result.SessionsUsed),
		DemotedSessions: result.Demoted,
		Classified:      int64(result.Classified),
	}, nil
}

func (s *GRPCHandlers) SetSuspiciousState(ctx context.Context, req *pb.SetSuspiciousStateRequest) (*pb.Session, error) {
	if err := requirePositive("session_id", req.SessionID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	session, err := s.milestones.SetSuspiciousState(ctx, req.SessionID, req.Suspicious)
	if err != nil {
		return nil, s.handleError(ctx, "SetSuspiciousState", err)
	}
	return toProtoSession(session), nil
}

func (s *GRPCHandlers) GetMilestoneStatistics(ctx context.Context, req *pb.GetMilestoneStatisticsRequest) (*pb.MilestoneStatistics, error) {
	if err := requirePositive("milestone_id", req.MilestoneID); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	generation, err := s.milestones.StatisticsGeneration(ctx)
	if err != nil {
		return nil, s.handleError(ctx, "GetMilestoneStatistics", err)
	}
	key := generationKey(cacheKeyMilestoneStatistics, generation, req.MilestoneID)

	resp, err := FindAndCache(ctx, s.cache, &s.sfGroup, key, s.cacheTTL, s.logger, func(fetchCtx context.Context) (*pb.MilestoneStatistics, error) {
		stats, err := s.milestones.GetMilestoneStatistics(fetchCtx, req.MilestoneID)
		if err != nil {
			return nil, err
		}
		return toProtoStatistics(stats), nil
	})
	if err != nil {
		return nil, s.handleError(ctx, "GetMilestoneStatistics", err)
	}
	return resp, nil
}

func (s *GRPCHandlers) ListAnswerSessions(ctx context.Context, req *pb.ListAnswerSessionsRequest) (*pb.ListAnswerSessionsResponse, error) {
	if req.ChildID < 0 {
		return nil, status.Error(codes.InvalidArgument, "child_id must not be negative")
	}

	ctx, cancel := context.WithTimeout(ctx, defaultGRPCTimeout)
	defer cancel()

	sessions, err := s.milestones.ListAnswerSessions(ctx, req.ChildID)
	if err != nil {
		return nil, s.handleError(ctx, "ListAnswerSessions", err)
	}
	out := make([]*pb.Session, len(sessions))
	for i, session := range sessions {
		out[i] = toProtoSession(session)
	}
	return &pb.ListAnswerSessionsResponse{Sessions: out}, nil
}

func toProtoSession(s models.AnswerSession) *pb.Session {
	answers := make([]*pb.Answer, 0, len(s.Answers))
	for _, a := range s.Answers {
		answers = append(answers, &pb.Answer{
			MilestoneID:      a.MilestoneID,
			MilestoneGroupID: a.MilestoneGroupID,
			Answer:           int32(a.Answer),
		})
	}
	slices.SortFunc(answers, func(a, b *pb.Answer) int {
		return cmp.Compare(a.MilestoneID, b.MilestoneID)
	})
	return &pb.Session{
		ID:                   s.ID,
		ChildID:              s.ChildID,
		RespondentID:         s.UserID,
		CreatedAt:            s.CreatedAt,
		UpdatedAt:            s.UpdatedAt,
		Expired:              s.Expired,
		Completed:            s.Completed,
		IncludedInStatistics: s.IncludedInStatistics,
		SuspiciousState:      string(s.SuspiciousState),
		Answers:              answers,
	}
}

func toProtoFeedback(f service.GroupFeedback) *pb.GroupFeedbackResponse {
	out := &pb.GroupFeedbackResponse{Groups: make(map[int64]int32, len(f.Groups))}
	for id, light := range f.Groups {
		out.Groups[id] = int32(light)
	}
	if f.Milestones != nil {
		out.Milestones = make(map[int64]map[int64]int32, len(f.Milestones))
		for groupID, lights := range f.Milestones {
			m := make(map[int64]int32, len(lights))
			for id, light := range lights {
				m[id] = int32(light)
			}
			out.Milestones[groupID] = m
		}
	}
	return out
}

func toProtoStatistics(s service.MilestoneStatistics) *pb.MilestoneStatistics {
	ages := make([]*pb.AgeStatistic, len(s.Ages))
	for i, a := range s.Ages {
		ages[i] = &pb.AgeStatistic{
			Age:    int32(a.Age),
			Count:  int64(a.Count),
			Mean:   a.Mean,
			StdDev: a.StdDev,
		}
	}
	return &pb.MilestoneStatistics{
		MilestoneID:      s.MilestoneID,
		GroupID:          s.GroupID,
		ExpectedAge:      int32(s.Relevance.ExpectedAge),
		ExpectedAgeDelta: int32(s.Relevance.ExpectedAgeDelta),
		RelevantAgeMin:   int32(s.Relevance.MinAge),
		RelevantAgeMax:   int32(s.Relevance.MaxAge),
		Ages:             ages,
	}
}
