package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
)

// StatisticsResult summarizes one statistics update.
type StatisticsResult struct {
	RunID        string
	Incremental  bool
	SessionsUsed int
	Demoted      []int64
	Classified   int
	Summary      string
}

// RunStatisticsUpdate folds qualifying sessions into the age-bucketed
// statistics and re-estimates milestone relevance. An incremental run only
// adds sessions not folded in before; a full run rebuilds the counts from
// every qualifying session. The fold commits atomically.
func (s *MilestoneService) RunStatisticsUpdate(ctx context.Context, incremental bool) (StatisticsResult, error) {
	ctx, cancel := context.WithTimeout(ctx, statsTimeout)
	defer cancel()

	started := s.clock()
	result := StatisticsResult{RunID: uuid.NewString(), Incremental: incremental}
	log := s.logger.With(zap.String("run_id", result.RunID), zap.Bool("incremental", incremental))

	demoted, err := s.FlagIncompleteSessions(ctx)
	if err != nil {
		return StatisticsResult{}, err
	}
	result.Demoted = demoted

	classified, err := s.DetectSuspiciousSessions(ctx)
	if err != nil {
		return StatisticsResult{}, err
	}
	result.Classified = classified

	tests, err := s.testAccounts(ctx)
	if err != nil {
		return StatisticsResult{}, err
	}

	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		used, err := s.fold(ctx, incremental, tests, log)
		if err != nil {
			return err
		}
		result.SessionsUsed = used

		kind := "Full"
		if incremental {
			kind = "Incremental"
		}
		result.Summary = fmt.Sprintf("%s statistics update complete using %d answer sessions.", kind, used)

		_, err = s.store.Runs.Create(ctx, models.StatisticsRun{
			RunID:        result.RunID,
			Incremental:  incremental,
			SessionsUsed: used,
			StartedAt:    started,
			FinishedAt:   s.clock(),
			Summary:      result.Summary,
		})
		return storageErr(err, nil)
	})
	if err != nil {
		log.Error("statistics update failed", zap.Error(err))
		return StatisticsResult{}, err
	}

	log.Info(result.Summary,
		zap.Int("sessions_used", result.SessionsUsed),
		zap.Int("demoted", len(result.Demoted)),
		zap.Int("classified", result.Classified),
		zap.Duration("elapsed", s.clock().Sub(started)))
	return result, nil
}

// FlagIncompleteSessions demotes completed sessions that still hold an
// unanswered milestone.
func (s *MilestoneService) FlagIncompleteSessions(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		ids, err = s.store.Sessions.DemoteIncomplete(ctx, s.clock())
		return storageErr(err, nil)
	})
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		s.logger.Warn("demoted inconsistent answer session", zap.Int64("session_id", id))
	}
	return ids, nil
}

// qualifies reports whether a completed session may enter the statistics.
func (s *MilestoneService) qualifies(session models.AnswerSession, cutoff time.Time, tests map[int64]bool) bool {
	return session.Completed &&
		!session.CreatedAt.After(cutoff) &&
		!tests[session.UserID] &&
		session.SuspiciousState.Trusted()
}

func (s *MilestoneService) fold(ctx context.Context, incremental bool, tests map[int64]bool, log *zap.Logger) (int, error) {
	now := s.clock()

	if !incremental {
		if err := s.store.Scores.ResetScores(ctx); err != nil {
			return 0, storageErr(err, nil)
		}
	}

	sessions, err := s.store.Sessions.List(ctx, models.SessionFilter{CompletedOnly: true, ExcludeIncluded: incremental})
	if err != nil {
		return 0, storageErr(err, nil)
	}
	milestones, err := s.store.Milestones.ListMilestones(ctx)
	if err != nil {
		return 0, storageErr(err, nil)
	}
	milestoneCols, err := s.store.Scores.MilestoneCollections(ctx)
	if err != nil {
		return 0, storageErr(err, nil)
	}
	groupCols, err := s.store.Scores.GroupCollections(ctx)
	if err != nil {
		return 0, storageErr(err, nil)
	}
	ids := make([]int64, len(sessions))
	for i, session := range sessions {
		ids[i] = session.ID
	}
	samples, err := s.store.Scores.GroupSamples(ctx, ids)
	if err != nil {
		return 0, storageErr(err, nil)
	}

	byID := make(map[int64]models.Milestone, len(milestones))
	byGroup := map[int64][]models.Milestone{}
	for _, m := range milestones {
		byID[m.ID] = m
		byGroup[m.GroupID] = append(byGroup[m.GroupID], m)
	}

	dirtyMilestones := map[int64]bool{}
	dirtyGroups := map[int64]bool{}
	ages := newChildAges(s.store.Children)
	cutoff := now.Add(-s.policy.GracePeriod)
	var used []int64
	var frozen []models.GroupSample

	for _, session := range sessions {
		if !s.qualifies(session, cutoff, tests) {
			continue
		}
		age, err := ages.at(ctx, session)
		if errors.Is(err, ErrChildNotFound) {
			log.Warn("skipping session without child", zap.Int64("session_id", session.ID))
			continue
		}
		if err != nil {
			return 0, err
		}
		if !s.policy.supportedAge(age) {
			log.Info("excluding session outside supported ages",
				zap.Int64("session_id", session.ID),
				zap.Int("child_age_months", age))
			continue
		}

		touched := map[int64]bool{}
		for id, a := range session.Answers {
			m, ok := byID[id]
			if !ok || !scoring.ValidAnswer(a.Answer) {
				continue
			}
			col, ok := milestoneCols[id]
			if !ok {
				col = models.NewMilestoneAgeScoreCollection(id, now)
				milestoneCols[id] = col
			}
			counts := col.Scores[age]
			if err := counts.Add(a.Answer); err != nil {
				return 0, err
			}
			col.Scores[age] = counts
			dirtyMilestones[id] = true
			touched[m.GroupID] = true
		}

		for groupID := range touched {
			col, ok := groupCols[groupID]
			if !ok {
				col = models.NewMilestoneGroupAgeScoreCollection(groupID, now)
				groupCols[groupID] = col
			}
			score, ok := samples[session.ID][groupID]
			if !ok {
				score = GroupScore(session, byGroup[groupID], age)
				frozen = append(frozen, models.GroupSample{SessionID: session.ID, GroupID: groupID, Score: score})
			}
			acc := col.Scores[age]
			acc.Add(score)
			col.Scores[age] = acc
			dirtyGroups[groupID] = true
		}
		used = append(used, session.ID)
	}

	if err := s.store.Scores.SaveGroupSamples(ctx, frozen); err != nil {
		return 0, storageErr(err, nil)
	}
	for id := range dirtyGroups {
		if err := s.store.Scores.SaveGroupCollection(ctx, groupCols[id]); err != nil {
			return 0, storageErr(err, nil)
		}
	}

	for _, m := range milestones {
		col, ok := milestoneCols[m.ID]
		var counts []scoring.AnswerCounts
		if ok {
			counts = col.CountsByAge(s.policy.MaxAgeMonths)
		}
		rel := s.policy.Relevance.Estimate(counts)
		if rel != m.Relevance() {
			if err := s.store.Milestones.UpdateRelevance(ctx, m.ID, rel); err != nil {
				return 0, storageErr(err, nil)
			}
		}
		if !ok {
			continue
		}
		if col.ExpectedAge != rel.ExpectedAge || col.ExpectedAgeDelta != rel.ExpectedAgeDelta {
			col.ExpectedAge, col.ExpectedAgeDelta = rel.ExpectedAge, rel.ExpectedAgeDelta
			milestoneCols[m.ID] = col
			dirtyMilestones[m.ID] = true
		}
	}

	for id := range dirtyMilestones {
		if err := s.store.Scores.SaveMilestoneCollection(ctx, milestoneCols[id]); err != nil {
			return 0, storageErr(err, nil)
		}
	}

	if err := s.store.Sessions.MarkIncluded(ctx, used); err != nil {
		return 0, storageErr(err, nil)
	}
	return len(used), nil
}

// GroupScore is a session's score for one group at the given age: the mean
// over the group's milestones, imputing the ones the session lacks. The fold
// stores the score the first time a session is counted and reuses it on every
// later run, so moving relevance windows never re-impute counted sessions.
func GroupScore(session models.AnswerSession, group []models.Milestone, age int) float64 {
	values := make([]int, 0, len(group))
	for _, m := range group {
		a, ok := session.Answers[m.ID]
		values = append(values, scoring.ImputedAnswer(a.Answer, ok, age, m.RelevantAgeMin))
	}
	return scoring.Average(values)
}
