package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
)

// SessionDeviation is the root-mean-square distance between a session's
// answers and the population means at the child's age.
func SessionDeviation(session models.AnswerSession, age int, collections map[int64]models.MilestoneAgeScoreCollection) scoring.Deviation {
	var d scoring.Deviation
	for id, a := range session.Answers {
		if !scoring.ValidAnswer(a.Answer) {
			continue
		}
		col, ok := collections[id]
		if !ok {
			continue
		}
		counts := col.Scores[age]
		if counts.N() == 0 {
			continue
		}
		d.Add(counts.Mean(), a.Answer)
	}
	return d
}

// DetectSuspiciousSessions classifies every completed, unevaluated session
// outside the test cohort and returns how many sessions it classified.
// Sessions in any other state are never touched.
func (s *MilestoneService) DetectSuspiciousSessions(ctx context.Context) (int, error) {
	tests, err := s.testAccounts(ctx)
	if err != nil {
		return 0, err
	}

	classified := 0
	err = s.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		sessions, err := s.store.Sessions.List(ctx, models.SessionFilter{CompletedOnly: true})
		if err != nil {
			return storageErr(err, nil)
		}
		collections, err := s.store.Scores.MilestoneCollections(ctx)
		if err != nil {
			return storageErr(err, nil)
		}

		ages := newChildAges(s.store.Children)
		now := s.clock()
		for _, session := range sessions {
			if session.SuspiciousState != models.SuspiciousUnknown || tests[session.UserID] {
				continue
			}
			age, err := ages.at(ctx, session)
			if errors.Is(err, ErrChildNotFound) {
				s.logger.Warn("skipping suspicious check for session without child", zap.Int64("session_id", session.ID))
				continue
			}
			if err != nil {
				return err
			}

			dev := SessionDeviation(session, age, collections)
			state := models.SuspiciousNo
			if dev.RMS() > s.policy.SuspiciousThreshold {
				state = models.SuspiciousYes
			}
			changed, err := s.store.Sessions.SetSuspiciousStateIfUnknown(ctx, session.ID, state, now)
			if err != nil {
				return storageErr(err, nil)
			}
			if !changed {
				continue
			}
			classified++
			s.logger.Info("classified answer session",
				zap.Int64("session_id", session.ID),
				zap.String("state", string(state)),
				zap.Float64("rms", dev.RMS()),
				zap.Int("compared", dev.Count()))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return classified, nil
}
