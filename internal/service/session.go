package service

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"go.uber.org/zap"

	"github.com/godilite/milestone-server/internal/repository"
	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
)

func ageAt(child models.Child, t time.Time) int {
	return scoring.AgeInMonths(child.BirthYear, child.BirthMonth, t.UTC())
}

func cloneSession(s models.AnswerSession) models.AnswerSession {
	s.Answers = maps.Clone(s.Answers)
	return s
}

// GetOrCreateCurrentSession returns the active session of the respondent for
// the child. A session that ran past its lifetime or was completed is
// expired and replaced by a freshly seeded one.
func (s *MilestoneService) GetOrCreateCurrentSession(ctx context.Context, userID, childID int64) (models.AnswerSession, error) {
	if userID <= 0 || childID <= 0 {
		return models.AnswerSession{}, fmt.Errorf("%w: respondent and child ids must be positive", ErrValidation)
	}

	// The shared call outlives any single caller; each caller still stops
	// waiting when its own context ends.
	key := fmt.Sprintf("%d:%d", userID, childID)
	ch := s.sessions.DoChan(key, func() (any, error) {
		return s.getOrCreate(context.WithoutCancel(ctx), userID, childID)
	})
	select {
	case <-ctx.Done():
		return models.AnswerSession{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return models.AnswerSession{}, res.Err
		}
		return cloneSession(res.Val.(models.AnswerSession)), nil
	}
}

func (s *MilestoneService) getOrCreate(ctx context.Context, userID, childID int64) (models.AnswerSession, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	child, err := s.store.Children.Get(dbCtx, childID)
	if err != nil {
		return models.AnswerSession{}, storageErr(err, ErrChildNotFound)
	}
	if child.UserID != userID {
		return models.AnswerSession{}, fmt.Errorf("%w: child %d does not belong to respondent %d", ErrValidation, childID, userID)
	}

	now := s.clock()
	var result models.AnswerSession
	err = s.store.Tx.WithinTx(dbCtx, func(ctx context.Context) error {
		current, err := s.store.Sessions.LatestOpen(ctx, userID, childID)
		switch {
		case err == nil && current.Active(now, s.policy.SessionLifetime):
			result = current
			return nil
		case err == nil:
			expired, err := s.store.Sessions.ExpireIfOpen(ctx, current.ID, now)
			if err != nil {
				return storageErr(err, nil)
			}
			if !expired {
				// another writer closed it first; use its replacement if any
				latest, err := s.store.Sessions.LatestOpen(ctx, userID, childID)
				if err == nil && latest.Active(now, s.policy.SessionLifetime) {
					result = latest
					return nil
				}
				if err != nil && !errors.Is(err, repository.ErrNotFound) {
					return storageErr(err, nil)
				}
			}
			s.logger.Info("expired answer session",
				zap.Int64("session_id", current.ID),
				zap.Int64("child_id", childID),
				zap.Bool("completed", current.Completed))
		case errors.Is(err, repository.ErrNotFound):
		default:
			return storageErr(err, nil)
		}

		fresh, err := s.seedSession(ctx, child, userID, now)
		if err != nil {
			return err
		}
		result = fresh
		return nil
	})
	if err != nil {
		return models.AnswerSession{}, err
	}
	return result, nil
}

// seedSession creates a session holding an unanswered entry for every
// milestone relevant at the child's age that the child has not achieved yet,
// plus every milestone left below the top score in the previous completed
// session.
func (s *MilestoneService) seedSession(ctx context.Context, child models.Child, userID int64, now time.Time) (models.AnswerSession, error) {
	milestones, err := s.store.Milestones.ListMilestones(ctx)
	if err != nil {
		return models.AnswerSession{}, storageErr(err, nil)
	}
	achieved, err := s.store.Sessions.AchievedMilestones(ctx, child.ID)
	if err != nil {
		return models.AnswerSession{}, storageErr(err, nil)
	}

	age := ageAt(child, now)
	byID := make(map[int64]models.Milestone, len(milestones))
	answers := map[int64]models.MilestoneAnswer{}
	seed := func(m models.Milestone) {
		answers[m.ID] = models.MilestoneAnswer{MilestoneID: m.ID, MilestoneGroupID: m.GroupID, Answer: scoring.Unanswered}
	}
	for _, m := range milestones {
		byID[m.ID] = m
		if !achieved[m.ID] && m.Relevance().Contains(age) {
			seed(m)
		}
	}

	previous, err := s.store.Sessions.LatestCompleted(ctx, userID, child.ID)
	switch {
	case err == nil:
		carried := 0
		for id, a := range previous.Answers {
			m, ok := byID[id]
			if !ok || achieved[id] || a.Answer >= scoring.MaxAnswer {
				continue
			}
			if _, seeded := answers[id]; !seeded {
				seed(m)
				carried++
			}
		}
		if carried > 0 {
			s.logger.Debug("carried forward unachieved milestones",
				zap.Int64("previous_session_id", previous.ID),
				zap.Int("count", carried))
		}
	case errors.Is(err, repository.ErrNotFound):
	default:
		return models.AnswerSession{}, storageErr(err, nil)
	}

	created, err := s.store.Sessions.Create(ctx, models.AnswerSession{
		ChildID:         child.ID,
		UserID:          userID,
		CreatedAt:       now,
		UpdatedAt:       now,
		SuspiciousState: models.SuspiciousUnknown,
		Answers:         answers,
	})
	if err != nil {
		return models.AnswerSession{}, storageErr(err, nil)
	}

	s.logger.Info("created answer session",
		zap.Int64("session_id", created.ID),
		zap.Int64("child_id", child.ID),
		zap.Int("child_age_months", age),
		zap.Int("milestones", len(answers)))
	if len(answers) == 0 {
		s.logger.Warn("answer session has no milestones", zap.Int64("session_id", created.ID))
	}
	return created, nil
}

// RecordAnswer stores one answer and completes the session once every
// seeded milestone is answered.
func (s *MilestoneService) RecordAnswer(ctx context.Context, sessionID, milestoneID int64, answer int) (models.AnswerSession, error) {
	if !scoring.ValidAnswer(answer) {
		return models.AnswerSession{}, fmt.Errorf("%w: answer %d outside %d..%d",
			ErrValidation, answer, scoring.MinAnswer, scoring.MaxAnswer)
	}

	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	now := s.clock()
	var result models.AnswerSession
	err := s.store.Tx.WithinTx(dbCtx, func(ctx context.Context) error {
		session, err := s.store.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return storageErr(err, ErrSessionNotFound)
		}
		if session.ExpiredAt(now, s.policy.SessionLifetime) || session.IncludedInStatistics {
			return fmt.Errorf("%w: session %d", ErrSessionClosed, sessionID)
		}
		current, ok := session.Answers[milestoneID]
		if !ok {
			return fmt.Errorf("%w: milestone %d is not part of session %d", ErrValidation, milestoneID, sessionID)
		}

		if err := s.store.Sessions.UpdateAnswer(ctx, sessionID, milestoneID, answer, now); err != nil {
			return storageErr(err, nil)
		}
		current.Answer = answer
		session.Answers[milestoneID] = current
		session.UpdatedAt = now

		if complete := session.AllAnswered(); complete != session.Completed {
			if err := s.store.Sessions.SetCompleted(ctx, sessionID, complete, now); err != nil {
				return storageErr(err, nil)
			}
			session.Completed = complete
			if complete {
				s.logger.Info("answer session completed", zap.Int64("session_id", sessionID))
			}
		}
		result = session
		return nil
	})
	if err != nil {
		return models.AnswerSession{}, err
	}
	return result, nil
}

// SetSuspiciousState records an administrator's verdict. Admin states are
// terminal for the automatic detector.
func (s *MilestoneService) SetSuspiciousState(ctx context.Context, sessionID int64, suspicious bool) (models.AnswerSession, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	state := models.SuspiciousAdminNo
	if suspicious {
		state = models.SuspiciousAdminYes
	}

	now := s.clock()
	var result models.AnswerSession
	err := s.store.Tx.WithinTx(dbCtx, func(ctx context.Context) error {
		session, err := s.store.Sessions.GetForUpdate(ctx, sessionID)
		if err != nil {
			return storageErr(err, ErrSessionNotFound)
		}
		if err := s.store.Sessions.SetSuspiciousState(ctx, sessionID, state, now); err != nil {
			return storageErr(err, nil)
		}
		session.SuspiciousState = state
		session.UpdatedAt = now
		result = session
		return nil
	})
	if err != nil {
		return models.AnswerSession{}, err
	}

	s.logger.Info("suspicious state set by admin",
		zap.Int64("session_id", sessionID),
		zap.String("state", string(state)))
	return result, nil
}

// GetSession loads one session.
func (s *MilestoneService) GetSession(ctx context.Context, sessionID int64) (models.AnswerSession, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	session, err := s.store.Sessions.Get(dbCtx, sessionID)
	if err != nil {
		return models.AnswerSession{}, storageErr(err, ErrSessionNotFound)
	}
	return session, nil
}

// ListAnswerSessions returns the sessions of a child, or of every child when
// childID is zero.
func (s *MilestoneService) ListAnswerSessions(ctx context.Context, childID int64) ([]models.AnswerSession, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	sessions, err := s.store.Sessions.List(dbCtx, models.SessionFilter{ChildID: childID})
	if err != nil {
		return nil, storageErr(err, nil)
	}
	return sessions, nil
}
