package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/godilite/milestone-server/internal/repository"
	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
)

// GroupFeedback holds one traffic light per milestone group touched by the
// session and, in detailed mode, one per answered milestone.
type GroupFeedback struct {
	Groups     map[int64]scoring.TrafficLight
	Milestones map[int64]map[int64]scoring.TrafficLight
}

// AgeStatistic is the population statistic of one age bucket.
type AgeStatistic struct {
	Age int
	scoring.Stat
}

// MilestoneStatistics describes the current statistics of one milestone.
type MilestoneStatistics struct {
	MilestoneID int64
	GroupID     int64
	Relevance   scoring.Relevance
	Ages        []AgeStatistic
}

// ClassifyMilestoneFeedback classifies the answer given for one milestone
// against the population at the child's age.
func (s *MilestoneService) ClassifyMilestoneFeedback(ctx context.Context, sessionID, milestoneID int64) (scoring.TrafficLight, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	session, err := s.store.Sessions.Get(dbCtx, sessionID)
	if err != nil {
		return scoring.InsufficientData, storageErr(err, ErrSessionNotFound)
	}
	answer, ok := session.Answers[milestoneID]
	if !ok {
		return scoring.InsufficientData, fmt.Errorf("%w: milestone %d is not part of session %d", ErrValidation, milestoneID, sessionID)
	}
	if !scoring.ValidAnswer(answer.Answer) {
		return scoring.InsufficientData, fmt.Errorf("%w: milestone %d not answered", ErrValidation, milestoneID)
	}

	age, err := newChildAges(s.store.Children).at(dbCtx, session)
	if err != nil {
		return scoring.InsufficientData, err
	}

	col, err := s.store.Scores.MilestoneCollection(dbCtx, milestoneID)
	if err != nil {
		return scoring.InsufficientData, storageErr(err, ErrMissingStatistics)
	}
	light := s.policy.Feedback.ClassifyStat(col.Scores[age].Stat(), float64(answer.Answer))
	if light == scoring.InsufficientData {
		return light, fmt.Errorf("%w: milestone %d at age %d", ErrMissingStatistics, milestoneID, age)
	}
	return light, nil
}

// ClassifyGroupFeedback classifies the session's score of every milestone
// group it touches against the population of the surrounding ages. Groups
// without enough population data map to InsufficientData.
func (s *MilestoneService) ClassifyGroupFeedback(ctx context.Context, childID, sessionID int64, detailed bool) (GroupFeedback, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	session, err := s.store.Sessions.Get(dbCtx, sessionID)
	if err != nil {
		return GroupFeedback{}, storageErr(err, ErrSessionNotFound)
	}
	if session.ChildID != childID {
		return GroupFeedback{}, fmt.Errorf("%w: session %d does not belong to child %d", ErrValidation, sessionID, childID)
	}

	age, err := newChildAges(s.store.Children).at(dbCtx, session)
	if err != nil {
		return GroupFeedback{}, err
	}

	milestones, err := s.store.Milestones.ListMilestones(dbCtx)
	if err != nil {
		return GroupFeedback{}, storageErr(err, nil)
	}
	groupCols, err := s.store.Scores.GroupCollections(dbCtx)
	if err != nil {
		return GroupFeedback{}, storageErr(err, nil)
	}

	byGroup := map[int64][]models.Milestone{}
	for _, m := range milestones {
		byGroup[m.GroupID] = append(byGroup[m.GroupID], m)
	}
	touched := map[int64]bool{}
	for _, a := range session.Answers {
		touched[a.MilestoneGroupID] = true
	}

	lo, hi := s.policy.ageWindow(age)
	out := GroupFeedback{Groups: map[int64]scoring.TrafficLight{}}
	for groupID := range touched {
		col, ok := groupCols[groupID]
		if !ok || !s.policy.supportedAge(age) {
			out.Groups[groupID] = scoring.InsufficientData
			continue
		}
		stat := col.Window(lo, hi).Stat()
		out.Groups[groupID] = s.policy.Feedback.ClassifyStat(stat, GroupScore(session, byGroup[groupID], age))
	}

	if !detailed {
		return out, nil
	}

	milestoneCols, err := s.store.Scores.MilestoneCollections(dbCtx)
	if err != nil {
		return GroupFeedback{}, storageErr(err, nil)
	}
	out.Milestones = map[int64]map[int64]scoring.TrafficLight{}
	for id, a := range session.Answers {
		if !scoring.ValidAnswer(a.Answer) {
			continue
		}
		if out.Milestones[a.MilestoneGroupID] == nil {
			out.Milestones[a.MilestoneGroupID] = map[int64]scoring.TrafficLight{}
		}
		light := scoring.InsufficientData
		if col, ok := milestoneCols[id]; ok {
			light = s.policy.Feedback.ClassifyStat(col.Scores[age].Stat(), float64(a.Answer))
		}
		out.Milestones[a.MilestoneGroupID][id] = light
	}
	return out, nil
}

// GetMilestoneStatistics returns the relevance window and the per-age
// statistics of a milestone. Ages without answers are omitted.
func (s *MilestoneService) GetMilestoneStatistics(ctx context.Context, milestoneID int64) (MilestoneStatistics, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	m, err := s.store.Milestones.GetMilestone(dbCtx, milestoneID)
	if err != nil {
		return MilestoneStatistics{}, storageErr(err, ErrMilestoneNotFound)
	}
	out := MilestoneStatistics{MilestoneID: m.ID, GroupID: m.GroupID, Relevance: m.Relevance()}

	col, err := s.store.Scores.MilestoneCollection(dbCtx, milestoneID)
	if errors.Is(err, repository.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		return MilestoneStatistics{}, storageErr(err, nil)
	}

	ages := make([]int, 0, len(col.Scores))
	for age, counts := range col.Scores {
		if counts.N() > 0 {
			ages = append(ages, age)
		}
	}
	slices.Sort(ages)
	for _, age := range ages {
		out.Ages = append(out.Ages, AgeStatistic{Age: age, Stat: col.Scores[age].Stat()})
	}
	return out, nil
}

// StatisticsGeneration identifies the committed statistics snapshot. It is
// empty before the first statistics update.
func (s *MilestoneService) StatisticsGeneration(ctx context.Context) (string, error) {
	dbCtx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	run, err := s.store.Runs.Latest(dbCtx)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", storageErr(err, nil)
	}
	return run.RunID, nil
}
