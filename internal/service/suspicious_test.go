package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
	"github.com/godilite/milestone-server/internal/service"
)

func TestSessionDeviation(t *testing.T) {
	cols := map[int64]models.MilestoneAgeScoreCollection{
		1: {MilestoneID: 1, Scores: map[int]scoring.AnswerCounts{9: {C3: 4}}},
		2: {MilestoneID: 2, Scores: map[int]scoring.AnswerCounts{9: {C1: 2, C3: 2}}},
	}
	session := models.AnswerSession{Answers: map[int64]models.MilestoneAnswer{
		1: {MilestoneID: 1, Answer: 1},
		2: {MilestoneID: 2, Answer: 2},
		3: {MilestoneID: 3, Answer: 0},
		4: {MilestoneID: 4, Answer: scoring.Unanswered},
	}}

	d := service.SessionDeviation(session, 9, cols)
	assert.Equal(t, 2, d.Count())
	assert.InDelta(t, 1.4142135, d.RMS(), 1e-6)

	none := service.SessionDeviation(session, 30, cols)
	assert.Equal(t, 0, none.Count())
	assert.Equal(t, 0.0, none.RMS())
}

func TestDetectSuspiciousSessions(t *testing.T) {
	e := newEnv(t)
	g := e.group(t, 1)
	m := e.milestone(t, g)
	e.respondent(t, 9, "x-"+testerSuffix, 0)

	mc := models.NewMilestoneAgeScoreCollection(m, baseTime)
	mc.Scores[9] = scoring.AnswerCounts{C3: 10}
	require.NoError(t, e.scores.SaveMilestoneCollection(e.ctx, mc))

	child := e.childAged(t, 1, 9, baseTime)
	liar := e.completedSession(t, 1, child, baseTime, models.SuspiciousUnknown, answerSpec{m, g, 0})
	honest := e.completedSession(t, 1, child, baseTime, models.SuspiciousUnknown, answerSpec{m, g, 3})
	noStats := e.completedSession(t, 1, e.childAged(t, 1, 30, baseTime), baseTime, models.SuspiciousUnknown, answerSpec{m, g, 0})
	admin := e.completedSession(t, 1, child, baseTime, models.SuspiciousAdminNo, answerSpec{m, g, 0})
	tester := e.completedSession(t, 9, e.childAged(t, 9, 9, baseTime), baseTime, models.SuspiciousUnknown, answerSpec{m, g, 0})
	open := e.completedSession(t, 1, child, baseTime, models.SuspiciousUnknown, answerSpec{m, g, scoring.Unanswered})

	states := func() map[int64]models.SuspiciousState {
		out := map[int64]models.SuspiciousState{}
		for _, s := range []models.AnswerSession{liar, honest, noStats, admin, tester, open} {
			got, err := e.svc.GetSession(e.ctx, s.ID)
			require.NoError(t, err)
			out[s.ID] = got.SuspiciousState
		}
		return out
	}

	n, err := e.svc.DetectSuspiciousSessions(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := map[int64]models.SuspiciousState{
		liar.ID:    models.SuspiciousYes,
		honest.ID:  models.SuspiciousNo,
		noStats.ID: models.SuspiciousNo,
		admin.ID:   models.SuspiciousAdminNo,
		tester.ID:  models.SuspiciousUnknown,
		open.ID:    models.SuspiciousUnknown,
	}
	assert.Equal(t, want, states())

	// a second pass changes nothing
	mc.Scores[9] = scoring.AnswerCounts{C0: 10}
	require.NoError(t, e.scores.SaveMilestoneCollection(e.ctx, mc))

	n, err = e.svc.DetectSuspiciousSessions(e.ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Equal(t, want, states())
}
