package service_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
)

const day = 24 * time.Hour

func TestRunStatisticsUpdate_GroupSampleImputation(t *testing.T) {
	e := newEnv(t)
	g := e.group(t, 1)
	answered := e.milestone(t, g)
	missing := e.milestone(t, g, 6, 20)

	created := baseTime.Add(-8 * day)
	child := e.childAged(t, 1, 9, created)
	e.completedSession(t, 1, child, created, models.SuspiciousNo, answerSpec{answered, g, 2})

	res, err := e.svc.RunStatisticsUpdate(e.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.SessionsUsed)
	assert.NotEmpty(t, res.RunID)

	gc, err := e.scores.GroupCollection(e.ctx, g)
	require.NoError(t, err)
	acc := gc.Scores[9]
	assert.Equal(t, 1, acc.Count)
	assert.Equal(t, 2.5, acc.Mean())
	assert.Equal(t, 0.0, acc.StdDev())

	mc, err := e.scores.MilestoneCollection(e.ctx, answered)
	require.NoError(t, err)
	assert.Equal(t, scoring.AnswerCounts{C2: 1}, mc.Scores[9])
	assert.Equal(t, 2.0, mc.Scores[9].Mean())

	_, err = e.scores.MilestoneCollection(e.ctx, missing)
	assert.Error(t, err)
}

func TestRunStatisticsUpdate_QualifyingSessions(t *testing.T) {
	e := newEnv(t)
	g := e.group(t, 1)
	m := e.milestone(t, g)
	e.respondent(t, 1, "parent@example.com", 0)
	e.respondent(t, 2, "qa-"+testerSuffix, 0)

	old := baseTime.Add(-8 * day)
	valid := e.completedSession(t, 1, e.childAged(t, 1, 9, old), old, models.SuspiciousNo, answerSpec{m, g, 2})
	unevaluated := e.completedSession(t, 1, e.childAged(t, 1, 11, old), old, models.SuspiciousUnknown, answerSpec{m, g, 1})
	tester := e.completedSession(t, 2, e.childAged(t, 2, 9, old), old, models.SuspiciousNo, answerSpec{m, g, 3})
	flagged := e.completedSession(t, 1, e.childAged(t, 1, 10, old), old, models.SuspiciousAdminYes, answerSpec{m, g, 0})
	overAge := e.completedSession(t, 1, e.childAged(t, 1, 80, old), old, models.SuspiciousNo, answerSpec{m, g, 3})
	fresh := e.completedSession(t, 1, e.childAged(t, 1, 12, baseTime), baseTime.Add(-time.Hour), models.SuspiciousNo, answerSpec{m, g, 3})
	open := e.store(t, models.AnswerSession{
		ChildID: e.childAged(t, 1, 13, old), UserID: 1, CreatedAt: old, UpdatedAt: old,
		Answers: map[int64]models.MilestoneAnswer{m: {MilestoneGroupID: g, Answer: scoring.Unanswered}},
	})

	res, err := e.svc.RunStatisticsUpdate(e.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, res.SessionsUsed)
	assert.Equal(t, "Incremental statistics update complete using 2 answer sessions.", res.Summary)

	included := map[int64]bool{}
	for _, s := range []models.AnswerSession{valid, unevaluated, tester, flagged, overAge, fresh, open} {
		got, err := e.svc.GetSession(e.ctx, s.ID)
		require.NoError(t, err)
		included[s.ID] = got.IncludedInStatistics
	}
	assert.Equal(t, map[int64]bool{
		valid.ID: true, unevaluated.ID: true,
		tester.ID: false, flagged.ID: false, overAge.ID: false, fresh.ID: false, open.ID: false,
	}, included)

	mc, err := e.scores.MilestoneCollection(e.ctx, m)
	require.NoError(t, err)
	assert.Equal(t, scoring.AnswerCounts{C2: 1}, mc.Scores[9])
	assert.Equal(t, scoring.AnswerCounts{C1: 1}, mc.Scores[11])

	t.Run("re-running is a no-op", func(t *testing.T) {
		res, err := e.svc.RunStatisticsUpdate(e.ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 0, res.SessionsUsed)

		again, err := e.scores.MilestoneCollection(e.ctx, m)
		require.NoError(t, err)
		assert.Equal(t, mc.Scores, again.Scores)
	})

	t.Run("sessions qualify after the grace period", func(t *testing.T) {
		e.clock.Advance(8 * day)
		res, err := e.svc.RunStatisticsUpdate(e.ctx, true)
		require.NoError(t, err)
		assert.Equal(t, 1, res.SessionsUsed)
	})

	t.Run("generation follows the latest run", func(t *testing.T) {
		res, err := e.svc.RunStatisticsUpdate(e.ctx, false)
		require.NoError(t, err)
		assert.Equal(t, "Full statistics update complete using 3 answer sessions.", res.Summary)

		gen, err := e.svc.StatisticsGeneration(e.ctx)
		require.NoError(t, err)
		assert.Equal(t, res.RunID, gen)
	})
}

func TestRunStatisticsUpdate_DemotesInconsistentSessions(t *testing.T) {
	e := newEnv(t)
	g := e.group(t, 1)
	m1 := e.milestone(t, g)
	m2 := e.milestone(t, g)

	old := baseTime.Add(-8 * day)
	broken := e.store(t, models.AnswerSession{
		ChildID: e.childAged(t, 1, 9, old), UserID: 1, CreatedAt: old, UpdatedAt: old,
		Completed: true, SuspiciousState: models.SuspiciousNo,
		Answers: map[int64]models.MilestoneAnswer{
			m1: {MilestoneGroupID: g, Answer: 2},
			m2: {MilestoneGroupID: g, Answer: scoring.Unanswered},
		},
	})

	res, err := e.svc.RunStatisticsUpdate(e.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, []int64{broken.ID}, res.Demoted)
	assert.Equal(t, 0, res.SessionsUsed)

	got, err := e.svc.GetSession(e.ctx, broken.ID)
	require.NoError(t, err)
	assert.False(t, got.Completed)
	assert.False(t, got.IncludedInStatistics)
}

func TestRunStatisticsUpdate_EstimatesRelevance(t *testing.T) {
	e := newEnv(t)
	g := e.group(t, 1)
	m := e.milestone(t, g)
	untouched := e.milestone(t, g)

	old := baseTime.Add(-8 * day)
	for i := 0; i < 3; i++ {
		e.completedSession(t, int64(i+1), e.childAged(t, int64(i+1), 8, old), old, models.SuspiciousNo, answerSpec{m, g, 3})
	}

	_, err := e.svc.RunStatisticsUpdate(e.ctx, true)
	require.NoError(t, err)

	stats, err := e.svc.GetMilestoneStatistics(e.ctx, m)
	require.NoError(t, err)
	assert.Equal(t, scoring.Relevance{ExpectedAge: 8, ExpectedAgeDelta: 64, MinAge: 0, MaxAge: 72}, stats.Relevance)
	require.Len(t, stats.Ages, 1)
	assert.Equal(t, 8, stats.Ages[0].Age)
	assert.Equal(t, 3, stats.Ages[0].Count)

	mc, err := e.scores.MilestoneCollection(e.ctx, m)
	require.NoError(t, err)
	assert.Equal(t, 8, mc.ExpectedAge)
	assert.Equal(t, 64, mc.ExpectedAgeDelta)

	all, err := e.milestones.ListMilestones(e.ctx)
	require.NoError(t, err)
	for _, ms := range all {
		assert.LessOrEqual(t, ms.RelevantAgeMin, ms.ExpectedAgeMonths)
		assert.LessOrEqual(t, ms.ExpectedAgeMonths, ms.RelevantAgeMax)
		if ms.ID == untouched {
			assert.Equal(t, scoring.DefaultRelevance(72), ms.Relevance())
		}
	}
}

// seedBatch stores n completed sessions created at created, one child per
// session and one session per age so that no milestone window moves.
func seedBatch(t *testing.T, e *env, created time.Time, firstAge, n int, groups [2]int64, ms [4]int64) {
	t.Helper()
	for i := 0; i < n; i++ {
		age := firstAge + i
		user := int64(100 + age)
		var answers []answerSpec
		answers = append(answers, answerSpec{ms[0], groups[0], age % 4})
		if age%3 != 0 {
			answers = append(answers, answerSpec{ms[1], groups[0], (age * 3) % 4})
		}
		if age%2 == 0 {
			answers = append(answers, answerSpec{ms[2], groups[1], (age + 1) % 4})
		}
		if age%5 == 1 {
			answers = append(answers, answerSpec{ms[3], groups[1], (age * 7) % 4})
		}
		e.completedSession(t, user, e.childAged(t, user, age, created), created, models.SuspiciousNo, answers...)
	}
}

func TestRunStatisticsUpdate_IncrementalMatchesFull(t *testing.T) {
	e := newEnv(t)
	groups := [2]int64{e.group(t, 1), e.group(t, 2)}
	ms := [4]int64{
		e.milestone(t, groups[0]), e.milestone(t, groups[0]),
		e.milestone(t, groups[1]), e.milestone(t, groups[1]),
	}

	e.clock.Set(baseTime)
	seedBatch(t, e, baseTime, 0, 20, groups, ms)
	e.clock.Advance(8 * day)
	first, err := e.svc.RunStatisticsUpdate(e.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 20, first.SessionsUsed)

	seedBatch(t, e, e.clock.Now(), 20, 20, groups, ms)
	e.clock.Advance(8 * day)
	second, err := e.svc.RunStatisticsUpdate(e.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 20, second.SessionsUsed)

	incMilestones, err := e.scores.MilestoneCollections(e.ctx)
	require.NoError(t, err)
	incGroups, err := e.scores.GroupCollections(e.ctx)
	require.NoError(t, err)

	full, err := e.svc.RunStatisticsUpdate(e.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 40, full.SessionsUsed)

	fullMilestones, err := e.scores.MilestoneCollections(e.ctx)
	require.NoError(t, err)
	fullGroups, err := e.scores.GroupCollections(e.ctx)
	require.NoError(t, err)

	require.Len(t, fullMilestones, len(incMilestones))
	for id, inc := range incMilestones {
		assert.Equal(t, inc.Scores, fullMilestones[id].Scores, "milestone %d", id)
		assert.Equal(t, inc.ExpectedAge, fullMilestones[id].ExpectedAge)
	}

	require.Len(t, fullGroups, len(incGroups))
	for id, inc := range incGroups {
		require.Len(t, fullGroups[id].Scores, len(inc.Scores))
		for age, acc := range inc.Scores {
			got := fullGroups[id].Scores[age]
			assert.Equal(t, acc.Count, got.Count, "group %d age %d", id, age)
			assert.InDelta(t, acc.SumScore, got.SumScore, 1e-9)
			assert.InDelta(t, acc.SumSquaredScore, got.SumSquaredScore, 1e-9)
		}
	}

	for _, col := range fullMilestones {
		for _, counts := range col.Scores {
			if counts.N() < 2 {
				assert.Equal(t, 0.0, counts.StdDev())
			} else {
				assert.GreaterOrEqual(t, counts.StdDev(), 0.0)
			}
		}
	}
}

func TestRunStatisticsUpdate_MovedWindowKeepsGroupSamples(t *testing.T) {
	e := newEnv(t)
	g := e.group(t, 1)
	a := e.milestone(t, g)
	b := e.milestone(t, g)

	created := baseTime.Add(-8 * day)
	user := int64(1)
	session := func(age int, answers ...answerSpec) {
		e.completedSession(t, user, e.childAged(t, user, age, created), created, models.SuspiciousNo, answers...)
		user++
	}
	for range 3 {
		session(0, answerSpec{b, g, 0})
		session(1, answerSpec{b, g, 3})
	}
	// b is unanswered and imputed as achieved while its window starts at 0
	session(0, answerSpec{a, g, 1})

	inc, err := e.svc.RunStatisticsUpdate(e.ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 7, inc.SessionsUsed)

	moved, err := e.milestones.GetMilestone(e.ctx, b)
	require.NoError(t, err)
	require.Equal(t, 1, moved.RelevantAgeMin, "the update moves b's window past age 0")

	before, err := e.scores.GroupCollection(e.ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 4, before.Scores[0].Count)
	assert.InDelta(t, 6.5, before.Scores[0].SumScore, 1e-9)

	full, err := e.svc.RunStatisticsUpdate(e.ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 7, full.SessionsUsed)

	after, err := e.scores.GroupCollection(e.ctx, g)
	require.NoError(t, err)
	for age, acc := range before.Scores {
		got := after.Scores[age]
		assert.Equal(t, acc.Count, got.Count, "age %d", age)
		assert.InDelta(t, acc.SumScore, got.SumScore, 1e-9, "age %d", age)
		assert.InDelta(t, acc.SumSquaredScore, got.SumSquaredScore, 1e-9, "age %d", age)
	}

	// a session counted for the first time imputes against the moved window
	session(0, answerSpec{a, g, 1})
	e.clock.Advance(8 * day)
	_, err = e.svc.RunStatisticsUpdate(e.ctx, true)
	require.NoError(t, err)
	latest, err := e.scores.GroupCollection(e.ctx, g)
	require.NoError(t, err)
	assert.Equal(t, 5, latest.Scores[0].Count)
	assert.InDelta(t, 7.0, latest.Scores[0].SumScore, 1e-9)
}
