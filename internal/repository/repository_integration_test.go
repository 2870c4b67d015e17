package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/godilite/milestone-server/internal/repository"
	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
	"github.com/godilite/milestone-server/pkg/database"
)

var baseTime = time.Date(2025, 10, 18, 10, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.New(
		database.WithDriver("sqlite3"),
		database.WithDataSource(":memory:"),
		database.WithRetry(1, 0),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, repository.Migrate(context.Background(), db))
	return db
}

type fixture struct {
	childID    int64
	groupID    int64
	milestones []int64
}

func seedFixture(t *testing.T, db *database.DB) fixture {
	t.Helper()
	ctx := context.Background()

	childID, err := repository.NewChildRepository(db).Create(ctx, models.Child{UserID: 7, Name: "Ada", BirthYear: 2024, BirthMonth: 6})
	require.NoError(t, err)

	milestones := repository.NewMilestoneRepository(db)
	groupID, err := milestones.CreateGroup(ctx, models.MilestoneGroup{Order: 1})
	require.NoError(t, err)

	f := fixture{childID: childID, groupID: groupID}
	for i := 0; i < 3; i++ {
		id, err := milestones.CreateMilestone(ctx, models.Milestone{GroupID: groupID, Order: i}, 72)
		require.NoError(t, err)
		f.milestones = append(f.milestones, id)
	}
	return f
}

func newSession(f fixture, answers ...int) models.AnswerSession {
	s := models.AnswerSession{
		ChildID:   f.childID,
		UserID:    7,
		CreatedAt: baseTime,
		UpdatedAt: baseTime,
		Answers:   map[int64]models.MilestoneAnswer{},
	}
	for i, a := range answers {
		s.Answers[f.milestones[i]] = models.MilestoneAnswer{MilestoneGroupID: f.groupID, Answer: a}
	}
	return s
}

func TestMigrate_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	require.NoError(t, repository.Migrate(context.Background(), db))
}

func TestChildRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.NewChildRepository(db)

	id, err := repo.Create(ctx, models.Child{UserID: 3, Name: "Bo", BirthYear: 2023, BirthMonth: 11})
	require.NoError(t, err)

	child, err := repo.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, models.Child{ID: id, UserID: 3, Name: "Bo", BirthYear: 2023, BirthMonth: 11}, child)

	_, err = repo.Get(ctx, id+100)
	assert.True(t, errors.Is(err, repository.ErrNotFound))
}

func TestMilestoneRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := repository.NewMilestoneRepository(db)

	all, err := repo.ListMilestones(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, scoring.DefaultRelevance(72), all[0].Relevance())

	rel := scoring.Relevance{ExpectedAge: 10, ExpectedAgeDelta: 4, MinAge: 6, MaxAge: 14}
	require.NoError(t, repo.UpdateRelevance(ctx, f.milestones[1], rel))

	m, err := repo.GetMilestone(ctx, f.milestones[1])
	require.NoError(t, err)
	assert.Equal(t, rel, m.Relevance())
	assert.Equal(t, f.groupID, m.GroupID)

	groups, err := repo.ListGroups(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.MilestoneGroup{{ID: f.groupID, Order: 1}}, groups)

	_, err = repo.GetMilestone(ctx, 999)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := repository.NewSessionRepository(db)

	created, err := repo.Create(ctx, newSession(f, -1, -1, -1))
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	assert.Equal(t, models.SuspiciousUnknown, created.SuspiciousState)

	t.Run("Get loads answers", func(t *testing.T) {
		s, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Len(t, s.Answers, 3)
		assert.True(t, s.CreatedAt.Equal(baseTime))
		assert.False(t, s.AllAnswered())
		for _, id := range f.milestones {
			assert.Equal(t, scoring.Unanswered, s.Answers[id].Answer)
			assert.Equal(t, f.groupID, s.Answers[id].MilestoneGroupID)
		}
	})

	t.Run("LatestOpen", func(t *testing.T) {
		s, err := repo.LatestOpen(ctx, 7, f.childID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, s.ID)

		_, err = repo.LatestOpen(ctx, 8, f.childID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})

	t.Run("UpdateAnswer and completion", func(t *testing.T) {
		later := baseTime.Add(time.Hour)
		for _, id := range f.milestones {
			require.NoError(t, repo.UpdateAnswer(ctx, created.ID, id, 2, later))
		}
		require.NoError(t, repo.SetCompleted(ctx, created.ID, true, later))

		s, err := repo.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, s.Completed)
		assert.True(t, s.AllAnswered())
		assert.True(t, s.UpdatedAt.Equal(later))

		done, err := repo.LatestCompleted(ctx, 7, f.childID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, done.ID)
	})

	t.Run("ExpireIfOpen only succeeds once", func(t *testing.T) {
		ok, err := repo.ExpireIfOpen(ctx, created.ID, baseTime)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repo.ExpireIfOpen(ctx, created.ID, baseTime)
		require.NoError(t, err)
		assert.False(t, ok)

		_, err = repo.LatestOpen(ctx, 7, f.childID)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	})
}

func TestSessionRepository_DemoteIncomplete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := repository.NewSessionRepository(db)

	good := newSession(f, 1, 2, 3)
	good.Completed = true
	good, err := repo.Create(ctx, good)
	require.NoError(t, err)

	broken := newSession(f, 1, -1, 3)
	broken.Completed = true
	broken, err = repo.Create(ctx, broken)
	require.NoError(t, err)

	ids, err := repo.DemoteIncomplete(ctx, baseTime)
	require.NoError(t, err)
	assert.Equal(t, []int64{broken.ID}, ids)

	sessions, err := repo.List(ctx, models.SessionFilter{ChildID: f.childID})
	require.NoError(t, err)
	for _, s := range sessions {
		if s.Completed {
			assert.True(t, s.AllAnswered(), "session %d completed with unanswered milestones", s.ID)
		}
	}

	ids, err = repo.DemoteIncomplete(ctx, baseTime)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSessionRepository_SuspiciousAndIncluded(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := repository.NewSessionRepository(db)

	s := newSession(f, 3, 3, 3)
	s.Completed = true
	s, err := repo.Create(ctx, s)
	require.NoError(t, err)

	changed, err := repo.SetSuspiciousStateIfUnknown(ctx, s.ID, models.SuspiciousYes, baseTime)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.SetSuspiciousStateIfUnknown(ctx, s.ID, models.SuspiciousNo, baseTime)
	require.NoError(t, err)
	assert.False(t, changed)

	require.NoError(t, repo.SetSuspiciousState(ctx, s.ID, models.SuspiciousAdminNo, baseTime))
	got, err := repo.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SuspiciousAdminNo, got.SuspiciousState)

	pending, err := repo.List(ctx, models.SessionFilter{CompletedOnly: true, ExcludeIncluded: true})
	require.NoError(t, err)
	require.Len(t, pending, 1)

	require.NoError(t, repo.MarkIncluded(ctx, []int64{s.ID}))
	pending, err = repo.List(ctx, models.SessionFilter{CompletedOnly: true, ExcludeIncluded: true})
	require.NoError(t, err)
	assert.Empty(t, pending)

	achieved, err := repo.AchievedMilestones(ctx, f.childID)
	require.NoError(t, err)
	assert.Len(t, achieved, 3)

	none, err := repo.List(ctx, models.SessionFilter{UserIDs: []int64{}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSessionRepository_CascadeDelete(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := repository.NewSessionRepository(db)

	s, err := repo.Create(ctx, newSession(f, 1, 2))
	require.NoError(t, err)

	_, err = db.ExecContext(ctx, `DELETE FROM milestone_answer_sessions WHERE id = ?`, s.ID)
	require.NoError(t, err)

	var n int
	require.NoError(t, db.QueryRowContext(ctx, `SELECT COUNT(*) FROM milestone_answers`).Scan(&n))
	assert.Zero(t, n)
}

func TestScoreRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := repository.NewScoreRepository(db)

	_, err := repo.MilestoneCollection(ctx, f.milestones[0])
	assert.ErrorIs(t, err, repository.ErrNotFound)

	mc := models.NewMilestoneAgeScoreCollection(f.milestones[0], baseTime)
	mc.ExpectedAge = 8
	mc.Scores[8] = scoring.AnswerCounts{C2: 1, C3: 1}
	mc.Scores[9] = scoring.AnswerCounts{C0: 4}
	require.NoError(t, repo.SaveMilestoneCollection(ctx, mc))

	mc.Scores[8] = scoring.AnswerCounts{C2: 1, C3: 2}
	mc.ExpectedAgeDelta = 3
	require.NoError(t, repo.SaveMilestoneCollection(ctx, mc))

	got, err := repo.MilestoneCollection(ctx, f.milestones[0])
	require.NoError(t, err)
	assert.Equal(t, 8, got.ExpectedAge)
	assert.Equal(t, 3, got.ExpectedAgeDelta)
	assert.Equal(t, scoring.AnswerCounts{C2: 1, C3: 2}, got.Scores[8])
	assert.Equal(t, scoring.AnswerCounts{C0: 4}, got.Scores[9])

	gc := models.NewMilestoneGroupAgeScoreCollection(f.groupID, baseTime)
	acc := gc.Scores[9]
	acc.Add(2.5)
	acc.Add(1.5)
	gc.Scores[9] = acc
	require.NoError(t, repo.SaveGroupCollection(ctx, gc))
	require.NoError(t, repo.SaveGroupCollection(ctx, gc))

	groups, err := repo.GroupCollections(ctx)
	require.NoError(t, err)
	require.Contains(t, groups, f.groupID)
	assert.Equal(t, acc, groups[f.groupID].Scores[9])

	require.NoError(t, repo.ResetScores(ctx))
	all, err := repo.MilestoneCollections(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, all[f.milestones[0]].Scores[8].N())

	group, err := repo.GroupCollection(ctx, f.groupID)
	require.NoError(t, err)
	assert.Equal(t, scoring.GroupAccumulator{}, group.Scores[9])
}

func TestScoreRepository_GroupSamples(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := repository.NewScoreRepository(db)

	first, err := repository.NewSessionRepository(db).Create(ctx, newSession(f, 1, 2))
	require.NoError(t, err)
	second, err := repository.NewSessionRepository(db).Create(ctx, newSession(f, 3))
	require.NoError(t, err)

	require.NoError(t, repo.SaveGroupSamples(ctx, nil))
	require.NoError(t, repo.SaveGroupSamples(ctx, []models.GroupSample{
		{SessionID: first.ID, GroupID: f.groupID, Score: 2.5},
		{SessionID: second.ID, GroupID: f.groupID, Score: 3},
	}))
	assert.Error(t, repo.SaveGroupSamples(ctx, []models.GroupSample{{SessionID: first.ID, GroupID: f.groupID, Score: 1}}),
		"stored samples are never rewritten")

	got, err := repo.GroupSamples(ctx, []int64{first.ID, 999})
	require.NoError(t, err)
	assert.Equal(t, map[int64]map[int64]float64{first.ID: {f.groupID: 2.5}}, got)

	require.NoError(t, repo.ResetScores(ctx))
	got, err = repo.GroupSamples(ctx, []int64{first.ID, second.ID})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	empty, err := repo.GroupSamples(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestStatisticsRunRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.NewStatisticsRunRepository(db)

	_, err := repo.Latest(ctx)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	for i, runID := range []string{"run-a", "run-b"} {
		_, err := repo.Create(ctx, models.StatisticsRun{
			RunID:        runID,
			Incremental:  i == 0,
			SessionsUsed: i + 1,
			StartedAt:    baseTime,
			FinishedAt:   baseTime.Add(time.Second),
			Summary:      "done",
		})
		require.NoError(t, err)
	}

	latest, err := repo.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "run-b", latest.RunID)
	assert.False(t, latest.Incremental)
	assert.Equal(t, 2, latest.SessionsUsed)
}

func TestRespondentRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	repo := repository.NewRespondentRepository(db)

	require.NoError(t, repo.Save(ctx, models.Respondent{ID: 1, Email: "a@example.com", ResearchGroupID: 5}))
	require.NoError(t, repo.Save(ctx, models.Respondent{ID: 2, Email: "qa-tester@testaccount.com"}))
	require.NoError(t, repo.Save(ctx, models.Respondent{ID: 3, Email: "b@example.com", ResearchGroupID: 5}))
	require.NoError(t, repo.Save(ctx, models.Respondent{ID: 3, Email: "b@example.com", ResearchGroupID: 6}))

	testers, err := repo.IDsWithEmailSuffix(ctx, "tester@testaccount.com")
	require.NoError(t, err)
	assert.Equal(t, []int64{2}, testers)

	group, err := repo.IDsInResearchGroup(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, group)
}

func TestResearchRepository(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := repository.NewResearchRepository(db)

	qid, err := repo.CreateQuestion(ctx, models.ChildQuestions, models.Question{Order: 1, AdditionalOption: "other"})
	require.NoError(t, err)
	require.NoError(t, repo.SaveAnswer(ctx, models.ChildQuestions, models.QuestionAnswer{
		OwnerID: f.childID, QuestionID: qid, Answer: "other", AdditionalAnswer: "twins",
	}))

	questions, err := repo.Questions(ctx, models.ChildQuestions)
	require.NoError(t, err)
	require.Len(t, questions, 1)

	answers, err := repo.Answers(ctx, models.ChildQuestions)
	require.NoError(t, err)
	require.Len(t, answers, 1)
	assert.Equal(t, "twins", answers[0].ResolvedAnswer(questions[0]))

	_, err = repo.Questions(ctx, models.QuestionKind("pets"))
	assert.Error(t, err)
}
