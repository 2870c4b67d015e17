package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/godilite/milestone-server/internal/repository"
	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
	"github.com/godilite/milestone-server/internal/service"
	"github.com/godilite/milestone-server/pkg/database"
)

const testerSuffix = "tester@testaccount.com"

var baseTime = time.Date(2025, 10, 18, 10, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type env struct {
	ctx         context.Context
	db          *database.DB
	svc         *service.MilestoneService
	clock       *testClock
	children    *repository.ChildRepository
	milestones  *repository.MilestoneRepository
	sessions    *repository.SessionRepository
	scores      *repository.ScoreRepository
	respondents *repository.RespondentRepository
	research    *repository.ResearchRepository
}

func newEnv(t *testing.T) *env {
	t.Helper()
	return newEnvWithPolicy(t, service.DefaultPolicy())
}

func newEnvWithPolicy(t *testing.T, policy service.Policy) *env {
	t.Helper()

	db, err := database.New(
		database.WithDriver("sqlite3"),
		database.WithDataSource(":memory:"),
		database.WithRetry(1, 0),
	)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, repository.Migrate(ctx, db))

	e := &env{
		ctx:         ctx,
		db:          db,
		clock:       &testClock{now: baseTime},
		children:    repository.NewChildRepository(db),
		milestones:  repository.NewMilestoneRepository(db),
		sessions:    repository.NewSessionRepository(db),
		scores:      repository.NewScoreRepository(db),
		respondents: repository.NewRespondentRepository(db),
		research:    repository.NewResearchRepository(db),
	}
	e.svc = service.NewMilestoneService(service.Storage{
		Tx:         db,
		Children:   e.children,
		Milestones: e.milestones,
		Sessions:   e.sessions,
		Scores:     e.scores,
		Runs:       repository.NewStatisticsRunRepository(db),
		Research:   e.research,
		Cohort:     service.EmailSuffixCohort{Respondents: e.respondents, Suffix: testerSuffix},
	}, policy, zap.NewNop(), service.WithClock(e.clock.Now))
	return e
}

func (e *env) group(t *testing.T, order int) int64 {
	t.Helper()
	id, err := e.milestones.CreateGroup(e.ctx, models.MilestoneGroup{Order: order})
	require.NoError(t, err)
	return id
}

func (e *env) milestone(t *testing.T, groupID int64, window ...int) int64 {
	t.Helper()
	id, err := e.milestones.CreateMilestone(e.ctx, models.Milestone{GroupID: groupID}, scoring.DefaultMaxAgeMonths)
	require.NoError(t, err)
	if len(window) == 2 {
		e.setWindow(t, id, window[0], window[1])
	}
	return id
}

func (e *env) setWindow(t *testing.T, milestoneID int64, lo, hi int) {
	t.Helper()
	require.NoError(t, e.milestones.UpdateRelevance(e.ctx, milestoneID, scoring.Relevance{
		ExpectedAge: lo, ExpectedAgeDelta: hi - lo, MinAge: lo, MaxAge: hi,
	}))
}

func (e *env) respondent(t *testing.T, id int64, email string, researchGroup int64) {
	t.Helper()
	require.NoError(t, e.respondents.Save(e.ctx, models.Respondent{ID: id, Email: email, ResearchGroupID: researchGroup}))
}

// childAged creates a child that is ageMonths old at the given instant.
func (e *env) childAged(t *testing.T, userID int64, ageMonths int, at time.Time) int64 {
	t.Helper()
	birth := at.AddDate(0, -ageMonths, 0)
	id, err := e.children.Create(e.ctx, models.Child{UserID: userID, BirthYear: birth.Year(), BirthMonth: int(birth.Month())})
	require.NoError(t, err)
	return id
}

type answerSpec struct {
	milestone int64
	group     int64
	answer    int
}

// completedSession stores a completed session directly.
func (e *env) completedSession(t *testing.T, userID, childID int64, created time.Time, state models.SuspiciousState, answers ...answerSpec) models.AnswerSession {
	t.Helper()
	s := models.AnswerSession{
		ChildID:         childID,
		UserID:          userID,
		CreatedAt:       created,
		UpdatedAt:       created,
		SuspiciousState: state,
		Answers:         map[int64]models.MilestoneAnswer{},
	}
	complete := true
	for _, a := range answers {
		s.Answers[a.milestone] = models.MilestoneAnswer{MilestoneGroupID: a.group, Answer: a.answer}
		if a.answer < 0 {
			complete = false
		}
	}
	s.Completed = complete
	return e.store(t, s)
}

func (e *env) store(t *testing.T, s models.AnswerSession) models.AnswerSession {
	t.Helper()
	stored, err := e.sessions.Create(e.ctx, s)
	require.NoError(t, err)
	return stored
}
