package service

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/godilite/milestone-server/internal/repository/models"
)

const (
	dbTimeout    = 2 * time.Second
	statsTimeout = 10 * time.Minute
)

// MilestoneService runs the answer session state machine, the statistics
// update and the feedback classification.
type MilestoneService struct {
	store  Storage
	policy Policy
	logger *zap.Logger
	now    func() time.Time

	// sessions collapses concurrent get-or-create calls per respondent and child.
	sessions singleflight.Group
}

type Option func(*MilestoneService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *MilestoneService) { s.now = now }
}

// NewMilestoneService creates a new MilestoneService instance.
func NewMilestoneService(store Storage, policy Policy, logger *zap.Logger, opts ...Option) *MilestoneService {
	if err := store.validate(); err != nil {
		panic(err.Error())
	}
	if logger == nil {
		l, _ := zap.NewProduction()
		logger = l
	}
	s := &MilestoneService{
		store:  store,
		policy: policy,
		logger: logger.Named("milestones"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Policy returns the scoring rules in effect.
func (s *MilestoneService) Policy() Policy {
	return s.policy
}

func (s *MilestoneService) clock() time.Time {
	return s.now().UTC()
}

// testAccounts returns the test cohort as a set.
func (s *MilestoneService) testAccounts(ctx context.Context) (map[int64]bool, error) {
	ids, err := s.store.Cohort.TestAccountIDs(ctx)
	if err != nil {
		return nil, storageErr(err, nil)
	}
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// childAges resolves and memoizes the age of a session's child at the
// session's creation time.
type childAges struct {
	children ChildRepository
	cache    map[int64]models.Child
}

func newChildAges(children ChildRepository) *childAges {
	return &childAges{children: children, cache: map[int64]models.Child{}}
}

func (c *childAges) child(ctx context.Context, id int64) (models.Child, error) {
	if child, ok := c.cache[id]; ok {
		return child, nil
	}
	child, err := c.children.Get(ctx, id)
	if err != nil {
		return models.Child{}, storageErr(err, ErrChildNotFound)
	}
	c.cache[id] = child
	return child, nil
}

func (c *childAges) at(ctx context.Context, session models.AnswerSession) (int, error) {
	child, err := c.child(ctx, session.ChildID)
	if err != nil {
		return 0, err
	}
	return ageAt(child, session.CreatedAt), nil
}
