package repository

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
	"github.com/godilite/milestone-server/pkg/database"
)

// ScoreRepository persists the age-bucketed statistics. Collections are
// created on first use and only ever updated afterwards.
type ScoreRepository struct {
	db *database.DB
}

func NewScoreRepository(db *database.DB) *ScoreRepository {
	return &ScoreRepository{db: db}
}

// MilestoneCollections loads every milestone collection keyed by milestone.
func (r *ScoreRepository) MilestoneCollections(ctx context.Context) (map[int64]models.MilestoneAgeScoreCollection, error) {
	return r.milestoneCollections(ctx, "", nil)
}

func (r *ScoreRepository) MilestoneCollection(ctx context.Context, milestoneID int64) (models.MilestoneAgeScoreCollection, error) {
	all, err := r.milestoneCollections(ctx, " WHERE milestone_id = ?", []any{milestoneID})
	if err != nil {
		return models.MilestoneAgeScoreCollection{}, err
	}
	c, ok := all[milestoneID]
	if !ok {
		return models.MilestoneAgeScoreCollection{}, ErrNotFound
	}
	return c, nil
}

func (r *ScoreRepository) milestoneCollections(ctx context.Context, where string, args []any) (map[int64]models.MilestoneAgeScoreCollection, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, r.db.Rebind(`
		SELECT milestone_id, expected_age, expected_age_delta, created_at
		FROM milestone_age_score_collections`+where), args...)
	if err != nil {
		return nil, fmt.Errorf("query milestone score collections: %w", err)
	}
	out := map[int64]models.MilestoneAgeScoreCollection{}
	for rows.Next() {
		var c models.MilestoneAgeScoreCollection
		if err := rows.Scan(&c.MilestoneID, &c.ExpectedAge, &c.ExpectedAgeDelta, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan milestone score collection row: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.Scores = map[int]scoring.AnswerCounts{}
		out[c.MilestoneID] = c
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate milestone score collections: %w", err)
	}

	rows, err = r.db.Conn(ctx).QueryContext(ctx, r.db.Rebind(`
		SELECT milestone_id, age, c0, c1, c2, c3
		FROM milestone_age_scores`+where), args...)
	if err != nil {
		return nil, fmt.Errorf("query milestone age scores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var age int
		var counts scoring.AnswerCounts
		if err := rows.Scan(&id, &age, &counts.C0, &counts.C1, &counts.C2, &counts.C3); err != nil {
			return nil, fmt.Errorf("scan milestone age score row: %w", err)
		}
		if c, ok := out[id]; ok {
			c.Scores[age] = counts
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestone age scores: %w", err)
	}
	return out, nil
}

// SaveMilestoneCollection upserts the collection row and every age bucket it
// carries.
func (r *ScoreRepository) SaveMilestoneCollection(ctx context.Context, c models.MilestoneAgeScoreCollection) error {
	d := r.db.Dialect()
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		_, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`
			INSERT INTO milestone_age_score_collections (milestone_id, expected_age, expected_age_delta, created_at)
			VALUES (?, ?, ?, ?)`+d.Upsert([]string{"milestone_id"}, []string{"expected_age", "expected_age_delta"})),
			c.MilestoneID, c.ExpectedAge, c.ExpectedAgeDelta, c.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("upsert milestone score collection: %w", err)
		}

		insert := r.db.Rebind(`
			INSERT INTO milestone_age_scores (milestone_id, age, c0, c1, c2, c3)
			VALUES (?, ?, ?, ?, ?, ?)` + d.Upsert([]string{"milestone_id", "age"}, []string{"c0", "c1", "c2", "c3"}))
		for _, age := range slices.Sorted(maps.Keys(c.Scores)) {
			s := c.Scores[age]
			if _, err := r.db.Conn(ctx).ExecContext(ctx, insert, c.MilestoneID, age, s.C0, s.C1, s.C2, s.C3); err != nil {
				return fmt.Errorf("upsert milestone age score: %w", err)
			}
		}
		return nil
	})
}

func (r *ScoreRepository) GroupCollections(ctx context.Context) (map[int64]models.MilestoneGroupAgeScoreCollection, error) {
	return r.groupCollections(ctx, "", nil)
}

func (r *ScoreRepository) GroupCollection(ctx context.Context, groupID int64) (models.MilestoneGroupAgeScoreCollection, error) {
	all, err := r.groupCollections(ctx, " WHERE milestone_group_id = ?", []any{groupID})
	if err != nil {
		return models.MilestoneGroupAgeScoreCollection{}, err
	}
	c, ok := all[groupID]
	if !ok {
		return models.MilestoneGroupAgeScoreCollection{}, ErrNotFound
	}
	return c, nil
}

func (r *ScoreRepository) groupCollections(ctx context.Context, where string, args []any) (map[int64]models.MilestoneGroupAgeScoreCollection, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, r.db.Rebind(`
		SELECT milestone_group_id, created_at
		FROM milestone_group_age_score_collections`+where), args...)
	if err != nil {
		return nil, fmt.Errorf("query group score collections: %w", err)
	}
	out := map[int64]models.MilestoneGroupAgeScoreCollection{}
	for rows.Next() {
		var c models.MilestoneGroupAgeScoreCollection
		if err := rows.Scan(&c.GroupID, &c.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan group score collection row: %w", err)
		}
		c.CreatedAt = c.CreatedAt.UTC()
		c.Scores = map[int]scoring.GroupAccumulator{}
		out[c.GroupID] = c
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate group score collections: %w", err)
	}

	rows, err = r.db.Conn(ctx).QueryContext(ctx, r.db.Rebind(`
		SELECT milestone_group_id, age, count, sum_score, sum_squared_score
		FROM milestone_group_age_scores`+where), args...)
	if err != nil {
		return nil, fmt.Errorf("query group age scores: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id int64
		var age int
		var acc scoring.GroupAccumulator
		if err := rows.Scan(&id, &age, &acc.Count, &acc.SumScore, &acc.SumSquaredScore); err != nil {
			return nil, fmt.Errorf("scan group age score row: %w", err)
		}
		if c, ok := out[id]; ok {
			c.Scores[age] = acc
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate group age scores: %w", err)
	}
	return out, nil
}

func (r *ScoreRepository) SaveGroupCollection(ctx context.Context, c models.MilestoneGroupAgeScoreCollection) error {
	d := r.db.Dialect()
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		_, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`
			INSERT INTO milestone_group_age_score_collections (milestone_group_id, created_at)
			VALUES (?, ?)`+d.Upsert([]string{"milestone_group_id"}, []string{"milestone_group_id"})),
			c.GroupID, c.CreatedAt.UTC())
		if err != nil {
			return fmt.Errorf("upsert group score collection: %w", err)
		}

		insert := r.db.Rebind(`
			INSERT INTO milestone_group_age_scores (milestone_group_id, age, count, sum_score, sum_squared_score)
			VALUES (?, ?, ?, ?, ?)` + d.Upsert([]string{"milestone_group_id", "age"}, []string{"count", "sum_score", "sum_squared_score"}))
		for _, age := range slices.Sorted(maps.Keys(c.Scores)) {
			s := c.Scores[age]
			if _, err := r.db.Conn(ctx).ExecContext(ctx, insert, c.GroupID, age, s.Count, s.SumScore, s.SumSquaredScore); err != nil {
				return fmt.Errorf("upsert group age score: %w", err)
			}
		}
		return nil
	})
}

// GroupSamples loads the stored group samples of the given sessions, keyed
// by session and then by group.
func (r *ScoreRepository) GroupSamples(ctx context.Context, sessionIDs []int64) (map[int64]map[int64]float64, error) {
	out := map[int64]map[int64]float64{}
	for _, part := range chunk(sessionIDs, inListChunk) {
		rows, err := r.db.Conn(ctx).QueryContext(ctx, r.db.Rebind(`
			SELECT answer_session_id, milestone_group_id, score
			FROM milestone_group_session_scores
			WHERE answer_session_id IN (`+placeholders(len(part))+`)`), int64Args(part)...)
		if err != nil {
			return nil, fmt.Errorf("query group samples: %w", err)
		}
		for rows.Next() {
			var sessionID, groupID int64
			var score float64
			if err := rows.Scan(&sessionID, &groupID, &score); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan group sample row: %w", err)
			}
			if out[sessionID] == nil {
				out[sessionID] = map[int64]float64{}
			}
			out[sessionID][groupID] = score
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterate group samples: %w", err)
		}
	}
	return out, nil
}

// SaveGroupSamples stores the samples of sessions counted for the first
// time. Stored samples are never rewritten.
func (r *ScoreRepository) SaveGroupSamples(ctx context.Context, samples []models.GroupSample) error {
	if len(samples) == 0 {
		return nil
	}
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		insert := r.db.Rebind(`
			INSERT INTO milestone_group_session_scores (answer_session_id, milestone_group_id, score)
			VALUES (?, ?, ?)`)
		for _, s := range samples {
			if _, err := r.db.Conn(ctx).ExecContext(ctx, insert, s.SessionID, s.GroupID, s.Score); err != nil {
				return fmt.Errorf("insert group sample: %w", err)
			}
		}
		return nil
	})
}

// ResetScores zeroes every stored bucket ahead of a full recomputation.
// Group samples survive so the rebuild folds the same values.
func (r *ScoreRepository) ResetScores(ctx context.Context) error {
	return r.db.WithinTx(ctx, func(ctx context.Context) error {
		if _, err := r.db.Conn(ctx).ExecContext(ctx, `UPDATE milestone_age_scores SET c0 = 0, c1 = 0, c2 = 0, c3 = 0`); err != nil {
			return fmt.Errorf("reset milestone age scores: %w", err)
		}
		if _, err := r.db.Conn(ctx).ExecContext(ctx, `UPDATE milestone_group_age_scores SET count = 0, sum_score = 0, sum_squared_score = 0`); err != nil {
			return fmt.Errorf("reset group age scores: %w", err)
		}
		return nil
	})
}
