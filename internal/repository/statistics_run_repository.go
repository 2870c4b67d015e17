package repository

import (
	"context"
	"fmt"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/pkg/database"
)

type StatisticsRunRepository struct {
	db *database.DB
}

func NewStatisticsRunRepository(db *database.DB) *StatisticsRunRepository {
	return &StatisticsRunRepository{db: db}
}

func (r *StatisticsRunRepository) Create(ctx context.Context, run models.StatisticsRun) (int64, error) {
	id, err := r.db.InsertReturningID(ctx, `
		INSERT INTO statistics_runs (run_id, incremental, sessions_used, started_at, finished_at, summary)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.RunID, run.Incremental, run.SessionsUsed, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Summary)
	if err != nil {
		return 0, fmt.Errorf("insert statistics run: %w", err)
	}
	return id, nil
}

// Latest returns the most recent run, or ErrNotFound before the first one.
func (r *StatisticsRunRepository) Latest(ctx context.Context) (models.StatisticsRun, error) {
	var run models.StatisticsRun
	err := r.db.Conn(ctx).QueryRowContext(ctx, `
		SELECT id, run_id, incremental, sessions_used, started_at, finished_at, summary
		FROM statistics_runs
		ORDER BY id DESC
		LIMIT 1`).
		Scan(&run.ID, &run.RunID, &run.Incremental, &run.SessionsUsed, &run.StartedAt, &run.FinishedAt, &run.Summary)
	if err != nil {
		return models.StatisticsRun{}, fmt.Errorf("query latest statistics run: %w", notFound(err))
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	return run, nil
}
