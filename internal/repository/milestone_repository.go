package repository

import (
	"context"
	"fmt"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/internal/scoring"
	"github.com/godilite/milestone-server/pkg/database"
)

const milestoneColumns = `m.id, m.group_id, m.sort_order, m.expected_age_months,
	m.expected_age_delta, m.relevant_age_min, m.relevant_age_max`

type MilestoneRepository struct {
	db *database.DB
}

func NewMilestoneRepository(db *database.DB) *MilestoneRepository {
	return &MilestoneRepository{db: db}
}

func scanMilestone(row rowScanner) (models.Milestone, error) {
	var m models.Milestone
	err := row.Scan(&m.ID, &m.GroupID, &m.Order, &m.ExpectedAgeMonths,
		&m.ExpectedAgeDelta, &m.RelevantAgeMin, &m.RelevantAgeMax)
	return m, err
}

func (r *MilestoneRepository) CreateGroup(ctx context.Context, g models.MilestoneGroup) (int64, error) {
	id, err := r.db.InsertReturningID(ctx, `INSERT INTO milestone_groups (sort_order) VALUES (?)`, g.Order)
	if err != nil {
		return 0, fmt.Errorf("insert milestone group: %w", err)
	}
	return id, nil
}

// CreateMilestone stores a milestone. A zero window is replaced by one that
// covers every age up to maxAge.
func (r *MilestoneRepository) CreateMilestone(ctx context.Context, m models.Milestone, maxAge int) (int64, error) {
	if m.RelevantAgeMax == 0 && m.RelevantAgeMin == 0 && m.ExpectedAgeMonths == 0 {
		rel := scoring.DefaultRelevance(maxAge)
		m.ExpectedAgeMonths, m.ExpectedAgeDelta = rel.ExpectedAge, rel.ExpectedAgeDelta
		m.RelevantAgeMin, m.RelevantAgeMax = rel.MinAge, rel.MaxAge
	}
	id, err := r.db.InsertReturningID(ctx, `
		INSERT INTO milestones (group_id, sort_order, expected_age_months, expected_age_delta, relevant_age_min, relevant_age_max)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.GroupID, m.Order, m.ExpectedAgeMonths, m.ExpectedAgeDelta, m.RelevantAgeMin, m.RelevantAgeMax)
	if err != nil {
		return 0, fmt.Errorf("insert milestone: %w", err)
	}
	return id, nil
}

func (r *MilestoneRepository) ListGroups(ctx context.Context) ([]models.MilestoneGroup, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `SELECT id, sort_order FROM milestone_groups ORDER BY sort_order, id`)
	if err != nil {
		return nil, fmt.Errorf("query milestone groups: %w", err)
	}
	defer rows.Close()

	var groups []models.MilestoneGroup
	for rows.Next() {
		var g models.MilestoneGroup
		if err := rows.Scan(&g.ID, &g.Order); err != nil {
			return nil, fmt.Errorf("scan milestone group row: %w", err)
		}
		groups = append(groups, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestone groups: %w", err)
	}
	return groups, nil
}

// ListMilestones returns every milestone in group and display order.
func (r *MilestoneRepository) ListMilestones(ctx context.Context) ([]models.Milestone, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		SELECT `+milestoneColumns+`
		FROM milestones m
		JOIN milestone_groups g ON g.id = m.group_id
		ORDER BY g.sort_order, g.id, m.sort_order, m.id`)
	if err != nil {
		return nil, fmt.Errorf("query milestones: %w", err)
	}
	defer rows.Close()

	var milestones []models.Milestone
	for rows.Next() {
		m, err := scanMilestone(rows)
		if err != nil {
			return nil, fmt.Errorf("scan milestone row: %w", err)
		}
		milestones = append(milestones, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate milestones: %w", err)
	}
	return milestones, nil
}

func (r *MilestoneRepository) GetMilestone(ctx context.Context, id int64) (models.Milestone, error) {
	row := r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`SELECT `+milestoneColumns+` FROM milestones m WHERE m.id = ?`), id)
	m, err := scanMilestone(row)
	if err != nil {
		return models.Milestone{}, fmt.Errorf("query milestone %d: %w", id, notFound(err))
	}
	return m, nil
}

// UpdateRelevance stores the estimated expected age and window.
func (r *MilestoneRepository) UpdateRelevance(ctx context.Context, id int64, rel scoring.Relevance) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(`
		UPDATE milestones
		SET expected_age_months = ?, expected_age_delta = ?, relevant_age_min = ?, relevant_age_max = ?
		WHERE id = ?`), rel.ExpectedAge, rel.ExpectedAgeDelta, rel.MinAge, rel.MaxAge, id)
	if err != nil {
		return fmt.Errorf("update milestone relevance: %w", err)
	}
	return nil
}
