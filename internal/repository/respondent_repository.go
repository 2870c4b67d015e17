package repository

import (
	"context"
	"fmt"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/pkg/database"
)

// RespondentRepository reads the respondent records mirrored from the
// identity provider.
type RespondentRepository struct {
	db *database.DB
}

func NewRespondentRepository(db *database.DB) *RespondentRepository {
	return &RespondentRepository{db: db}
}

func (r *RespondentRepository) Save(ctx context.Context, resp models.Respondent) error {
	query := r.db.Rebind(`INSERT INTO respondents (id, email, research_group_id) VALUES (?, ?, ?)` +
		r.db.Dialect().Upsert([]string{"id"}, []string{"email", "research_group_id"}))
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, resp.ID, resp.Email, resp.ResearchGroupID); err != nil {
		return fmt.Errorf("upsert respondent: %w", err)
	}
	return nil
}

// IDsWithEmailSuffix returns respondents whose email ends with suffix.
func (r *RespondentRepository) IDsWithEmailSuffix(ctx context.Context, suffix string) ([]int64, error) {
	return r.ids(ctx, `SELECT id FROM respondents WHERE email LIKE ? ORDER BY id`, "%"+suffix)
}

func (r *RespondentRepository) IDsInResearchGroup(ctx context.Context, groupID int64) ([]int64, error) {
	return r.ids(ctx, `SELECT id FROM respondents WHERE research_group_id = ? ORDER BY id`, groupID)
}

func (r *RespondentRepository) ids(ctx context.Context, query string, args ...any) ([]int64, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query respondents: %w", err)
	}
	defer rows.Close()

	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan respondent row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate respondents: %w", err)
	}
	return ids, nil
}
