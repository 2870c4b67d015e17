package repository

import (
	"context"
	"fmt"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/pkg/database"
)

// ResearchRepository reads the ancillary user and child questionnaires that
// are joined into the research export.
type ResearchRepository struct {
	db *database.DB
}

func NewResearchRepository(db *database.DB) *ResearchRepository {
	return &ResearchRepository{db: db}
}

func questionTables(kind models.QuestionKind) (questions, answers string, err error) {
	switch kind {
	case models.UserQuestions:
		return "user_questions", "user_answers", nil
	case models.ChildQuestions:
		return "child_questions", "child_answers", nil
	default:
		return "", "", fmt.Errorf("unknown question kind %q", kind)
	}
}

func (r *ResearchRepository) CreateQuestion(ctx context.Context, kind models.QuestionKind, q models.Question) (int64, error) {
	table, _, err := questionTables(kind)
	if err != nil {
		return 0, err
	}
	id, err := r.db.InsertReturningID(ctx,
		`INSERT INTO `+table+` (sort_order, additional_option) VALUES (?, ?)`, q.Order, q.AdditionalOption)
	if err != nil {
		return 0, fmt.Errorf("insert %s question: %w", kind, err)
	}
	return id, nil
}

func (r *ResearchRepository) SaveAnswer(ctx context.Context, kind models.QuestionKind, a models.QuestionAnswer) error {
	_, table, err := questionTables(kind)
	if err != nil {
		return err
	}
	query := r.db.Rebind(`INSERT INTO ` + table + ` (owner_id, question_id, answer, additional_answer) VALUES (?, ?, ?, ?)` +
		r.db.Dialect().Upsert([]string{"owner_id", "question_id"}, []string{"answer", "additional_answer"}))
	if _, err := r.db.Conn(ctx).ExecContext(ctx, query, a.OwnerID, a.QuestionID, a.Answer, a.AdditionalAnswer); err != nil {
		return fmt.Errorf("upsert %s answer: %w", kind, err)
	}
	return nil
}

// Questions returns the questions of kind ordered by id.
func (r *ResearchRepository) Questions(ctx context.Context, kind models.QuestionKind) ([]models.Question, error) {
	table, _, err := questionTables(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `SELECT id, sort_order, additional_option FROM `+table+` ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query %s questions: %w", kind, err)
	}
	defer rows.Close()

	var out []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.ID, &q.Order, &q.AdditionalOption); err != nil {
			return nil, fmt.Errorf("scan %s question row: %w", kind, err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s questions: %w", kind, err)
	}
	return out, nil
}

func (r *ResearchRepository) Answers(ctx context.Context, kind models.QuestionKind) ([]models.QuestionAnswer, error) {
	_, table, err := questionTables(kind)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT owner_id, question_id, answer, additional_answer FROM `+table+` ORDER BY owner_id, question_id`)
	if err != nil {
		return nil, fmt.Errorf("query %s answers: %w", kind, err)
	}
	defer rows.Close()

	var out []models.QuestionAnswer
	for rows.Next() {
		var a models.QuestionAnswer
		if err := rows.Scan(&a.OwnerID, &a.QuestionID, &a.Answer, &a.AdditionalAnswer); err != nil {
			return nil, fmt.Errorf("scan %s answer row: %w", kind, err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s answers: %w", kind, err)
	}
	return out, nil
}
