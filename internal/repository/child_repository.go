package repository

import (
	"context"
	"fmt"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/pkg/database"
)

type ChildRepository struct {
	db *database.DB
}

func NewChildRepository(db *database.DB) *ChildRepository {
	return &ChildRepository{db: db}
}

func (r *ChildRepository) Get(ctx context.Context, id int64) (models.Child, error) {
	var c models.Child
	err := r.db.Conn(ctx).QueryRowContext(ctx, r.db.Rebind(`
		SELECT id, user_id, name, birth_year, birth_month
		FROM children WHERE id = ?`), id).
		Scan(&c.ID, &c.UserID, &c.Name, &c.BirthYear, &c.BirthMonth)
	if err != nil {
		return models.Child{}, fmt.Errorf("query child %d: %w", id, notFound(err))
	}
	return c, nil
}

func (r *ChildRepository) Create(ctx context.Context, c models.Child) (int64, error) {
	id, err := r.db.InsertReturningID(ctx, `
		INSERT INTO children (user_id, name, birth_year, birth_month)
		VALUES (?, ?, ?, ?)`, c.UserID, c.Name, c.BirthYear, c.BirthMonth)
	if err != nil {
		return 0, fmt.Errorf("insert child: %w", err)
	}
	return id, nil
}
