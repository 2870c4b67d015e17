package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/godilite/milestone-server/pkg/database"
)

// schema lists the DDL in dependency order. %[1]s is the serial primary key
// and %[2]s the timestamp column type of the dialect.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS respondents (
		id BIGINT PRIMARY KEY,
		email VARCHAR(320) NOT NULL DEFAULT '',
		research_group_id BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS children (
		id %[1]s,
		user_id BIGINT NOT NULL,
		name VARCHAR(255) NOT NULL DEFAULT '',
		birth_year INTEGER NOT NULL,
		birth_month INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS milestone_groups (
		id %[1]s,
		sort_order INTEGER NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS milestones (
		id %[1]s,
		group_id BIGINT NOT NULL REFERENCES milestone_groups(id) ON DELETE CASCADE,
		sort_order INTEGER NOT NULL DEFAULT 0,
		expected_age_months INTEGER NOT NULL DEFAULT 72,
		expected_age_delta INTEGER NOT NULL DEFAULT 72,
		relevant_age_min INTEGER NOT NULL DEFAULT 0,
		relevant_age_max INTEGER NOT NULL DEFAULT 72
	)`,
	`CREATE TABLE IF NOT EXISTS milestone_answer_sessions (
		id %[1]s,
		child_id BIGINT NOT NULL REFERENCES children(id) ON DELETE CASCADE,
		user_id BIGINT NOT NULL,
		created_at %[2]s NOT NULL,
		updated_at %[2]s NOT NULL,
		expired BOOLEAN NOT NULL DEFAULT FALSE,
		completed BOOLEAN NOT NULL DEFAULT FALSE,
		included_in_statistics BOOLEAN NOT NULL DEFAULT FALSE,
		suspicious_state VARCHAR(32) NOT NULL DEFAULT 'unknown'
	)`,
	`CREATE INDEX idx_sessions_user_child ON milestone_answer_sessions (user_id, child_id)`,
	`CREATE TABLE IF NOT EXISTS milestone_answers (
		answer_session_id BIGINT NOT NULL REFERENCES milestone_answer_sessions(id) ON DELETE CASCADE,
		milestone_id BIGINT NOT NULL REFERENCES milestones(id) ON DELETE CASCADE,
		milestone_group_id BIGINT NOT NULL,
		answer INTEGER NOT NULL DEFAULT -1,
		PRIMARY KEY (answer_session_id, milestone_id)
	)`,
	`CREATE TABLE IF NOT EXISTS milestone_age_score_collections (
		milestone_id BIGINT PRIMARY KEY REFERENCES milestones(id) ON DELETE CASCADE,
		expected_age INTEGER NOT NULL DEFAULT 0,
		expected_age_delta INTEGER NOT NULL DEFAULT 0,
		created_at %[2]s NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS milestone_age_scores (
		milestone_id BIGINT NOT NULL REFERENCES milestone_age_score_collections(milestone_id) ON DELETE CASCADE,
		age INTEGER NOT NULL,
		c0 INTEGER NOT NULL DEFAULT 0,
		c1 INTEGER NOT NULL DEFAULT 0,
		c2 INTEGER NOT NULL DEFAULT 0,
		c3 INTEGER NOT NULL DEFAULT 0,
		PRIMARY KEY (milestone_id, age)
	)`,
	`CREATE TABLE IF NOT EXISTS milestone_group_age_score_collections (
		milestone_group_id BIGINT PRIMARY KEY REFERENCES milestone_groups(id) ON DELETE CASCADE,
		created_at %[2]s NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS milestone_group_age_scores (
		milestone_group_id BIGINT NOT NULL REFERENCES milestone_group_age_score_collections(milestone_group_id) ON DELETE CASCADE,
		age INTEGER NOT NULL,
		count INTEGER NOT NULL DEFAULT 0,
		sum_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		sum_squared_score DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (milestone_group_id, age)
	)`,
	`CREATE TABLE IF NOT EXISTS milestone_group_session_scores (
		answer_session_id BIGINT NOT NULL REFERENCES milestone_answer_sessions(id) ON DELETE CASCADE,
		milestone_group_id BIGINT NOT NULL REFERENCES milestone_groups(id) ON DELETE CASCADE,
		score DOUBLE PRECISION NOT NULL,
		PRIMARY KEY (answer_session_id, milestone_group_id)
	)`,
	`CREATE TABLE IF NOT EXISTS statistics_runs (
		id %[1]s,
		run_id VARCHAR(36) NOT NULL,
		incremental BOOLEAN NOT NULL,
		sessions_used INTEGER NOT NULL DEFAULT 0,
		started_at %[2]s NOT NULL,
		finished_at %[2]s NOT NULL,
		summary TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS user_questions (
		id %[1]s,
		sort_order INTEGER NOT NULL DEFAULT 0,
		additional_option VARCHAR(255) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS child_questions (
		id %[1]s,
		sort_order INTEGER NOT NULL DEFAULT 0,
		additional_option VARCHAR(255) NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS user_answers (
		owner_id BIGINT NOT NULL,
		question_id BIGINT NOT NULL REFERENCES user_questions(id) ON DELETE CASCADE,
		answer TEXT NOT NULL,
		additional_answer TEXT NOT NULL,
		PRIMARY KEY (owner_id, question_id)
	)`,
	`CREATE TABLE IF NOT EXISTS child_answers (
		owner_id BIGINT NOT NULL REFERENCES children(id) ON DELETE CASCADE,
		question_id BIGINT NOT NULL REFERENCES child_questions(id) ON DELETE CASCADE,
		answer TEXT NOT NULL,
		additional_answer TEXT NOT NULL,
		PRIMARY KEY (owner_id, question_id)
	)`,
}

// Migrate creates the tables that do not exist yet.
func Migrate(ctx context.Context, db *database.DB) error {
	d := db.Dialect()
	return db.WithinTx(ctx, func(ctx context.Context) error {
		for _, stmt := range schema {
			if strings.HasPrefix(stmt, "CREATE INDEX") {
				stmt = createIndexIfNotExists(d.Name(), stmt)
				if stmt == "" {
					continue
				}
			}
			if strings.Contains(stmt, "%[") {
				stmt = fmt.Sprintf(stmt, d.SerialPrimaryKey(), d.TimestampType())
			}
			if _, err := db.Conn(ctx).ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}
		return nil
	})
}

// createIndexIfNotExists adds IF NOT EXISTS where the dialect supports it.
// MySQL lacks the clause and already indexes the child_id foreign key, so the
// statement is skipped there.
func createIndexIfNotExists(dialect, stmt string) string {
	if dialect == "mysql" {
		return ""
	}
	return strings.Replace(stmt, "CREATE INDEX", "CREATE INDEX IF NOT EXISTS", 1)
}
