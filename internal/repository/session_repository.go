package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/godilite/milestone-server/internal/repository/models"
	"github.com/godilite/milestone-server/pkg/database"
)

const (
	sessionColumns = `s.id, s.child_id, s.user_id, s.created_at, s.updated_at,
		s.expired, s.completed, s.included_in_statistics, s.suspicious_state`

	inListChunk = 500
)

type SessionRepository struct {
	db *database.DB
}

func NewSessionRepository(db *database.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row rowScanner) (models.AnswerSession, error) {
	var s models.AnswerSession
	var state string
	if err := row.Scan(&s.ID, &s.ChildID, &s.UserID, &s.CreatedAt, &s.UpdatedAt,
		&s.Expired, &s.Completed, &s.IncludedInStatistics, &state); err != nil {
		return models.AnswerSession{}, err
	}
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
	s.SuspiciousState = models.SuspiciousState(state)
	s.Answers = map[int64]models.MilestoneAnswer{}
	return s, nil
}

// selectSessions runs a session query whose text follows the FROM clause and
// attaches the answers of every returned session.
func (r *SessionRepository) selectSessions(ctx context.Context, tail string, args ...any) ([]models.AnswerSession, error) {
	query := r.db.Rebind("SELECT " + sessionColumns + " FROM milestone_answer_sessions s " + tail)

	rows, err := r.db.Conn(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []models.AnswerSession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sessions = append(sessions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	rows.Close()

	if err := r.attachAnswers(ctx, sessions); err != nil {
		return nil, err
	}
	return sessions, nil
}

func (r *SessionRepository) attachAnswers(ctx context.Context, sessions []models.AnswerSession) error {
	if len(sessions) == 0 {
		return nil
	}
	index := make(map[int64]int, len(sessions))
	ids := make([]int64, len(sessions))
	for i, s := range sessions {
		index[s.ID] = i
		ids[i] = s.ID
	}

	for _, part := range chunk(ids, inListChunk) {
		query := r.db.Rebind(`
			SELECT answer_session_id, milestone_id, milestone_group_id, answer
			FROM milestone_answers
			WHERE answer_session_id IN (` + placeholders(len(part)) + `)`)

		rows, err := r.db.Conn(ctx).QueryContext(ctx, query, int64Args(part)...)
		if err != nil {
			return fmt.Errorf("query milestone answers: %w", err)
		}
		for rows.Next() {
			var a models.MilestoneAnswer
			if err := rows.Scan(&a.SessionID, &a.MilestoneID, &a.MilestoneGroupID, &a.Answer); err != nil {
				rows.Close()
				return fmt.Errorf("scan milestone answer row: %w", err)
			}
			sessions[index[a.SessionID]].Answers[a.MilestoneID] = a
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return fmt.Errorf("iterate milestone answers: %w", err)
		}
	}
	return nil
}

func (r *SessionRepository) first(ctx context.Context, tail string, args ...any) (models.AnswerSession, error) {
	sessions, err := r.selectSessions(ctx, tail, args...)
	if err != nil {
		return models.AnswerSession{}, err
	}
	if len(sessions) == 0 {
		return models.AnswerSession{}, ErrNotFound
	}
	return sessions[0], nil
}

// Get loads a session and its answers.
func (r *SessionRepository) Get(ctx context.Context, id int64) (models.AnswerSession, error) {
	return r.first(ctx, "WHERE s.id = ?", id)
}

// GetForUpdate loads a session and locks its row until the surrounding
// transaction ends, where the dialect supports row locks.
func (r *SessionRepository) GetForUpdate(ctx context.Context, id int64) (models.AnswerSession, error) {
	return r.first(ctx, "WHERE s.id = ?"+r.db.Dialect().ForUpdate(), id)
}

// LatestOpen returns the newest session of the pair that is not flagged
// expired, locking it where the dialect supports row locks.
func (r *SessionRepository) LatestOpen(ctx context.Context, userID, childID int64) (models.AnswerSession, error) {
	return r.first(ctx, `
		WHERE s.user_id = ? AND s.child_id = ? AND s.expired = FALSE
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT 1`+r.db.Dialect().ForUpdate(), userID, childID)
}

// LatestCompleted returns the newest completed session of the pair.
func (r *SessionRepository) LatestCompleted(ctx context.Context, userID, childID int64) (models.AnswerSession, error) {
	return r.first(ctx, `
		WHERE s.user_id = ? AND s.child_id = ? AND s.completed = TRUE
		ORDER BY s.created_at DESC, s.id DESC
		LIMIT 1`, userID, childID)
}

// List returns the sessions matching filter, oldest first.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.AnswerSession, error) {
	conds := []string{"1 = 1"}
	var args []any
	if filter.ChildID != 0 {
		conds = append(conds, "s.child_id = ?")
		args = append(args, filter.ChildID)
	}
	if filter.UserID != 0 {
		conds = append(conds, "s.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.CompletedOnly {
		conds = append(conds, "s.completed = TRUE")
	}
	if filter.ExcludeIncluded {
		conds = append(conds, "s.included_in_statistics = FALSE")
	}
	if filter.UserIDs != nil {
		if len(filter.UserIDs) == 0 {
			return nil, nil
		}
		conds = append(conds, "s.user_id IN ("+placeholders(len(filter.UserIDs))+")")
		args = append(args, int64Args(filter.UserIDs)...)
	}
	return r.selectSessions(ctx, "WHERE "+strings.Join(conds, " AND ")+" ORDER BY s.created_at, s.id", args...)
}

// Create stores a session together with its seeded answers.
func (r *SessionRepository) Create(ctx context.Context, s models.AnswerSession) (models.AnswerSession, error) {
	if s.SuspiciousState == "" {
		s.SuspiciousState = models.SuspiciousUnknown
	}
	err := r.db.WithinTx(ctx, func(ctx context.Context) error {
		id, err := r.db.InsertReturningID(ctx, `
			INSERT INTO milestone_answer_sessions
				(child_id, user_id, created_at, updated_at, expired, completed, included_in_statistics, suspicious_state)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			s.ChildID, s.UserID, s.CreatedAt.UTC(), s.UpdatedAt.UTC(),
			s.Expired, s.Completed, s.IncludedInStatistics, string(s.SuspiciousState))
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
		s.ID = id

		insert := r.db.Rebind(`
			INSERT INTO milestone_answers (answer_session_id, milestone_id, milestone_group_id, answer)
			VALUES (?, ?, ?, ?)`)
		answers := make(map[int64]models.MilestoneAnswer, len(s.Answers))
		for milestoneID, a := range s.Answers {
			a.SessionID = id
			a.MilestoneID = milestoneID
			if _, err := r.db.Conn(ctx).ExecContext(ctx, insert, id, milestoneID, a.MilestoneGroupID, a.Answer); err != nil {
				return fmt.Errorf("insert milestone answer: %w", err)
			}
			answers[milestoneID] = a
		}
		s.Answers = answers
		return nil
	})
	if err != nil {
		return models.AnswerSession{}, err
	}
	return s, nil
}

// ExpireIfOpen flips the expired flag and reports whether this call did it.
func (r *SessionRepository) ExpireIfOpen(ctx context.Context, id int64, now time.Time) (bool, error) {
	return r.execAffected(ctx, `
		UPDATE milestone_answer_sessions SET expired = TRUE, updated_at = ?
		WHERE id = ? AND expired = FALSE`, now.UTC(), id)
}

// UpdateAnswer overwrites one answer of a session.
func (r *SessionRepository) UpdateAnswer(ctx context.Context, sessionID, milestoneID int64, answer int, now time.Time) error {
	if err := r.exec(ctx, `
		UPDATE milestone_answers SET answer = ?
		WHERE answer_session_id = ? AND milestone_id = ?`, answer, sessionID, milestoneID); err != nil {
		return fmt.Errorf("update milestone answer: %w", err)
	}
	return r.touch(ctx, sessionID, now)
}

func (r *SessionRepository) SetCompleted(ctx context.Context, id int64, completed bool, now time.Time) error {
	if err := r.exec(ctx, `
		UPDATE milestone_answer_sessions SET completed = ?, updated_at = ?
		WHERE id = ?`, completed, now.UTC(), id); err != nil {
		return fmt.Errorf("update session completed: %w", err)
	}
	return nil
}

// DemoteIncomplete clears the completed flag of sessions that still hold an
// unanswered milestone and returns their ids.
func (r *SessionRepository) DemoteIncomplete(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		SELECT s.id FROM milestone_answer_sessions s
		WHERE s.completed = TRUE AND EXISTS (
			SELECT 1 FROM milestone_answers a
			WHERE a.answer_session_id = s.id AND a.answer < 0
		)
		ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("query inconsistent sessions: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan inconsistent session row: %w", err)
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate inconsistent sessions: %w", err)
	}

	for _, id := range ids {
		if err := r.SetCompleted(ctx, id, false, now); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// SetSuspiciousStateIfUnknown writes state only into sessions that were
// never evaluated and reports whether the row changed.
func (r *SessionRepository) SetSuspiciousStateIfUnknown(ctx context.Context, id int64, state models.SuspiciousState, now time.Time) (bool, error) {
	return r.execAffected(ctx, `
		UPDATE milestone_answer_sessions SET suspicious_state = ?, updated_at = ?
		WHERE id = ? AND suspicious_state = ?`,
		string(state), now.UTC(), id, string(models.SuspiciousUnknown))
}

// SetSuspiciousState writes state unconditionally.
func (r *SessionRepository) SetSuspiciousState(ctx context.Context, id int64, state models.SuspiciousState, now time.Time) error {
	if err := r.exec(ctx, `
		UPDATE milestone_answer_sessions SET suspicious_state = ?, updated_at = ?
		WHERE id = ?`, string(state), now.UTC(), id); err != nil {
		return fmt.Errorf("update suspicious state: %w", err)
	}
	return nil
}

// MarkIncluded flags sessions as folded into the statistics. updated_at is
// left alone so the flag does not invalidate cached feedback.
func (r *SessionRepository) MarkIncluded(ctx context.Context, ids []int64) error {
	for _, part := range chunk(ids, inListChunk) {
		if err := r.exec(ctx, `
			UPDATE milestone_answer_sessions SET included_in_statistics = TRUE
			WHERE id IN (`+placeholders(len(part))+`)`, int64Args(part)...); err != nil {
			return fmt.Errorf("mark sessions included: %w", err)
		}
	}
	return nil
}

// AchievedMilestones returns the milestones answered with the top score in
// any completed session of the child.
func (r *SessionRepository) AchievedMilestones(ctx context.Context, childID int64) (map[int64]bool, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, r.db.Rebind(`
		SELECT DISTINCT a.milestone_id
		FROM milestone_answers a
		JOIN milestone_answer_sessions s ON s.id = a.answer_session_id
		WHERE s.child_id = ? AND s.completed = TRUE AND a.answer = 3`), childID)
	if err != nil {
		return nil, fmt.Errorf("query achieved milestones: %w", err)
	}
	defer rows.Close()

	achieved := map[int64]bool{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan achieved milestone row: %w", err)
		}
		achieved[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate achieved milestones: %w", err)
	}
	return achieved, nil
}

func (r *SessionRepository) touch(ctx context.Context, id int64, now time.Time) error {
	if err := r.exec(ctx, `UPDATE milestone_answer_sessions SET updated_at = ? WHERE id = ?`, now.UTC(), id); err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *SessionRepository) exec(ctx context.Context, query string, args ...any) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(query), args...)
	return err
}

func (r *SessionRepository) execAffected(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.Conn(ctx).ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
