package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-ops-api/internal/models"
)

const sessionColumns = `id, class_id, session_date, start_time, type, status, student_ids, created_at, updated_at`

// SessionRepository persists dated class sessions. Queries are written with ? placeholders
// and rebound for the active driver so PostgreSQL and SQLite share one implementation.
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository constructs a session repository.
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// ListDatesForMonth returns the dates already holding a session for the class between from and to
// inclusive, whatever their status.
func (r *SessionRepository) ListDatesForMonth(ctx context.Context, exec sqlx.ExtContext, classID, from, to string) ([]string, error) {
	target := r.exec(exec)
	query := target.Rebind(`SELECT session_date FROM sessions WHERE class_id = ? AND session_date >= ? AND session_date <= ? ORDER BY session_date`)
	var dates []string
	if err := sqlx.SelectContext(ctx, target, &dates, query, classID, from, to); err != nil {
		return nil, fmt.Errorf("list session dates: %w", err)
	}
	return dates, nil
}

// InsertIgnoreDuplicate inserts the session unless the class already has one on that date.
// It reports whether a row was created.
func (r *SessionRepository) InsertIgnoreDuplicate(ctx context.Context, exec sqlx.ExtContext, session *models.Session) (bool, error) {
	if session == nil {
		return false, fmt.Errorf("session payload is nil")
	}
	if session.ClassID == "" || session.Date == "" {
		return false, fmt.Errorf("class_id and session_date are required")
	}
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	session.UpdatedAt = now

	const query = `
INSERT INTO sessions (` + sessionColumns + `)
VALUES (:id, :class_id, :session_date, :start_time, :type, :status, :student_ids, :created_at, :updated_at)
ON CONFLICT (class_id, session_date) DO NOTHING`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, session)
	if err != nil {
		return false, fmt.Errorf("insert session: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("session rows affected: %w", err)
	}
	return affected > 0, nil
}

// FindByID loads a session by identifier.
func (r *SessionRepository) FindByID(ctx context.Context, id string) (*models.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`)
	var session models.Session
	if err := r.db.GetContext(ctx, &session, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find session: %w", err)
	}
	return &session, nil
}

// UpdateStatus sets the session status.
func (r *SessionRepository) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	query := r.db.Rebind(`UPDATE sessions SET status = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update session status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("session rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// List returns sessions within the filter's date range ordered by date and class.
func (r *SessionRepository) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	conditions := []string{"session_date >= ?", "session_date <= ?"}
	args := []interface{}{filter.From, filter.To}
	if filter.ClassID != "" {
		conditions = append(conditions, "class_id = ?")
		args = append(args, filter.ClassID)
	}
	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}

	query := r.db.Rebind(fmt.Sprintf(`SELECT %s FROM sessions WHERE %s ORDER BY session_date, start_time, class_id`, sessionColumns, strings.Join(conditions, " AND ")))
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, query, args...); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// DeleteMonth removes every session dated between from and to inclusive and returns the count.
func (r *SessionRepository) DeleteMonth(ctx context.Context, exec sqlx.ExtContext, from, to string) (int64, error) {
	target := r.exec(exec)
	query := target.Rebind(`DELETE FROM sessions WHERE session_date >= ? AND session_date <= ?`)
	result, err := target.ExecContext(ctx, query, from, to)
	if err != nil {
		return 0, fmt.Errorf("delete month sessions: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("deleted sessions rows affected: %w", err)
	}
	return affected, nil
}

// ListCompletedByClasses returns completed sessions belonging to any of the classes.
func (r *SessionRepository) ListCompletedByClasses(ctx context.Context, classIDs []string) ([]models.Session, error) {
	if len(classIDs) == 0 {
		return []models.Session{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+sessionColumns+` FROM sessions WHERE status = ? AND class_id IN (?) ORDER BY session_date`, models.SessionStatusCompleted, classIDs)
	if err != nil {
		return nil, fmt.Errorf("build completed sessions query: %w", err)
	}
	var sessions []models.Session
	if err := r.db.SelectContext(ctx, &sessions, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list completed sessions: %w", err)
	}
	return sessions, nil
}
