package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-ops-api/internal/models"
)

const attendanceColumns = `id, session_id, student_id, status, reason, created_at, updated_at`

// AttendanceRepository stores one attendance record per session and student.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Upsert creates the record or overwrites the status and reason of the existing one.
// The stored row is loaded back into record.
func (r *AttendanceRepository) Upsert(ctx context.Context, record *models.AttendanceRecord) error {
	if record == nil {
		return fmt.Errorf("attendance payload is nil")
	}
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now

	const query = `
INSERT INTO attendance_records (` + attendanceColumns + `)
VALUES (:id, :session_id, :student_id, :status, :reason, :created_at, :updated_at)
ON CONFLICT (session_id, student_id) DO UPDATE SET status = excluded.status, reason = excluded.reason, updated_at = excluded.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		return fmt.Errorf("upsert attendance record: %w", err)
	}

	selectQuery := r.db.Rebind(`SELECT ` + attendanceColumns + ` FROM attendance_records WHERE session_id = ? AND student_id = ?`)
	if err := r.db.GetContext(ctx, record, selectQuery, record.SessionID, record.StudentID); err != nil {
		return fmt.Errorf("reload attendance record: %w", err)
	}
	return nil
}

// ListForStudentBySessions returns the student's records restricted to the given sessions.
func (r *AttendanceRepository) ListForStudentBySessions(ctx context.Context, studentID string, sessionIDs []string) ([]models.AttendanceRecord, error) {
	if len(sessionIDs) == 0 {
		return []models.AttendanceRecord{}, nil
	}
	query, args, err := sqlx.In(`SELECT `+attendanceColumns+` FROM attendance_records WHERE student_id = ? AND session_id IN (?)`, studentID, sessionIDs)
	if err != nil {
		return nil, fmt.Errorf("build attendance query: %w", err)
	}
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// ListByStudent returns every record of the student, most recent session first.
func (r *AttendanceRepository) ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error) {
	query := r.db.Rebind(`SELECT a.id, a.session_id, a.student_id, a.status, a.reason, a.created_at, a.updated_at
FROM attendance_records a JOIN sessions s ON s.id = a.session_id
WHERE a.student_id = ? ORDER BY s.session_date DESC`)
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, studentID); err != nil {
		return nil, fmt.Errorf("list student attendance: %w", err)
	}
	return records, nil
}
