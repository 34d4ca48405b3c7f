package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-ops-api/internal/models"
)

// StudentRepository manages persistence for student records and class membership.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// FindByID fetches a student by ID.
func (r *StudentRepository) FindByID(ctx context.Context, id string) (*models.Student, error) {
	query := r.db.Rebind(`SELECT id, full_name, parent_user_id, attendance, active, created_at, updated_at FROM students WHERE id = ?`)
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find student: %w", err)
	}
	return &student, nil
}

// ListEnrolledClassIDs returns the classes the student belongs to.
func (r *StudentRepository) ListEnrolledClassIDs(ctx context.Context, studentID string) ([]string, error) {
	query := r.db.Rebind(`SELECT class_id FROM class_students WHERE student_id = ? ORDER BY class_id`)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrolled classes: %w", err)
	}
	return ids, nil
}

// ListIDsByClass returns the active students enrolled in the class.
func (r *StudentRepository) ListIDsByClass(ctx context.Context, classID string) ([]string, error) {
	query := r.db.Rebind(`SELECT s.id FROM class_students cs JOIN students s ON s.id = cs.student_id
WHERE cs.class_id = ? AND s.active = ? ORDER BY s.id`)
	var ids []string
	if err := r.db.SelectContext(ctx, &ids, query, classID, true); err != nil {
		return nil, fmt.Errorf("list class students: %w", err)
	}
	return ids, nil
}

// UpdateAttendance stores the cached attendance percentage.
func (r *StudentRepository) UpdateAttendance(ctx context.Context, id string, percentage int) error {
	query := r.db.Rebind(`UPDATE students SET attendance = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, percentage, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update student attendance: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("student rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
