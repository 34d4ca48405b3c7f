package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/school-ops-api/internal/models"
)

const classColumns = `id, name, teacher_id, location_id, grade, schedule, created_at, updated_at`

// ClassRepository manages persistence for class groups and their recurrence rules.
type ClassRepository struct {
	db *sqlx.DB
}

// NewClassRepository constructs a new class repository.
func NewClassRepository(db *sqlx.DB) *ClassRepository {
	return &ClassRepository{db: db}
}

// ListWithSchedule returns every class that has a stored recurrence value.
func (r *ClassRepository) ListWithSchedule(ctx context.Context) ([]models.ClassGroup, error) {
	query := `SELECT ` + classColumns + ` FROM classes WHERE schedule IS NOT NULL AND schedule <> '' ORDER BY name, id`
	var classes []models.ClassGroup
	if err := r.db.SelectContext(ctx, &classes, query); err != nil {
		return nil, fmt.Errorf("list scheduled classes: %w", err)
	}
	return classes, nil
}

// FindByID loads a class by identifier.
func (r *ClassRepository) FindByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	query := r.db.Rebind(`SELECT ` + classColumns + ` FROM classes WHERE id = ?`)
	var class models.ClassGroup
	if err := r.db.GetContext(ctx, &class, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find class: %w", err)
	}
	return &class, nil
}

// UpdateSchedule stores the serialized recurrence rule for a class.
func (r *ClassRepository) UpdateSchedule(ctx context.Context, id, schedule string) error {
	query := r.db.Rebind(`UPDATE classes SET schedule = ?, updated_at = ? WHERE id = ?`)
	result, err := r.db.ExecContext(ctx, query, schedule, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update class schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("class schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
