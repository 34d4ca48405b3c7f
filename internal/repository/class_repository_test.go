package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var classRowColumns = []string{"id", "name", "teacher_id", "location_id", "grade", "schedule", "created_at", "updated_at"}

func TestClassRepositoryListWithSchedule(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(classRowColumns).
		AddRow("c1", "Piano A", "t1", nil, "5", `{"days":["Monday"],"time":"09:00"}`, now, now).
		AddRow("c2", "Piano B", nil, "l1", "6", `garbage`, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE schedule IS NOT NULL AND schedule <> '' ORDER BY name, id")).
		WillReturnRows(rows)

	classes, err := repo.ListWithSchedule(context.Background())
	require.NoError(t, err)
	require.Len(t, classes, 2)
	assert.True(t, classes[0].HasSchedule())
	assert.Nil(t, classes[0].LocationID)
	assert.Equal(t, "garbage", *classes[1].Schedule)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryListWithScheduleError(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery("FROM classes").WillReturnError(sql.ErrConnDone)

	_, err := repo.ListWithSchedule(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestClassRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM classes WHERE id = $1")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(classRowColumns))

	_, err := repo.FindByID(context.Background(), "missing")
	assert.Equal(t, sql.ErrNoRows, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClassRepositoryUpdateSchedule(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewClassRepository(db)

	raw := `{"days":["Friday"],"durationMinutes":45}`
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET schedule = $1, updated_at = $2 WHERE id = $3")).
		WithArgs(raw, sqlmock.AnyArg(), "c1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE classes SET schedule")).
		WithArgs(raw, sqlmock.AnyArg(), "missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdateSchedule(context.Background(), "c1", raw))
	assert.ErrorIs(t, repo.UpdateSchedule(context.Background(), "missing", raw), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
