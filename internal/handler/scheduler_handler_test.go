package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-ops-api/internal/dto"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
)

type maintainerMock struct {
	ref      time.Time
	classID  string
	month    string
	runErr   error
	purgeErr error
}

func (m *maintainerMock) RunMaintenance(ctx context.Context, ref time.Time) (*dto.MaintenanceSummary, error) {
	m.ref = ref
	if m.runErr != nil {
		return nil, m.runErr
	}
	return &dto.MaintenanceSummary{ClassesProcessed: 3, SessionsCreated: 5, Errors: []dto.ClassFailure{{ClassID: "c2", Message: "boom"}}}, nil
}

func (m *maintainerMock) ReconcileClassMonth(ctx context.Context, classID, month string) (*dto.ReconcileResult, error) {
	m.classID, m.month = classID, month
	return &dto.ReconcileResult{ClassID: classID, Month: month, SessionsCreated: 2, Dates: []string{"2024-03-04", "2024-03-11"}}, nil
}

func (m *maintainerMock) DeleteMonth(ctx context.Context, month string) (*dto.DeleteMonthResult, error) {
	if m.purgeErr != nil {
		return nil, m.purgeErr
	}
	return &dto.DeleteMonthResult{Month: month, Deleted: 7}, nil
}

func TestSchedulerRunUsesReferenceDate(t *testing.T) {
	svc := &maintainerMock{}
	h := NewSchedulerHandler(svc)
	router := newTestRouter(nil)
	router.POST("/admin/scheduler/run", h.Run)

	w := perform(router, http.MethodPost, "/admin/scheduler/run?date=2024-03-15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC), svc.ref)

	var summary dto.MaintenanceSummary
	decodeEnvelope(t, w, &summary)
	assert.Equal(t, 3, summary.ClassesProcessed)
	assert.Equal(t, 5, summary.SessionsCreated)
	require.Len(t, summary.Errors, 1)
	assert.Equal(t, "c2", summary.Errors[0].ClassID)

	w = perform(router, http.MethodPost, "/admin/scheduler/run", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.ref.IsZero())
}

func TestSchedulerRunRejectsBadDate(t *testing.T) {
	h := NewSchedulerHandler(&maintainerMock{})
	router := newTestRouter(nil)
	router.POST("/admin/scheduler/run", h.Run)

	w := perform(router, http.MethodPost, "/admin/scheduler/run?date=15-03-2024", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := decodeEnvelope(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, appErrors.ErrValidation.Code, env.Error.Code)
}

func TestSchedulerRunPropagatesSweepFailure(t *testing.T) {
	h := NewSchedulerHandler(&maintainerMock{runErr: appErrors.Clone(appErrors.ErrInternal, "failed to list scheduled classes")})
	router := newTestRouter(nil)
	router.POST("/admin/scheduler/run", h.Run)

	w := perform(router, http.MethodPost, "/admin/scheduler/run", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestSchedulerReconcileAndPurge(t *testing.T) {
	svc := &maintainerMock{}
	h := NewSchedulerHandler(svc)
	router := newTestRouter(nil)
	router.POST("/admin/classes/:id/reconcile", h.ReconcileClass)
	router.DELETE("/admin/sessions", h.DeleteMonth)

	w := perform(router, http.MethodPost, "/admin/classes/c1/reconcile?month=2024-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "c1", svc.classID)
	assert.Equal(t, "2024-03", svc.month)

	w = perform(router, http.MethodDelete, "/admin/sessions?month=2024-03", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var result dto.DeleteMonthResult
	decodeEnvelope(t, w, &result)
	assert.Equal(t, int64(7), result.Deleted)

	svc.purgeErr = appErrors.Clone(appErrors.ErrValidation, "month must be formatted as YYYY-MM")
	w = perform(router, http.MethodDelete, "/admin/sessions?month=march", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
