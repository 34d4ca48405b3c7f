package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/school-ops-api/internal/dto"
)

type classScheduleMock struct {
	put dto.ClassScheduleRequest
}

func (m *classScheduleMock) Get(ctx context.Context, classID string) (*dto.ClassScheduleResponse, error) {
	return &dto.ClassScheduleResponse{ClassID: classID, Days: []string{"Monday"}, Time: "09:00", DurationMinutes: 60}, nil
}

func (m *classScheduleMock) Put(ctx context.Context, classID string, req dto.ClassScheduleRequest) (*dto.ClassScheduleResponse, error) {
	m.put = req
	return &dto.ClassScheduleResponse{ClassID: classID, Days: req.Days, Time: req.Time, DurationMinutes: 60}, nil
}

func TestClassScheduleHandler(t *testing.T) {
	svc := &classScheduleMock{}
	h := NewClassScheduleHandler(svc)
	router := newTestRouter(nil)
	router.GET("/classes/:id/schedule", h.Get)
	router.PUT("/classes/:id/schedule", h.Put)

	w := perform(router, http.MethodGet, "/classes/c1/schedule", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got dto.ClassScheduleResponse
	decodeEnvelope(t, w, &got)
	assert.Equal(t, "c1", got.ClassID)
	assert.Equal(t, []string{"Monday"}, got.Days)

	w = perform(router, http.MethodPut, "/classes/c1/schedule", map[string]interface{}{"days": []string{"Tuesday", "Friday"}, "time": "17:00"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"Tuesday", "Friday"}, svc.put.Days)
	assert.Nil(t, svc.put.DurationMinutes)

	w = perform(router, http.MethodPut, "/classes/c1/schedule", `{"days": "Monday"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
