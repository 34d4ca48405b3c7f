package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-ops-api/internal/dto"
	"github.com/noah-isme/school-ops-api/internal/scheduling"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
	"github.com/noah-isme/school-ops-api/pkg/response"
)

type sessionMaintainer interface {
	RunMaintenance(ctx context.Context, ref time.Time) (*dto.MaintenanceSummary, error)
	ReconcileClassMonth(ctx context.Context, classID, month string) (*dto.ReconcileResult, error)
	DeleteMonth(ctx context.Context, month string) (*dto.DeleteMonthResult, error)
}

// SchedulerHandler exposes the administrative scheduler operations.
type SchedulerHandler struct {
	service sessionMaintainer
}

// NewSchedulerHandler constructs the handler.
func NewSchedulerHandler(svc sessionMaintainer) *SchedulerHandler {
	return &SchedulerHandler{service: svc}
}

// Run godoc
// @Summary Run session maintenance now
// @Description Generates the missing recurring sessions for the reference month and the look-ahead months.
// @Tags Scheduler
// @Produce json
// @Param date query string false "Reference date (YYYY-MM-DD), defaults to today"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 500 {object} response.Envelope
// @Router /admin/scheduler/run [post]
func (h *SchedulerHandler) Run(c *gin.Context) {
	var ref time.Time
	if raw := strings.TrimSpace(c.Query("date")); raw != "" {
		parsed, err := time.Parse(scheduling.DateLayout, raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be formatted as YYYY-MM-DD"))
			return
		}
		ref = parsed
	}

	summary, err := h.service.RunMaintenance(c.Request.Context(), ref)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// ReconcileClass godoc
// @Summary Reconcile one class month
// @Tags Scheduler
// @Produce json
// @Param id path string true "Class ID"
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/classes/{id}/reconcile [post]
func (h *SchedulerHandler) ReconcileClass(c *gin.Context) {
	result, err := h.service.ReconcileClassMonth(c.Request.Context(), c.Param("id"), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DeleteMonth godoc
// @Summary Delete every session of a month
// @Tags Scheduler
// @Produce json
// @Param month query string true "Month (YYYY-MM)"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /admin/sessions [delete]
func (h *SchedulerHandler) DeleteMonth(c *gin.Context) {
	result, err := h.service.DeleteMonth(c.Request.Context(), c.Query("month"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
