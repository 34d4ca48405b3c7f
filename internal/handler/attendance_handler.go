package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-ops-api/internal/dto"
	"github.com/noah-isme/school-ops-api/internal/models"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
	"github.com/noah-isme/school-ops-api/pkg/response"
)

type attendanceManager interface {
	Record(ctx context.Context, sessionID string, req dto.RecordAttendanceRequest) (*models.AttendanceRecord, error)
	Recompute(ctx context.Context, studentID string) (int, error)
	Report(ctx context.Context, studentID string, requester *models.JWTClaims) (*models.StudentAttendanceReport, error)
}

// AttendanceHandler serves attendance endpoints.
type AttendanceHandler struct {
	service attendanceManager
}

// NewAttendanceHandler constructs the handler.
func NewAttendanceHandler(svc attendanceManager) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// Record godoc
// @Summary Record attendance for a session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.RecordAttendanceRequest true "Attendance payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/attendance [put]
func (h *AttendanceHandler) Record(c *gin.Context) {
	var req dto.RecordAttendanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid attendance payload"))
		return
	}
	record, err := h.service.Record(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Recompute godoc
// @Summary Recompute a student's attendance percentage
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/attendance/recompute [post]
func (h *AttendanceHandler) Recompute(c *gin.Context) {
	studentID := c.Param("id")
	pct, err := h.service.Recompute(c.Request.Context(), studentID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.AttendanceRecomputeResult{StudentID: studentID, Attendance: pct}, nil)
}

// Report godoc
// @Summary Get a student's attendance
// @Description Parents may only read their own children.
// @Tags Attendance
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/attendance [get]
func (h *AttendanceHandler) Report(c *gin.Context) {
	report, err := h.service.Report(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}
