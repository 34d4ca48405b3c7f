package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-ops-api/internal/dto"
	"github.com/noah-isme/school-ops-api/internal/models"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
	"github.com/noah-isme/school-ops-api/pkg/export"
	"github.com/noah-isme/school-ops-api/pkg/response"
)

type sessionManager interface {
	Create(ctx context.Context, req dto.CreateSessionRequest) (*models.Session, error)
	Get(ctx context.Context, id string) (*models.Session, error)
	UpdateStatus(ctx context.Context, id string, req dto.UpdateSessionStatusRequest) (*models.Session, error)
	ListByMonth(ctx context.Context, query dto.SessionListQuery) ([]models.Session, error)
	Export(ctx context.Context, query dto.SessionExportQuery) ([]byte, export.Format, error)
}

// SessionHandler serves session endpoints.
type SessionHandler struct {
	service sessionManager
}

// NewSessionHandler constructs the handler.
func NewSessionHandler(svc sessionManager) *SessionHandler {
	return &SessionHandler{service: svc}
}

// Create godoc
// @Summary Create a manual session
// @Tags Sessions
// @Accept json
// @Produce json
// @Param payload body dto.CreateSessionRequest true "Session payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /sessions [post]
func (h *SessionHandler) Create(c *gin.Context) {
	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid session payload"))
		return
	}
	session, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, session)
}

// Get godoc
// @Summary Get a session
// @Tags Sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id} [get]
func (h *SessionHandler) Get(c *gin.Context) {
	session, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// UpdateStatus godoc
// @Summary Change session status
// @Description Any status may be set. Completing a session queues attendance roll-ups.
// @Tags Sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param payload body dto.UpdateSessionStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /sessions/{id}/status [patch]
func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	var req dto.UpdateSessionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	session, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, session, nil)
}

// List godoc
// @Summary List sessions of a month
// @Tags Sessions
// @Produce json
// @Param month query string true "Month (YYYY-MM)"
// @Param classId query string false "Class ID"
// @Param status query string false "Session status"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /sessions [get]
func (h *SessionHandler) List(c *gin.Context) {
	var query dto.SessionListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	sessions, err := h.service.ListByMonth(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, sessions, nil, map[string]interface{}{"month": query.Month, "count": len(sessions)})
}

// Export godoc
// @Summary Export the sessions of a month
// @Tags Sessions
// @Produce text/csv
// @Produce application/pdf
// @Param month query string true "Month (YYYY-MM)"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /sessions/export [get]
func (h *SessionHandler) Export(c *gin.Context) {
	var query dto.SessionExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	out, format, err := h.service.Export(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, fmt.Sprintf("sessions-%s.%s", query.Month, format), format.ContentType(), out)
}
