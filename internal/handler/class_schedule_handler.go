package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-ops-api/internal/dto"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
	"github.com/noah-isme/school-ops-api/pkg/response"
)

type classScheduleManager interface {
	Get(ctx context.Context, classID string) (*dto.ClassScheduleResponse, error)
	Put(ctx context.Context, classID string, req dto.ClassScheduleRequest) (*dto.ClassScheduleResponse, error)
}

// ClassScheduleHandler reads and replaces class recurrence rules.
type ClassScheduleHandler struct {
	service classScheduleManager
}

// NewClassScheduleHandler constructs the handler.
func NewClassScheduleHandler(svc classScheduleManager) *ClassScheduleHandler {
	return &ClassScheduleHandler{service: svc}
}

// Get godoc
// @Summary Get class recurrence
// @Tags Classes
// @Produce json
// @Param id path string true "Class ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/schedule [get]
func (h *ClassScheduleHandler) Get(c *gin.Context) {
	res, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Put godoc
// @Summary Replace class recurrence
// @Tags Classes
// @Accept json
// @Produce json
// @Param id path string true "Class ID"
// @Param payload body dto.ClassScheduleRequest true "Recurrence payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /classes/{id}/schedule [put]
func (h *ClassScheduleHandler) Put(c *gin.Context) {
	var req dto.ClassScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}
	res, err := h.service.Put(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
