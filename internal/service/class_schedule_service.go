package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ops-api/internal/dto"
	"github.com/noah-isme/school-ops-api/internal/models"
	"github.com/noah-isme/school-ops-api/internal/scheduling"
	"github.com/noah-isme/school-ops-api/internal/validation"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
)

type classScheduleRepository interface {
	FindByID(ctx context.Context, id string) (*models.ClassGroup, error)
	UpdateSchedule(ctx context.Context, id, schedule string) error
}

// ClassScheduleService reads and replaces class recurrence rules. The descriptor is only
// serialized here, at the storage boundary.
type ClassScheduleService struct {
	classes   classScheduleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewClassScheduleService constructs the service.
func NewClassScheduleService(classes classScheduleRepository, validate *validator.Validate, logger *zap.Logger) *ClassScheduleService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClassScheduleService{classes: classes, validator: validate, logger: logger}
}

// Get returns the normalized recurrence of a class. Unreadable stored values yield an empty rule.
func (s *ClassScheduleService) Get(ctx context.Context, classID string) (*dto.ClassScheduleResponse, error) {
	class, err := s.load(ctx, classID)
	if err != nil {
		return nil, err
	}
	return toScheduleResponse(class.ID, scheduling.Normalize(class.Schedule)), nil
}

// Put validates and stores a new recurrence rule.
func (s *ClassScheduleService) Put(ctx context.Context, classID string, req dto.ClassScheduleRequest) (*dto.ClassScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}
	if _, err := s.load(ctx, classID); err != nil {
		return nil, err
	}

	descriptor := scheduling.Descriptor{Days: req.Days, Time: req.Time, DurationMinutes: scheduling.DefaultDurationMinutes}
	if req.DurationMinutes != nil {
		descriptor.DurationMinutes = *req.DurationMinutes
	}
	raw, err := scheduling.Encode(descriptor)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode schedule")
	}
	if err := s.classes.UpdateSchedule(ctx, classID, raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store schedule")
	}
	s.logger.Info("class schedule updated", zap.String("class_id", classID), zap.String("schedule", raw))
	return toScheduleResponse(classID, scheduling.Normalize(raw)), nil
}

func (s *ClassScheduleService) load(ctx context.Context, classID string) (*models.ClassGroup, error) {
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}
	return class, nil
}

func toScheduleResponse(classID string, d scheduling.Descriptor) *dto.ClassScheduleResponse {
	return &dto.ClassScheduleResponse{ClassID: classID, Days: d.Days, Time: d.Time, DurationMinutes: d.DurationMinutes}
}
