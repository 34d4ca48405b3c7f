package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ops-api/internal/dto"
	"github.com/noah-isme/school-ops-api/internal/models"
	"github.com/noah-isme/school-ops-api/internal/scheduling"
	"github.com/noah-isme/school-ops-api/internal/validation"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
	"github.com/noah-isme/school-ops-api/pkg/export"
	"github.com/noah-isme/school-ops-api/pkg/jobs"
)

// RollupJobType identifies attendance roll-up jobs on the background queue.
const RollupJobType = "attendance.rollup"

type sessionRepository interface {
	InsertIgnoreDuplicate(ctx context.Context, exec sqlx.ExtContext, session *models.Session) (bool, error)
	FindByID(ctx context.Context, id string) (*models.Session, error)
	UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error
	List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error)
}

type sessionClassReader interface {
	FindByID(ctx context.Context, id string) (*models.ClassGroup, error)
}

type classRosterReader interface {
	ListIDsByClass(ctx context.Context, classID string) ([]string, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

type sessionListCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	InvalidateSessions(ctx context.Context) error
}

// SessionServiceConfig tunes session behaviour.
type SessionServiceConfig struct {
	DefaultStartTime string
	CacheTTL         time.Duration
}

// SessionService manages individual sessions outside the recurring sweep.
type SessionService struct {
	sessions  sessionRepository
	classes   sessionClassReader
	roster    classRosterReader
	rollups   jobEnqueuer
	cache     sessionListCache
	validator *validator.Validate
	logger    *zap.Logger
	cfg       SessionServiceConfig
}

// NewSessionService constructs a SessionService. rollups and cache may be nil.
func NewSessionService(
	sessions sessionRepository,
	classes sessionClassReader,
	roster classRosterReader,
	rollups jobEnqueuer,
	cache sessionListCache,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg SessionServiceConfig,
) *SessionService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DefaultStartTime == "" {
		cfg.DefaultStartTime = scheduling.DefaultStartTime
	}
	return &SessionService{
		sessions:  sessions,
		classes:   classes,
		roster:    roster,
		rollups:   rollups,
		cache:     cache,
		validator: validate,
		logger:    logger,
		cfg:       cfg,
	}
}

// Create stores a manual session. A class holds at most one session per date.
func (s *SessionService) Create(ctx context.Context, req dto.CreateSessionRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session payload")
	}
	if _, err := s.classes.FindByID(ctx, req.ClassID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	session := &models.Session{
		ClassID:    req.ClassID,
		Date:       req.Date,
		StartTime:  req.StartTime,
		Type:       models.SessionType(req.Type),
		Status:     models.SessionStatusScheduled,
		StudentIDs: models.StudentIDList(dedupe(req.StudentIDs)),
	}
	if session.StartTime == "" {
		session.StartTime = s.cfg.DefaultStartTime
	}
	if session.Type == "" {
		session.Type = models.SessionTypeRegular
	}

	created, err := s.sessions.InsertIgnoreDuplicate(ctx, nil, session)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create session")
	}
	if !created {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("class already has a session on %s", req.Date))
	}
	s.invalidate(ctx)
	s.logger.Info("manual session created",
		zap.String("session_id", session.ID),
		zap.String("class_id", session.ClassID),
		zap.String("date", session.Date),
		zap.String("type", string(session.Type)))
	return session, nil
}

// Get returns a session by identifier.
func (s *SessionService) Get(ctx context.Context, id string) (*models.Session, error) {
	session, err := s.sessions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	return session, nil
}

// UpdateStatus moves a session to any status. Completing a session queues an attendance
// roll-up for every student of the class.
func (s *SessionService) UpdateStatus(ctx context.Context, id string, req dto.UpdateSessionStatusRequest) (*models.Session, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	status := models.SessionStatus(req.Status)
	if err := s.sessions.UpdateStatus(ctx, id, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update session status")
	}
	previous := session.Status
	session.Status = status
	s.invalidate(ctx)

	if status == models.SessionStatusCompleted || previous == models.SessionStatusCompleted {
		s.enqueueRollups(ctx, session)
	}
	return session, nil
}

// ListByMonth returns the sessions of a month, served from cache when enabled.
func (s *SessionService) ListByMonth(ctx context.Context, query dto.SessionListQuery) ([]models.Session, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid session query")
	}
	m, _ := scheduling.ParseMonth(query.Month)
	key := SessionMonthKey(m.String(), query.ClassID, query.Status)

	if s.cache != nil {
		var cached []models.Session
		if hit, err := s.cache.Get(ctx, key, &cached); err == nil && hit {
			return cached, nil
		}
	}

	from, to := scheduling.MonthRange(m.Year, m.Month)
	filter := models.SessionFilter{ClassID: query.ClassID, From: from, To: to}
	if query.Status != "" {
		status := models.SessionStatus(query.Status)
		filter.Status = &status
	}
	sessions, err := s.sessions.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list sessions")
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, key, sessions, s.cfg.CacheTTL)
	}
	return sessions, nil
}

// Export renders the month listing in the requested format.
func (s *SessionService) Export(ctx context.Context, query dto.SessionExportQuery) ([]byte, export.Format, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export query")
	}
	format, err := export.ParseFormat(query.Format)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid export format")
	}
	sessions, err := s.ListByMonth(ctx, dto.SessionListQuery{Month: query.Month})
	if err != nil {
		return nil, "", err
	}

	data := export.Dataset{
		Title:   "Sessions " + query.Month,
		Headers: []string{"Date", "Start", "Class", "Type", "Status", "Targets"},
		Rows:    make([][]string, 0, len(sessions)),
	}
	for _, session := range sessions {
		targets := "all"
		if len(session.StudentIDs) > 0 {
			targets = strings.Join(session.StudentIDs, " ")
		}
		data.Rows = append(data.Rows, []string{
			session.Date, session.StartTime, session.ClassID, string(session.Type), string(session.Status), targets,
		})
	}
	out, err := export.Render(format, data)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	return out, format, nil
}

func (s *SessionService) enqueueRollups(ctx context.Context, session *models.Session) {
	if s.rollups == nil || s.roster == nil {
		return
	}
	studentIDs, err := s.roster.ListIDsByClass(ctx, session.ClassID)
	if err != nil {
		s.logger.Warn("failed to list class students for roll-up", zap.String("class_id", session.ClassID), zap.Error(err))
		return
	}
	for _, studentID := range studentIDs {
		job := jobs.Job{ID: session.ID + ":" + studentID, Type: RollupJobType, Key: RollupJobType + ":" + studentID, Payload: studentID}
		if err := s.rollups.Enqueue(job); err != nil {
			s.logger.Warn("failed to enqueue attendance roll-up", zap.String("student_id", studentID), zap.Error(err))
		}
	}
}

func (s *SessionService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSessions(ctx); err != nil {
		s.logger.Warn("session cache invalidation failed", zap.Error(err))
	}
}

func dedupe(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
