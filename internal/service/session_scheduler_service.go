package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ops-api/internal/dto"
	"github.com/noah-isme/school-ops-api/internal/models"
	"github.com/noah-isme/school-ops-api/internal/scheduling"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
)

type schedulerClassRepository interface {
	ListWithSchedule(ctx context.Context) ([]models.ClassGroup, error)
	FindByID(ctx context.Context, id string) (*models.ClassGroup, error)
}

type schedulerSessionRepository interface {
	ListDatesForMonth(ctx context.Context, exec sqlx.ExtContext, classID, from, to string) ([]string, error)
	InsertIgnoreDuplicate(ctx context.Context, exec sqlx.ExtContext, session *models.Session) (bool, error)
	DeleteMonth(ctx context.Context, exec sqlx.ExtContext, from, to string) (int64, error)
}

type sessionCacheInvalidator interface {
	InvalidateSessions(ctx context.Context) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// SessionSchedulerConfig governs recurring session generation.
type SessionSchedulerConfig struct {
	// LookaheadMonths is the number of months after the reference month that a sweep also fills.
	LookaheadMonths  int
	DefaultStartTime string
	Now              func() time.Time
}

// SessionSchedulerService turns class recurrence rules into dated sessions.
type SessionSchedulerService struct {
	classes    schedulerClassRepository
	sessions   schedulerSessionRepository
	tx         txProvider
	cache      sessionCacheInvalidator
	metrics    *MetricsService
	reconciler *scheduling.Reconciler
	lookahead  int
	now        func() time.Time
	logger     *zap.Logger
}

// NewSessionSchedulerService wires scheduler dependencies. tx may be nil, in which case each
// class month is reconciled without a transaction and relies on the unique (class, date) index.
func NewSessionSchedulerService(
	classes schedulerClassRepository,
	sessions schedulerSessionRepository,
	tx txProvider,
	cache sessionCacheInvalidator,
	metrics *MetricsService,
	logger *zap.Logger,
	cfg SessionSchedulerConfig,
) *SessionSchedulerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.LookaheadMonths < 0 {
		cfg.LookaheadMonths = 0
	}
	return &SessionSchedulerService{
		classes:    classes,
		sessions:   sessions,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		reconciler: scheduling.NewReconciler(cfg.DefaultStartTime),
		lookahead:  cfg.LookaheadMonths,
		now:        cfg.Now,
		logger:     logger,
	}
}

// RunMaintenance reconciles every scheduled class for the reference month and the look-ahead
// months. A zero ref means now. Failures of individual classes are collected in the summary;
// only a failure to list classes aborts the sweep.
func (s *SessionSchedulerService) RunMaintenance(ctx context.Context, ref time.Time) (*dto.MaintenanceSummary, error) {
	started := s.now()
	if ref.IsZero() {
		ref = started
	}
	months := scheduling.TargetMonths(ref, s.lookahead)

	classes, err := s.classes.ListWithSchedule(ctx)
	if err != nil {
		s.metrics.ObserveSweep(time.Since(started), 0, 0, true)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list scheduled classes")
	}

	summary := &dto.MaintenanceSummary{
		ReferenceDate: ref.UTC().Format(scheduling.DateLayout),
		Months:        make([]string, 0, len(months)),
		Errors:        []dto.ClassFailure{},
		StartedAt:     started.UTC(),
	}
	for _, m := range months {
		summary.Months = append(summary.Months, m.String())
	}

	for _, class := range classes {
		if !class.HasSchedule() {
			continue
		}
		summary.ClassesProcessed++
		descriptor := scheduling.Normalize(class.Schedule)
		for _, m := range months {
			dates, err := s.reconcileMonth(ctx, class.ID, m, descriptor)
			if err != nil {
				summary.Errors = append(summary.Errors, dto.ClassFailure{ClassID: class.ID, Message: err.Error()})
				s.logger.Warn("class reconciliation failed",
					zap.String("class_id", class.ID),
					zap.String("month", m.String()),
					zap.Error(err))
				break
			}
			summary.SessionsCreated += len(dates)
		}
	}

	elapsed := time.Since(started)
	summary.Duration = elapsed.String()
	if summary.SessionsCreated > 0 {
		s.invalidate(ctx)
	}
	s.metrics.ObserveSweep(elapsed, summary.SessionsCreated, len(summary.Errors), false)
	s.logger.Info("session maintenance completed",
		zap.String("reference_date", summary.ReferenceDate),
		zap.Strings("months", summary.Months),
		zap.Int("classes_processed", summary.ClassesProcessed),
		zap.Int("sessions_created", summary.SessionsCreated),
		zap.Int("errors", len(summary.Errors)),
		zap.Duration("duration", elapsed))
	return summary, nil
}

// RunScheduled is the periodic trigger entry point. It logs the outcome and never propagates
// an error or a panic to the caller.
func (s *SessionSchedulerService) RunScheduled(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("scheduled session maintenance panicked", zap.Any("panic", r))
		}
	}()
	summary, err := s.RunMaintenance(ctx, time.Time{})
	if err != nil {
		s.logger.Error("scheduled session maintenance failed", zap.Error(err))
		return
	}
	if len(summary.Errors) > 0 {
		s.logger.Warn("scheduled session maintenance finished with class errors", zap.Int("errors", len(summary.Errors)))
	}
}

// ReconcileClassMonth fills the missing sessions of one class for a YYYY-MM month.
func (s *SessionSchedulerService) ReconcileClassMonth(ctx context.Context, classID, month string) (*dto.ReconcileResult, error) {
	m, err := scheduling.ParseMonth(month)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be formatted as YYYY-MM")
	}
	class, err := s.classes.FindByID(ctx, classID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "class not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load class")
	}

	dates, err := s.reconcileMonth(ctx, class.ID, m, scheduling.Normalize(class.Schedule))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reconcile class sessions")
	}
	if len(dates) > 0 {
		s.invalidate(ctx)
	}
	return &dto.ReconcileResult{ClassID: class.ID, Month: m.String(), SessionsCreated: len(dates), Dates: dates}, nil
}

// DeleteMonth removes every session in a YYYY-MM month regardless of class or status.
func (s *SessionSchedulerService) DeleteMonth(ctx context.Context, month string) (*dto.DeleteMonthResult, error) {
	m, err := scheduling.ParseMonth(month)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be formatted as YYYY-MM")
	}
	from, to := scheduling.MonthRange(m.Year, m.Month)

	var deleted int64
	start := time.Now()
	err = s.withTx(ctx, func(exec sqlx.ExtContext) error {
		n, err := s.sessions.DeleteMonth(ctx, exec, from, to)
		deleted = n
		return err
	})
	s.metrics.ObserveDBQuery("delete_month", time.Since(start))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete month sessions")
	}
	s.invalidate(ctx)
	s.logger.Info("month sessions deleted", zap.String("month", m.String()), zap.Int64("deleted", deleted))
	return &dto.DeleteMonthResult{Month: m.String(), Deleted: deleted}, nil
}

// reconcileMonth inserts the missing sessions for one class month and returns the created dates.
func (s *SessionSchedulerService) reconcileMonth(ctx context.Context, classID string, m scheduling.Month, d scheduling.Descriptor) ([]string, error) {
	if d.IsZero() {
		return []string{}, nil
	}
	from, to := scheduling.MonthRange(m.Year, m.Month)
	created := []string{}
	start := time.Now()
	err := s.withTx(ctx, func(exec sqlx.ExtContext) error {
		created = created[:0]
		existing, err := s.sessions.ListDatesForMonth(ctx, exec, classID, from, to)
		if err != nil {
			return err
		}
		for _, session := range s.reconciler.Reconcile(classID, m.Year, m.Month, d, existing) {
			session := session
			ok, err := s.sessions.InsertIgnoreDuplicate(ctx, exec, &session)
			if err != nil {
				return fmt.Errorf("insert session %s: %w", session.Date, err)
			}
			if ok {
				created = append(created, session.Date)
			}
		}
		return nil
	})
	s.metrics.ObserveDBQuery("reconcile_class_month", time.Since(start))
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *SessionSchedulerService) withTx(ctx context.Context, fn func(exec sqlx.ExtContext) error) (err error) {
	if s.tx == nil {
		return runRecovered(fn, nil)
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	if err = runRecovered(fn, tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// runRecovered converts a panic raised by fn into an error.
func runRecovered(fn func(exec sqlx.ExtContext) error, exec sqlx.ExtContext) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("recovered panic: %v", r)
		}
	}()
	return fn(exec)
}

func (s *SessionSchedulerService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSessions(ctx); err != nil {
		s.logger.Warn("session cache invalidation failed", zap.Error(err))
	}
}
