package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ops-api/internal/dto"
	"github.com/noah-isme/school-ops-api/internal/models"
	"github.com/noah-isme/school-ops-api/internal/validation"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
	"github.com/noah-isme/school-ops-api/pkg/jobs"
)

type attendanceRecordRepository interface {
	Upsert(ctx context.Context, record *models.AttendanceRecord) error
	ListForStudentBySessions(ctx context.Context, studentID string, sessionIDs []string) ([]models.AttendanceRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.AttendanceRecord, error)
}

type attendanceStudentRepository interface {
	FindByID(ctx context.Context, id string) (*models.Student, error)
	ListEnrolledClassIDs(ctx context.Context, studentID string) ([]string, error)
	UpdateAttendance(ctx context.Context, id string, percentage int) error
}

type attendanceSessionReader interface {
	FindByID(ctx context.Context, id string) (*models.Session, error)
	ListCompletedByClasses(ctx context.Context, classIDs []string) ([]models.Session, error)
}

// AttendanceService records attendance and maintains each student's cached percentage.
type AttendanceService struct {
	records   attendanceRecordRepository
	students  attendanceStudentRepository
	sessions  attendanceSessionReader
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(
	records attendanceRecordRepository,
	students attendanceStudentRepository,
	sessions attendanceSessionReader,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AttendanceService {
	if validate == nil {
		validate = validation.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{records: records, students: students, sessions: sessions, metrics: metrics, validator: validate, logger: logger}
}

// Record stores the attendance of one student for a session, replacing any earlier mark.
func (s *AttendanceService) Record(ctx context.Context, sessionID string, req dto.RecordAttendanceRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid attendance payload")
	}
	session, err := s.sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "session not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load session")
	}
	classIDs, err := s.enrolledClasses(ctx, req.StudentID)
	if err != nil {
		return nil, err
	}
	if !contains(classIDs, session.ClassID) || !session.AppliesTo(req.StudentID) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student is not expected at this session")
	}

	record := &models.AttendanceRecord{
		SessionID: session.ID,
		StudentID: req.StudentID,
		Status:    models.AttendanceStatus(req.Status),
		Reason:    req.Reason,
	}
	if err := s.records.Upsert(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record attendance")
	}
	return record, nil
}

// Recompute refreshes the cached attendance percentage of a student. Applicable sessions are the
// completed sessions of the student's classes that target everyone or name the student. The result
// is round(100 * attended / applicable), or 0 when nothing applies. Both PRESENT and LATE records
// count as attended.
func (s *AttendanceService) Recompute(ctx context.Context, studentID string) (pct int, err error) {
	defer func() { s.metrics.ObserveRollup(err) }()

	classIDs, err := s.enrolledClasses(ctx, studentID)
	if err != nil {
		return 0, err
	}
	sessions, err := s.sessions.ListCompletedByClasses(ctx, classIDs)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list completed sessions")
	}

	applicable := make([]string, 0, len(sessions))
	for _, session := range sessions {
		if session.AppliesTo(studentID) {
			applicable = append(applicable, session.ID)
		}
	}

	if len(applicable) > 0 {
		records, err := s.records.ListForStudentBySessions(ctx, studentID, applicable)
		if err != nil {
			return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
		}
		pct = Percentage(countAttended(records), len(applicable))
	}

	if err := s.students.UpdateAttendance(ctx, studentID, pct); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store attendance percentage")
	}
	s.logger.Debug("attendance recomputed",
		zap.String("student_id", studentID),
		zap.Int("applicable", len(applicable)),
		zap.Int("attendance", pct))
	return pct, nil
}

// HandleRollupJob is the queue handler for roll-up jobs; the payload is a student id.
func (s *AttendanceService) HandleRollupJob(ctx context.Context, job jobs.Job) error {
	studentID, ok := job.Payload.(string)
	if !ok || studentID == "" {
		s.logger.Warn("discarding roll-up job with invalid payload", zap.String("job_id", job.ID))
		return nil
	}
	_, err := s.Recompute(ctx, studentID)
	return err
}

// Report returns the cached percentage and records of a student. Parents may only read their
// own children.
func (s *AttendanceService) Report(ctx context.Context, studentID string, requester *models.JWTClaims) (*models.StudentAttendanceReport, error) {
	student, err := s.findStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if requester == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if requester.Role == models.RoleParent {
		if student.ParentUserID == nil || *student.ParentUserID != requester.UserID {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "parents may only view their own children")
		}
	}

	records, err := s.records.ListByStudent(ctx, student.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance records")
	}
	if records == nil {
		records = []models.AttendanceRecord{}
	}
	return &models.StudentAttendanceReport{
		StudentID:  student.ID,
		FullName:   student.FullName,
		Attendance: student.Attendance,
		Records:    records,
	}, nil
}

// Percentage rounds attended/applicable to a whole percent, half away from zero.
func Percentage(attended, applicable int) int {
	if applicable <= 0 {
		return 0
	}
	return int(math.Round(100 * float64(attended) / float64(applicable)))
}

func (s *AttendanceService) enrolledClasses(ctx context.Context, studentID string) ([]string, error) {
	if _, err := s.findStudent(ctx, studentID); err != nil {
		return nil, err
	}
	classIDs, err := s.students.ListEnrolledClassIDs(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list enrolled classes")
	}
	return classIDs, nil
}

func (s *AttendanceService) findStudent(ctx context.Context, studentID string) (*models.Student, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", studentID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return student, nil
}

func countAttended(records []models.AttendanceRecord) int {
	seen := make(map[string]struct{}, len(records))
	attended := 0
	for _, record := range records {
		if _, dup := seen[record.SessionID]; dup {
			continue
		}
		seen[record.SessionID] = struct{}{}
		if record.Status.Attended() {
			attended++
		}
	}
	return attended
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
