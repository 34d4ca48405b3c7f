package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/school-ops-api/internal/dto"
	"github.com/noah-isme/school-ops-api/internal/models"
	appErrors "github.com/noah-isme/school-ops-api/pkg/errors"
	"github.com/noah-isme/school-ops-api/pkg/export"
	"github.com/noah-isme/school-ops-api/pkg/jobs"
)

type sessionRepoStub struct {
	byID       map[string]*models.Session
	taken      map[string]bool
	listCalls  int
	lastFilter models.SessionFilter
}

func newSessionRepoStub() *sessionRepoStub {
	return &sessionRepoStub{byID: map[string]*models.Session{}, taken: map[string]bool{}}
}

func (s *sessionRepoStub) InsertIgnoreDuplicate(ctx context.Context, exec sqlx.ExtContext, session *models.Session) (bool, error) {
	key := session.ClassID + "/" + session.Date
	if s.taken[key] {
		return false, nil
	}
	s.taken[key] = true
	if session.ID == "" {
		session.ID = "sess-" + session.Date
	}
	stored := *session
	s.byID[session.ID] = &stored
	return true, nil
}

func (s *sessionRepoStub) FindByID(ctx context.Context, id string) (*models.Session, error) {
	session, ok := s.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *session
	return &copied, nil
}

func (s *sessionRepoStub) UpdateStatus(ctx context.Context, id string, status models.SessionStatus) error {
	session, ok := s.byID[id]
	if !ok {
		return sql.ErrNoRows
	}
	session.Status = status
	return nil
}

func (s *sessionRepoStub) List(ctx context.Context, filter models.SessionFilter) ([]models.Session, error) {
	s.listCalls++
	s.lastFilter = filter
	var out []models.Session
	for _, session := range s.byID {
		if session.Date >= filter.From && session.Date <= filter.To {
			out = append(out, *session)
		}
	}
	return out, nil
}

type classReaderStub struct{ ids map[string]bool }

func (c classReaderStub) FindByID(ctx context.Context, id string) (*models.ClassGroup, error) {
	if !c.ids[id] {
		return nil, sql.ErrNoRows
	}
	return &models.ClassGroup{ID: id}, nil
}

type rosterStub struct{ students map[string][]string }

func (r rosterStub) ListIDsByClass(ctx context.Context, classID string) ([]string, error) {
	return r.students[classID], nil
}

type enqueuerStub struct {
	jobs []jobs.Job
	err  error
}

func (e *enqueuerStub) Enqueue(job jobs.Job) error {
	if e.err != nil {
		return e.err
	}
	e.jobs = append(e.jobs, job)
	return nil
}

func newSessionServiceFixture() (*SessionService, *sessionRepoStub, *enqueuerStub) {
	repo := newSessionRepoStub()
	queue := &enqueuerStub{}
	svc := NewSessionService(
		repo,
		classReaderStub{ids: map[string]bool{"c1": true}},
		rosterStub{students: map[string][]string{"c1": {"st1", "st2"}}},
		queue,
		nil,
		nil,
		zap.NewNop(),
		SessionServiceConfig{DefaultStartTime: "10:00"},
	)
	return svc, repo, queue
}

func TestSessionServiceCreateManual(t *testing.T) {
	svc, _, _ := newSessionServiceFixture()

	session, err := svc.Create(context.Background(), dto.CreateSessionRequest{
		ClassID:    "c1",
		Date:       "2024-03-06",
		Type:       "MAKEUP",
		StudentIDs: []string{"st1", " st1 ", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, "10:00", session.StartTime)
	assert.Equal(t, models.SessionTypeMakeup, session.Type)
	assert.Equal(t, models.SessionStatusScheduled, session.Status)
	assert.Equal(t, models.StudentIDList{"st1"}, session.StudentIDs)

	_, err = svc.Create(context.Background(), dto.CreateSessionRequest{ClassID: "c1", Date: "2024-03-06"})
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceCreateValidation(t *testing.T) {
	svc, _, _ := newSessionServiceFixture()

	cases := []dto.CreateSessionRequest{
		{ClassID: "c1", Date: "06/03/2024"},
		{ClassID: "c1", Date: "2024-03-06", Type: "WORKSHOP"},
		{ClassID: "c1", Date: "2024-03-06", StartTime: "9am"},
		{Date: "2024-03-06"},
	}
	for _, req := range cases {
		_, err := svc.Create(context.Background(), req)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, "%+v", req)
	}

	_, err := svc.Create(context.Background(), dto.CreateSessionRequest{ClassID: "c404", Date: "2024-03-06"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceCompletingQueuesRollups(t *testing.T) {
	svc, repo, queue := newSessionServiceFixture()
	repo.byID["s1"] = &models.Session{ID: "s1", ClassID: "c1", Date: "2024-03-04", Status: models.SessionStatusInProgress}

	session, err := svc.UpdateStatus(context.Background(), "s1", dto.UpdateSessionStatusRequest{Status: "COMPLETED"})
	require.NoError(t, err)
	assert.Equal(t, models.SessionStatusCompleted, session.Status)
	require.Len(t, queue.jobs, 2)
	assert.Equal(t, RollupJobType, queue.jobs[0].Type)
	assert.Equal(t, "st1", queue.jobs[0].Payload)

	_, err = svc.UpdateStatus(context.Background(), "s1", dto.UpdateSessionStatusRequest{Status: "SCHEDULED"})
	require.NoError(t, err)
	assert.Len(t, queue.jobs, 4, "leaving COMPLETED also changes the roll-up")

	_, err = svc.UpdateStatus(context.Background(), "s1", dto.UpdateSessionStatusRequest{Status: "CANCELLED"})
	require.NoError(t, err)
	assert.Len(t, queue.jobs, 4)
}

func TestSessionServiceUpdateStatusErrors(t *testing.T) {
	svc, repo, queue := newSessionServiceFixture()
	queue.err = errors.New("queue stopped")
	repo.byID["s1"] = &models.Session{ID: "s1", ClassID: "c1", Date: "2024-03-04"}

	_, err := svc.UpdateStatus(context.Background(), "s1", dto.UpdateSessionStatusRequest{Status: "FINISHED"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateStatus(context.Background(), "nope", dto.UpdateSessionStatusRequest{Status: "COMPLETED"})
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.UpdateStatus(context.Background(), "s1", dto.UpdateSessionStatusRequest{Status: "COMPLETED"})
	assert.NoError(t, err, "enqueue failures are logged, not returned")
}

func TestSessionServiceListByMonth(t *testing.T) {
	svc, repo, _ := newSessionServiceFixture()
	repo.byID["a"] = &models.Session{ID: "a", ClassID: "c1", Date: "2024-02-29"}
	repo.byID["b"] = &models.Session{ID: "b", ClassID: "c1", Date: "2024-03-01"}

	sessions, err := svc.ListByMonth(context.Background(), dto.SessionListQuery{Month: "2024-02", ClassID: "c1", Status: "SCHEDULED"})
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "2024-02-01", repo.lastFilter.From)
	assert.Equal(t, "2024-02-29", repo.lastFilter.To)
	require.NotNil(t, repo.lastFilter.Status)

	empty, err := svc.ListByMonth(context.Background(), dto.SessionListQuery{Month: "2023-01"})
	require.NoError(t, err)
	assert.NotNil(t, empty)

	_, err = svc.ListByMonth(context.Background(), dto.SessionListQuery{Month: "2024"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestSessionServiceListByMonthUsesCache(t *testing.T) {
	repo := newSessionRepoStub()
	repo.byID["a"] = &models.Session{ID: "a", ClassID: "c1", Date: "2024-03-04"}
	cache := NewCacheService(&memoryCacheStub{values: map[string]string{}}, nil, time.Minute, zap.NewNop(), true)
	svc := NewSessionService(repo, classReaderStub{ids: map[string]bool{"c1": true}}, nil, nil, cache, nil, zap.NewNop(), SessionServiceConfig{})

	first, err := svc.ListByMonth(context.Background(), dto.SessionListQuery{Month: "2024-03"})
	require.NoError(t, err)
	second, err := svc.ListByMonth(context.Background(), dto.SessionListQuery{Month: "2024-03"})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.listCalls)
	assert.Equal(t, first[0].ID, second[0].ID)

	_, err = svc.Create(context.Background(), dto.CreateSessionRequest{ClassID: "c1", Date: "2024-03-05"})
	require.NoError(t, err)
	third, err := svc.ListByMonth(context.Background(), dto.SessionListQuery{Month: "2024-03"})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listCalls)
	assert.Len(t, third, 2)
}

func TestSessionServiceExport(t *testing.T) {
	svc, repo, _ := newSessionServiceFixture()
	repo.byID["a"] = &models.Session{ID: "a", ClassID: "c1", Date: "2024-03-04", StartTime: "09:00", Type: models.SessionTypeRegular, Status: models.SessionStatusScheduled}

	out, format, err := svc.Export(context.Background(), dto.SessionExportQuery{Month: "2024-03"})
	require.NoError(t, err)
	assert.Equal(t, export.FormatCSV, format)
	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "Date,Start,Class,Type,Status,Targets", lines[0])
	assert.Equal(t, "2024-03-04,09:00,c1,REGULAR,SCHEDULED,all", lines[1])

	pdf, format, err := svc.Export(context.Background(), dto.SessionExportQuery{Month: "2024-03", Format: "pdf"})
	require.NoError(t, err)
	assert.Equal(t, export.FormatPDF, format)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))

	_, _, err = svc.Export(context.Background(), dto.SessionExportQuery{Month: "2024-03", Format: "xls"})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
