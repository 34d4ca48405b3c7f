package scheduling

import (
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/school-ops-api/internal/models"
)

// DefaultStartTime is used when neither the rule nor the caller supplies a start time.
const DefaultStartTime = "09:00"

// Reconciler computes the sessions missing for a class month.
type Reconciler struct {
	DefaultStartTime string
	NewID            func() string
}

// NewReconciler returns a reconciler using defaultStart for rules without a time.
func NewReconciler(defaultStart string) *Reconciler {
	if defaultStart == "" {
		defaultStart = DefaultStartTime
	}
	return &Reconciler{DefaultStartTime: defaultStart, NewID: uuid.NewString}
}

// Reconcile returns a new REGULAR, SCHEDULED session for every occurrence of d in the month
// that has no entry in existing. Existing dates count regardless of the session's status,
// so cancelled or completed sessions are never recreated.
func (r *Reconciler) Reconcile(classID string, year int, month time.Month, d Descriptor, existing []string) []models.Session {
	occurrences := OccurrencesInMonth(d, year, month)
	if len(occurrences) == 0 {
		return []models.Session{}
	}

	taken := make(map[string]struct{}, len(existing))
	for _, date := range existing {
		taken[date] = struct{}{}
	}

	start := d.Time
	if start == "" {
		start = r.DefaultStartTime
	}
	newID := r.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	sessions := make([]models.Session, 0, len(occurrences))
	for _, date := range occurrences {
		if _, ok := taken[date]; ok {
			continue
		}
		taken[date] = struct{}{}
		sessions = append(sessions, models.Session{
			ID:        newID(),
			ClassID:   classID,
			Date:      date,
			StartTime: start,
			Type:      models.SessionTypeRegular,
			Status:    models.SessionStatusScheduled,
		})
	}
	return sessions
}
