package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// SessionType distinguishes generated sessions from ad-hoc ones.
type SessionType string

const (
	SessionTypeRegular SessionType = "REGULAR"
	SessionTypeMakeup  SessionType = "MAKEUP"
	SessionTypeTrial   SessionType = "TRIAL"
)

// Valid returns true when the type is supported.
func (t SessionType) Valid() bool {
	switch t {
	case SessionTypeRegular, SessionTypeMakeup, SessionTypeTrial:
		return true
	default:
		return false
	}
}

// SessionStatus tracks a session through its day. Any transition is allowed.
type SessionStatus string

const (
	SessionStatusScheduled  SessionStatus = "SCHEDULED"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
)

// Valid returns true when the status is supported.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionStatusScheduled, SessionStatusInProgress, SessionStatusCompleted, SessionStatusCancelled:
		return true
	default:
		return false
	}
}

// Session is a single dated meeting of a class.
type Session struct {
	ID         string        `db:"id" json:"id"`
	ClassID    string        `db:"class_id" json:"class_id"`
	Date       string        `db:"session_date" json:"date"`
	StartTime  string        `db:"start_time" json:"start_time"`
	Type       SessionType   `db:"type" json:"type"`
	Status     SessionStatus `db:"status" json:"status"`
	StudentIDs StudentIDList `db:"student_ids" json:"student_ids,omitempty"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

// AppliesTo reports whether the session targets the student. An empty list targets everyone enrolled.
func (s Session) AppliesTo(studentID string) bool {
	if len(s.StudentIDs) == 0 {
		return true
	}
	for _, id := range s.StudentIDs {
		if id == studentID {
			return true
		}
	}
	return false
}

// SessionFilter scopes month listings.
type SessionFilter struct {
	ClassID string
	From    string
	To      string
	Status  *SessionStatus
}

// StudentIDList is persisted as a JSON array; NULL and "" decode to an empty list.
type StudentIDList []string

// Value implements driver.Valuer.
func (l StudentIDList) Value() (driver.Value, error) {
	if len(l) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

// Scan implements sql.Scanner.
func (l *StudentIDList) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("unsupported student_ids type %T", src)
	}
	if len(raw) == 0 {
		*l = nil
		return nil
	}
	var ids []string
	if err := json.Unmarshal(raw, &ids); err != nil {
		return fmt.Errorf("decode student_ids: %w", err)
	}
	*l = ids
	return nil
}
