// Package scheduling derives dated class sessions from weekly recurrence rules.
package scheduling

import (
	"encoding/json"
	"math"
	"strings"
)

// DefaultDurationMinutes applies when a stored rule has no usable duration.
const DefaultDurationMinutes = 60

// Durations above this bound are treated as unusable.
const maxDurationMinutes = math.MaxInt32

// Weekdays lists the canonical day names in time.Weekday order.
var Weekdays = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// Descriptor is a normalized weekly recurrence. An empty Time means no time was stored.
type Descriptor struct {
	Days            []string `json:"days"`
	Time            string   `json:"time,omitempty"`
	DurationMinutes int      `json:"durationMinutes"`
}

// Empty returns the descriptor used for missing or unreadable rules.
func Empty() Descriptor {
	return Descriptor{Days: []string{}, DurationMinutes: DefaultDurationMinutes}
}

// IsZero reports whether the rule fires on no day at all.
func (d Descriptor) IsZero() bool {
	return len(d.Days) == 0
}

// IsWeekday reports whether name is one of the canonical day names.
func IsWeekday(name string) bool {
	for _, day := range Weekdays {
		if day == name {
			return true
		}
	}
	return false
}

// Normalize decodes a stored recurrence rule. It accepts JSON text or bytes, a decoded map,
// a Descriptor, or nil, and never fails: anything unreadable yields Empty().
func Normalize(raw interface{}) Descriptor {
	fields, ok := toFields(raw)
	if !ok {
		return Empty()
	}

	out := Empty()
	out.Days = collectDays(fields)
	if t, ok := fields["time"].(string); ok {
		out.Time = strings.TrimSpace(t)
	}
	if d, ok := asNumber(fields["durationMinutes"]); ok && d >= 0 && d <= maxDurationMinutes {
		out.DurationMinutes = int(d)
	}
	return out
}

// Encode serializes a descriptor for the class schedule column.
func Encode(d Descriptor) (string, error) {
	normalized := Normalize(d)
	raw, err := json.Marshal(normalized)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func toFields(raw interface{}) (map[string]interface{}, bool) {
	switch v := raw.(type) {
	case nil:
		return nil, false
	case map[string]interface{}:
		return v, true
	case *string:
		if v == nil {
			return nil, false
		}
		return toFields(*v)
	case string:
		return decodeFields([]byte(v))
	case []byte:
		return decodeFields(v)
	case json.RawMessage:
		return decodeFields(v)
	case Descriptor:
		return descriptorFields(v), true
	case *Descriptor:
		if v == nil {
			return nil, false
		}
		return descriptorFields(*v), true
	default:
		return nil, false
	}
}

func decodeFields(raw []byte) (map[string]interface{}, bool) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return nil, false
	}
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func descriptorFields(d Descriptor) map[string]interface{} {
	days := make([]interface{}, 0, len(d.Days))
	for _, day := range d.Days {
		days = append(days, day)
	}
	fields := map[string]interface{}{
		"days":            days,
		"durationMinutes": float64(d.DurationMinutes),
	}
	if d.Time != "" {
		fields["time"] = d.Time
	}
	return fields
}

// collectDays merges "days" with the legacy single "dayOfWeek" field, keeping first-seen order.
func collectDays(fields map[string]interface{}) []string {
	var candidates []string
	switch list := fields["days"].(type) {
	case []interface{}:
		for _, item := range list {
			if s, ok := item.(string); ok {
				candidates = append(candidates, s)
			}
		}
	case []string:
		candidates = append(candidates, list...)
	}
	if legacy, ok := fields["dayOfWeek"].(string); ok {
		candidates = append(candidates, legacy)
	}

	days := make([]string, 0, len(candidates))
	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		day := strings.TrimSpace(candidate)
		if !IsWeekday(day) {
			continue
		}
		if _, dup := seen[day]; dup {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	return days
}

func asNumber(v interface{}) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
