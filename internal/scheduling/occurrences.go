package scheduling

import "time"

// DateLayout is the calendar date format used for session dates.
const DateLayout = "2006-01-02"

// OccurrencesInMonth returns the ascending dates within the month on which d fires.
// Arithmetic is done in UTC so the host timezone never shifts a date.
func OccurrencesInMonth(d Descriptor, year int, month time.Month) []string {
	if d.IsZero() {
		return []string{}
	}
	wanted := make(map[time.Weekday]struct{}, len(d.Days))
	for i, name := range Weekdays {
		for _, day := range d.Days {
			if day == name {
				wanted[time.Weekday(i)] = struct{}{}
			}
		}
	}

	last := LastDayOfMonth(year, month)
	dates := make([]string, 0, 5*len(wanted))
	for day := 1; day <= last; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if _, ok := wanted[date.Weekday()]; ok {
			dates = append(dates, date.Format(DateLayout))
		}
	}
	return dates
}

// LastDayOfMonth uses day zero of the following month.
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MonthRange returns the first and last dates of the month as YYYY-MM-DD.
func MonthRange(year int, month time.Month) (string, string) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(year, month, LastDayOfMonth(year, month), 0, 0, 0, 0, time.UTC)
	return first.Format(DateLayout), last.Format(DateLayout)
}

// Month identifies a calendar month.
type Month struct {
	Year  int
	Month time.Month
}

// String formats the month as YYYY-MM.
func (m Month) String() string {
	return time.Date(m.Year, m.Month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// ParseMonth parses a YYYY-MM value.
func ParseMonth(raw string) (Month, error) {
	t, err := time.Parse("2006-01", raw)
	if err != nil {
		return Month{}, err
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// TargetMonths returns the month containing ref followed by lookahead further months.
func TargetMonths(ref time.Time, lookahead int) []Month {
	if lookahead < 0 {
		lookahead = 0
	}
	ref = ref.UTC()
	months := make([]Month, 0, lookahead+1)
	for i := 0; i <= lookahead; i++ {
		first := time.Date(ref.Year(), ref.Month()+time.Month(i), 1, 0, 0, 0, 0, time.UTC)
		months = append(months, Month{Year: first.Year(), Month: first.Month()})
	}
	return months
}
