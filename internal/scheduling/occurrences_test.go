package scheduling

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOccurrencesInMonthLeapFebruary(t *testing.T) {
	got := OccurrencesInMonth(Descriptor{Days: []string{"Thursday"}}, 2024, time.February)
	assert.Equal(t, []string{"2024-02-01", "2024-02-08", "2024-02-15", "2024-02-22", "2024-02-29"}, got)
}

func TestOccurrencesInMonthEmptyDays(t *testing.T) {
	for month := time.January; month <= time.December; month++ {
		assert.Empty(t, OccurrencesInMonth(Empty(), 2024, month))
	}
}

func TestOccurrencesInMonthMultipleDaysAscending(t *testing.T) {
	got := OccurrencesInMonth(Descriptor{Days: []string{"Friday", "Monday"}}, 2024, time.March)
	assert.Equal(t, []string{
		"2024-03-01", "2024-03-04", "2024-03-08", "2024-03-11", "2024-03-15",
		"2024-03-18", "2024-03-22", "2024-03-25", "2024-03-29",
	}, got)
}

func TestOccurrencesInMonthStaysInsideMonth(t *testing.T) {
	all := Descriptor{Days: Weekdays}
	cases := map[time.Month]int{
		time.February: 28,
		time.April:    30,
		time.December: 31,
	}
	for month, days := range cases {
		got := OccurrencesInMonth(all, 2023, month)
		require.Len(t, got, days)
		first, last := MonthRange(2023, month)
		assert.Equal(t, first, got[0])
		assert.Equal(t, last, got[len(got)-1])
	}
}

func TestLastDayOfMonth(t *testing.T) {
	assert.Equal(t, 29, LastDayOfMonth(2024, time.February))
	assert.Equal(t, 28, LastDayOfMonth(2100, time.February))
	assert.Equal(t, 31, LastDayOfMonth(2024, time.December))
}

func TestTargetMonthsCrossesYearBoundary(t *testing.T) {
	ref := time.Date(2024, time.December, 31, 23, 0, 0, 0, time.UTC)
	got := TargetMonths(ref, 2)
	assert.Equal(t, []Month{{2024, time.December}, {2025, time.January}, {2025, time.February}}, got)

	assert.Len(t, TargetMonths(ref, -1), 1)
}

func TestParseMonth(t *testing.T) {
	m, err := ParseMonth("2024-03")
	require.NoError(t, err)
	assert.Equal(t, Month{2024, time.March}, m)
	assert.Equal(t, "2024-03", m.String())

	_, err = ParseMonth("2024-13")
	assert.Error(t, err)
}
