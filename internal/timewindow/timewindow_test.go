package timewindow

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func mustSeoul(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Seoul")
	require.NoError(t, err)
	return loc
}

func TestDayBoundaryAtCutoverHour(t *testing.T) {
	loc := mustSeoul(t)
	calc, err := New(3, loc)
	require.NoError(t, err)

	before := time.Date(2024, time.March, 12, 2, 59, 59, 0, loc)
	at := time.Date(2024, time.March, 12, 3, 0, 0, 0, loc)

	require.Equal(t, time.Date(2024, time.March, 11, 0, 0, 0, 0, loc), calc.LogicalDate(before))
	require.Equal(t, time.Date(2024, time.March, 12, 0, 0, 0, 0, loc), calc.LogicalDate(at))

	day := calc.Day(before)
	require.Equal(t, time.Date(2024, time.March, 11, 3, 0, 0, 0, loc), day.Start)
	require.Equal(t, time.Date(2024, time.March, 12, 3, 0, 0, 0, loc), day.End)
	require.True(t, day.Contains(before))
	require.False(t, day.Contains(at))
	require.True(t, calc.Day(at).Contains(at))
}

func TestWeekStartsMondayAtCutover(t *testing.T) {
	loc := mustSeoul(t)
	calc, err := New(3, loc)
	require.NoError(t, err)

	// Sunday 2024-03-17 23:00 belongs to the week of Monday 2024-03-11.
	sunday := time.Date(2024, time.March, 17, 23, 0, 0, 0, loc)
	week := calc.Week(sunday)
	require.Equal(t, time.Date(2024, time.March, 11, 3, 0, 0, 0, loc), week.Start)
	require.Equal(t, time.Date(2024, time.March, 18, 3, 0, 0, 0, loc), week.End)

	// Monday 02:00 is still the previous logical Sunday.
	earlyMonday := time.Date(2024, time.March, 18, 2, 0, 0, 0, loc)
	require.Equal(t, week, calc.Week(earlyMonday))

	mondayCutover := time.Date(2024, time.March, 18, 3, 0, 0, 0, loc)
	require.Equal(t, time.Date(2024, time.March, 18, 3, 0, 0, 0, loc), calc.Week(mondayCutover).Start)
}

func TestMonthAnchoredAtCutover(t *testing.T) {
	loc := mustSeoul(t)
	calc, err := New(3, loc)
	require.NoError(t, err)

	// 1 April 01:00 is still in the logical month of March.
	firstOfApril := time.Date(2024, time.April, 1, 1, 0, 0, 0, loc)
	month := calc.Month(firstOfApril)
	require.Equal(t, time.Date(2024, time.March, 1, 3, 0, 0, 0, loc), month.Start)
	require.Equal(t, time.Date(2024, time.April, 1, 3, 0, 0, 0, loc), month.End)

	december := calc.Month(time.Date(2024, time.December, 20, 12, 0, 0, 0, loc))
	require.Equal(t, time.Date(2025, time.January, 1, 3, 0, 0, 0, loc), december.End)
}

func TestDayOfAndIsToday(t *testing.T) {
	loc := mustSeoul(t)
	calc, err := New(3, loc)
	require.NoError(t, err)

	now := time.Date(2024, time.March, 12, 1, 30, 0, 0, loc)
	require.True(t, calc.IsToday(time.Date(2024, time.March, 11, 0, 0, 0, 0, loc), now))
	require.False(t, calc.IsToday(time.Date(2024, time.March, 12, 0, 0, 0, 0, loc), now))

	w := calc.DayOf(time.Date(2024, time.March, 11, 18, 0, 0, 0, loc))
	require.Equal(t, 24*time.Hour, w.Duration())
}

func TestNewRejectsInvalidHour(t *testing.T) {
	_, err := New(24, time.UTC)
	require.Error(t, err)
	_, err = New(-1, time.UTC)
	require.Error(t, err)
}
