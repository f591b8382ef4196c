package generic_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/trash-schedule/generic"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func date(year int, month time.Month, day int) generic.TimePoint {
	return generic.NewTimePoint(year, month, day)
}

func next(t *testing.T, r generic.Rule, from generic.TimePoint) generic.TimePoint {
	t.Helper()
	got, ok := generic.NextOccurrence(r, from)
	require.True(t, ok, "rule %s should occur", generic.Describe(r))
	return got
}

// everyDay walks [from, from+n) for property checks.
func everyDay(from generic.TimePoint, n int, fn func(d generic.TimePoint)) {
	for i := 0; i < n; i++ {
		fn(from.AddDays(i))
	}
}

// =============================================================================
// WEEKDAY
// =============================================================================

func TestWeekdayRule_IsActive(t *testing.T) {
	// GIVEN: Rules for Wednesday and Thursday
	// WHEN: Checking Thursday 2018-03-01
	// THEN: Only the Thursday rule is active
	wed := generic.WeekdayRule{Weekday: time.Wednesday}
	thu := generic.WeekdayRule{Weekday: time.Thursday}

	assert.True(t, thu.IsActive(date(2018, time.March, 1)))
	assert.False(t, wed.IsActive(date(2018, time.March, 1)))
}

func TestWeekdayRule_NextOccurrence(t *testing.T) {
	today := date(2019, time.November, 27) // Wednesday

	tests := []struct {
		name string
		from generic.TimePoint
		day  time.Weekday
		want generic.TimePoint
	}{
		{"same day", today, time.Wednesday, today},
		{"later this week", today, time.Saturday, date(2019, time.November, 30)},
		{"next week", date(2019, time.November, 20), time.Tuesday, date(2019, time.November, 26)},
		{"crosses month", today, time.Tuesday, date(2019, time.December, 3)},
		{"crosses year", date(2019, time.December, 31), time.Monday, date(2020, time.January, 6)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := next(t, generic.WeekdayRule{Weekday: tt.day}, tt.from)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestWeekdayRule_NextOccurrenceWithinSixDays(t *testing.T) {
	// Property: next occurrence is within [d, d+6], has the rule's weekday,
	// and no earlier date in the range is active.
	for w := time.Sunday; w <= time.Saturday; w++ {
		rule := generic.WeekdayRule{Weekday: w}
		everyDay(date(2024, time.February, 20), 21, func(d generic.TimePoint) {
			got := next(t, rule, d)
			span := generic.DaysBetween(d, got)
			assert.GreaterOrEqual(t, span, 0)
			assert.LessOrEqual(t, span, 6)
			assert.Equal(t, w, got.Weekday())
			assert.True(t, rule.IsActive(got))
			for i := 0; i < span; i++ {
				assert.False(t, rule.IsActive(d.AddDays(i)), "%s active before %s", d.AddDays(i), got)
			}
		})
	}
}

// =============================================================================
// MONTH DAY
// =============================================================================

func TestMonthDayRule_IsActive(t *testing.T) {
	rule := generic.MonthDayRule{Day: 11}

	assert.True(t, rule.IsActive(date(2018, time.March, 11)))
	assert.False(t, rule.IsActive(date(2018, time.March, 12)))
}

func TestMonthDayRule_NextOccurrence(t *testing.T) {
	today := date(2019, time.November, 27)

	tests := []struct {
		name string
		from generic.TimePoint
		day  int
		want generic.TimePoint
	}{
		{"same day", today, 27, today},
		{"later this month", today, 29, date(2019, time.November, 29)},
		{"next month", today, 1, date(2019, time.December, 1)},
		{"next year", date(2019, time.December, 15), 3, date(2020, time.January, 3)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := next(t, generic.MonthDayRule{Day: tt.day}, tt.from)
			assert.Equal(t, tt.want.String(), got.String())
		})
	}
}

func TestMonthDayRule_ShortMonthsAreSkipped(t *testing.T) {
	// GIVEN: Days 29..31 evaluated against February and 30-day months
	// WHEN: Computing the next occurrence
	// THEN: Months without that day are skipped, never wrapped into March 1st etc.
	tests := []struct {
		name string
		from generic.TimePoint
		day  int
		want generic.TimePoint
	}{
		{"31st from February", date(2019, time.February, 10), 31, date(2019, time.March, 31)},
		{"30th from late January skips February", date(2019, time.January, 31), 30, date(2019, time.March, 30)},
		{"29th in non-leap February", date(2019, time.February, 1), 29, date(2019, time.March, 29)},
		{"29th in leap February", date(2020, time.February, 1), 29, date(2020, time.February, 29)},
		{"31st from April", date(2019, time.April, 1), 31, date(2019, time.May, 31)},
		{"31st in August", date(2019, time.August, 1), 31, date(2019, time.August, 31)},
		{"31st after August 31st", date(2019, time.September, 1), 31, date(2019, time.October, 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := generic.MonthDayRule{Day: tt.day}
			got := next(t, rule, tt.from)
			assert.Equal(t, tt.want.String(), got.String())
			assert.True(t, rule.IsActive(got))
		})
	}
}

func TestMonthDayRule_OutOfRangeNeverOccurs(t *testing.T) {
	for _, day := range []int{0, 32, -1} {
		_, ok := generic.MonthDayRule{Day: day}.NextOccurrence(date(2019, time.January, 1))
		assert.False(t, ok, "day %d", day)
	}
}

// =============================================================================
// N-TH WEEKDAY
// =============================================================================

func TestNthWeekdayRule_IsActive(t *testing.T) {
	// 2018-03-12 is the 2nd Monday of March.
	rule := generic.NthWeekdayRule{Weekday: time.Monday, Occurrence: 2}

	assert.True(t, rule.IsActive(date(2018, time.March, 12)))
	assert.False(t, rule.IsActive(date(2018, time.March, 5)))
	assert.False(t, rule.IsActive(date(2018, time.March, 13)))
}

func TestNthWeekdayRule_NextOccurrence(t *testing.T) {
	tests := []struct {
		name string
		from generic.TimePoint
		rule generic.NthWeekdayRule
		want generic.TimePoint
	}{
		{"2nd Wednesday on the day", date(2019, time.March, 13),
			generic.NthWeekdayRule{Weekday: time.Wednesday, Occurrence: 2}, date(2019, time.March, 13)},
		{"2nd Wednesday after it passed", date(2019, time.March, 15),
			generic.NthWeekdayRule{Weekday: time.Wednesday, Occurrence: 2}, date(2019, time.April, 10)},
		{"4th Friday on the day", date(2019, time.November, 22),
			generic.NthWeekdayRule{Weekday: time.Friday, Occurrence: 4}, date(2019, time.November, 22)},
		{"4th Saturday same week", date(2019, time.November, 22),
			generic.NthWeekdayRule{Weekday: time.Saturday, Occurrence: 4}, date(2019, time.November, 23)},
		{"4th Sunday next week", date(2019, time.November, 22),
			generic.NthWeekdayRule{Weekday: time.Sunday, Occurrence: 4}, date(2019, time.November, 24)},
		{"1st Sunday crosses month", date(2019, time.November, 22),
			generic.NthWeekdayRule{Weekday: time.Sunday, Occurrence: 1}, date(2019, time.December, 1)},
		{"5th Monday skips months without one", date(2019, time.February, 1),
			generic.NthWeekdayRule{Weekday: time.Monday, Occurrence: 5}, date(2019, time.April, 29)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := next(t, tt.rule, tt.from)
			assert.Equal(t, tt.want.String(), got.String())
			assert.True(t, tt.rule.IsActive(got))
		})
	}
}

func TestNthWeekdayRule_NoEarlierActiveDay(t *testing.T) {
	for occ := 1; occ <= 5; occ++ {
		rule := generic.NthWeekdayRule{Weekday: time.Thursday, Occurrence: occ}
		everyDay(date(2023, time.December, 1), 70, func(d generic.TimePoint) {
			got := next(t, rule, d)
			for cur := d; cur.Before(got); cur = cur.AddDays(1) {
				require.False(t, rule.IsActive(cur), "occ %d from %s: %s active before %s", occ, d, cur, got)
			}
		})
	}
}

// =============================================================================
// FORTNIGHTLY
// =============================================================================

func TestFortnightlyRule_IsActive(t *testing.T) {
	// GIVEN: Anchor week starting Sunday 2018-09-16, collection on Wednesday
	rule := generic.FortnightlyRule{Weekday: time.Wednesday, Anchor: date(2018, time.September, 16)}

	tests := []struct {
		name string
		d    generic.TimePoint
		want bool
	}{
		{"anchor week", date(2018, time.September, 19), true},
		{"following week", date(2018, time.September, 26), false},
		{"two weeks later", date(2018, time.October, 3), true},
		{"week before anchor", date(2018, time.September, 12), false},
		{"four weeks before anchor", date(2018, time.August, 22), true},
		{"right week, wrong weekday", date(2018, time.September, 20), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, rule.IsActive(tt.d))
		})
	}
}

func TestFortnightlyRule_AnchorMidWeek(t *testing.T) {
	// The anchor's own weekday is irrelevant: its week's Sunday is the phase.
	rule := generic.FortnightlyRule{Weekday: time.Monday, Anchor: date(2018, time.September, 21)}

	assert.True(t, rule.IsActive(date(2018, time.September, 17)))
	assert.False(t, rule.IsActive(date(2018, time.September, 24)))
}

func TestFortnightlyRule_NextOccurrence(t *testing.T) {
	tests := []struct {
		name   string
		from   generic.TimePoint
		anchor generic.TimePoint
		day    time.Weekday
		want   generic.TimePoint
	}{
		{"on the day", date(2019, time.November, 22), date(2019, time.November, 17), time.Friday, date(2019, time.November, 22)},
		{"same week", date(2019, time.November, 21), date(2019, time.November, 3), time.Friday, date(2019, time.November, 22)},
		{"off week", date(2019, time.November, 21), date(2019, time.November, 10), time.Friday, date(2019, time.November, 29)},
		{"anchor in the future", date(2019, time.November, 21), date(2019, time.November, 24), time.Friday, date(2019, time.November, 29)},
		{"crosses month", date(2019, time.November, 21), date(2019, time.November, 17), time.Monday, date(2019, time.December, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := generic.FortnightlyRule{Weekday: tt.day, Anchor: tt.anchor}
			got := next(t, rule, tt.from)
			assert.Equal(t, tt.want.String(), got.String())
			assert.True(t, rule.IsActive(got))
		})
	}
}

func TestFortnightlyRule_Periodicity(t *testing.T) {
	// Property: activity repeats every 14 days and flips every 7 days on the
	// rule's weekday.
	anchors := []generic.TimePoint{
		date(2018, time.September, 16),
		date(2021, time.March, 3),
		date(2030, time.January, 1),
	}
	for _, anchor := range anchors {
		for w := time.Sunday; w <= time.Saturday; w++ {
			rule := generic.FortnightlyRule{Weekday: w, Anchor: anchor}
			everyDay(date(2024, time.October, 1), 60, func(d generic.TimePoint) {
				assert.Equal(t, rule.IsActive(d), rule.IsActive(d.AddDays(14)), "14-day period from %s", d)
				if d.Weekday() == w {
					assert.NotEqual(t, rule.IsActive(d), rule.IsActive(d.AddDays(7)), "7-day flip from %s", d)
				}
			})
		}
	}
}

// =============================================================================
// NONE
// =============================================================================

func TestNoneRule_NeverActive(t *testing.T) {
	var rules = []generic.Rule{generic.NoneRule{}, nil}
	for _, r := range rules {
		everyDay(date(2020, time.January, 1), 31, func(d generic.TimePoint) {
			assert.False(t, generic.IsActive(r, d))
		})
		_, ok := generic.NextOccurrence(r, date(2020, time.January, 1))
		assert.False(t, ok)
	}
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestRules_Deterministic(t *testing.T) {
	rules := []generic.Rule{
		generic.WeekdayRule{Weekday: time.Tuesday},
		generic.MonthDayRule{Day: 31},
		generic.NthWeekdayRule{Weekday: time.Friday, Occurrence: 3},
		generic.FortnightlyRule{Weekday: time.Sunday, Anchor: date(2022, time.May, 8)},
	}
	from := date(2025, time.February, 14)
	for _, r := range rules {
		first, _ := generic.NextOccurrence(r, from)
		for i := 0; i < 5; i++ {
			again, _ := generic.NextOccurrence(r, from)
			assert.True(t, first.Equal(again), fmt.Sprintf("%s drifted", generic.Describe(r)))
		}
	}
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, "every Wednesday", generic.Describe(generic.WeekdayRule{Weekday: time.Wednesday}))
	assert.Equal(t, "day 11 of every month", generic.Describe(generic.MonthDayRule{Day: 11}))
	assert.Equal(t, "Monday #2 of every month", generic.Describe(generic.NthWeekdayRule{Weekday: time.Monday, Occurrence: 2}))
	assert.Equal(t, "never", generic.Describe(generic.NoneRule{}))
}
