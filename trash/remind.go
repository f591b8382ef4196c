/*
remind.go - Weekly reminder planning

PURPOSE:
  Computes which categories go out on each remaining day of this week, or
  on every day of next week, and turns the result into scheduled reminder
  requests. Delivery belongs to the notification collaborator.

WEEKS (Sunday..Saturday, relative to the user's local today):
  ThisWeek: offsets 1 .. 6-weekday   (tomorrow through Saturday)
  NextWeek: offsets 7-weekday .. 13-weekday

  Together the two cover tomorrow through 13 days out exactly once for
  every weekday. On a Saturday ThisWeek is empty. Callers read today once
  per request and pass it in, so a call never straddles local midnight.

SEE ALSO:
  - aggregate.go: EnabledFor
  - api/scheduler.go: Periodic planning for subscribers
*/
package trash

import (
	"fmt"
	"strings"
	"time"

	"github.com/warp/trash-schedule/generic"
)

// Week selects the reminder period.
type Week int

const (
	ThisWeek Week = 0
	NextWeek Week = 1
)

func (w Week) String() string {
	switch w {
	case ThisWeek:
		return "this"
	case NextWeek:
		return "next"
	}
	return fmt.Sprintf("Week(%d)", int(w))
}

// ParseWeek accepts "0"/"this" and "1"/"next".
func ParseWeek(s string) (Week, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "0", "this":
		return ThisWeek, nil
	case "1", "next":
		return NextWeek, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidWeek, s)
}

// DaySchedule is the enabled categories for one day offset.
type DaySchedule struct {
	DayOffset int               `json:"day_offset"`
	Date      generic.TimePoint `json:"date"`
	Entries   []EnabledEntry    `json:"entries"`
}

// Period is the span of week relative to today. ThisWeek on a Saturday is
// an empty period.
func (w Week) Period(today generic.TimePoint) generic.Period {
	current := generic.WeekContaining(today)
	switch w {
	case ThisWeek:
		return generic.Period{Start: today.AddDays(1), End: current.End}
	case NextWeek:
		return current.NextPeriod()
	}
	return generic.Period{Start: today, End: today.AddDays(-1)}
}

// RemindBody evaluates every day of the week. Days with no enabled
// category are kept so the caller sees the whole period.
func RemindBody(week Week, categories []Category, today generic.TimePoint, names NameResolver) []DaySchedule {
	period := week.Period(today)
	if period.IsEmpty() {
		return []DaySchedule{}
	}
	dates := period.Days()
	result := make([]DaySchedule, 0, len(dates))
	for _, date := range dates {
		result = append(result, DaySchedule{
			DayOffset: generic.DaysBetween(today, date),
			Date:      date,
			Entries:   EnabledFor(categories, date, names),
		})
	}
	return result
}

// =============================================================================
// REMINDER REQUESTS
// =============================================================================

// ReminderRequest asks for one reminder at an absolute local time.
type ReminderRequest struct {
	// ScheduledTime is local wall time, "2006-01-02T15:04:00.000".
	ScheduledTime string         `json:"scheduled_time"`
	Locale        string         `json:"locale"`
	DayOffset     int            `json:"day_offset"`
	Entries       []EnabledEntry `json:"entries"`
}

// ParseClock validates a local "HH:MM".
func ParseClock(at string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", at)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, at)
	}
	return t.Hour(), t.Minute(), nil
}

// ReminderRequests schedules one reminder per planned day at the local
// time at ("HH:MM").
func ReminderRequests(days []DaySchedule, at, locale string) ([]ReminderRequest, error) {
	hour, minute, err := ParseClock(at)
	if err != nil {
		return nil, err
	}
	requests := make([]ReminderRequest, 0, len(days))
	for _, d := range days {
		requests = append(requests, ReminderRequest{
			ScheduledTime: fmt.Sprintf("%sT%02d:%02d:00.000", d.Date.String(), hour, minute),
			Locale:        locale,
			DayOffset:     d.DayOffset,
			Entries:       d.Entries,
		})
	}
	return requests, nil
}
