/*
rule.go - Recurrence rules for collection days

PURPOSE:
  A Rule answers two questions about one calendar date:
    - IsActive(d): may the category be put out on d?
    - NextOccurrence(from): the first date >= from on which it may.
  Both are pure functions of the rule and the date.

RULE KINDS (stored discriminator in parentheses):
  WeekdayRule     (weekday)  every week on a weekday
  MonthDayRule    (month)    a fixed day of every month
  NthWeekdayRule  (biweek)   the n-th given weekday of every month
  FortnightlyRule (evweek)   every second week on a weekday, phase-locked
                             to an anchor date
  NoneRule        (none)     placeholder, never active

CLOSED SET:
  Rule carries an unexported method, so only this package can add kinds.
  A new kind must implement IsActive and NextOccurrence to compile, and
  the type switch in Describe must be extended.

SEE ALSO:
  - factory/schedule.go: decoding rules from stored JSON
  - trash/aggregate.go, trash/group.go: callers
*/
package generic

import (
	"fmt"
	"time"
)

// RuleKind is the stored discriminator of a rule.
type RuleKind string

const (
	KindWeekday     RuleKind = "weekday"
	KindMonthDay    RuleKind = "month"
	KindNthWeekday  RuleKind = "biweek"
	KindFortnightly RuleKind = "evweek"
	KindNone        RuleKind = "none"
)

// Rule is one recurrence pattern attached to a category.
type Rule interface {
	Kind() RuleKind
	IsActive(d TimePoint) bool
	// NextOccurrence returns the first active date on or after from.
	// ok is false only for rules that never occur.
	NextOccurrence(from TimePoint) (next TimePoint, ok bool)

	sealed()
}

// IsActive treats a nil rule as NoneRule.
func IsActive(r Rule, d TimePoint) bool {
	if r == nil {
		return false
	}
	return r.IsActive(d)
}

// NextOccurrence treats a nil rule as NoneRule.
func NextOccurrence(r Rule, from TimePoint) (TimePoint, bool) {
	if r == nil {
		return TimePoint{}, false
	}
	return r.NextOccurrence(from)
}

// nextWeekday is the first date >= from falling on w.
func nextWeekday(from TimePoint, w time.Weekday) TimePoint {
	return from.AddDays((int(w) - int(from.Weekday()) + 7) % 7)
}

// =============================================================================
// WEEKDAY
// =============================================================================

type WeekdayRule struct {
	Weekday time.Weekday
}

func (r WeekdayRule) Kind() RuleKind { return KindWeekday }
func (WeekdayRule) sealed()          {}

func (r WeekdayRule) IsActive(d TimePoint) bool { return d.Weekday() == r.Weekday }

func (r WeekdayRule) NextOccurrence(from TimePoint) (TimePoint, bool) {
	return nextWeekday(from, r.Weekday), true
}

// =============================================================================
// MONTH DAY
// =============================================================================

// MonthDayRule is active on one day of every month. Months that do not
// have Day (e.g. the 31st in April) are skipped, never wrapped into the
// following month.
type MonthDayRule struct {
	Day int
}

func (r MonthDayRule) Kind() RuleKind { return KindMonthDay }
func (MonthDayRule) sealed()          {}

func (r MonthDayRule) IsActive(d TimePoint) bool { return d.Day() == r.Day }

func (r MonthDayRule) NextOccurrence(from TimePoint) (TimePoint, bool) {
	if r.Day < 1 || r.Day > 31 {
		return TimePoint{}, false
	}
	if r.Day >= from.Day() && r.Day <= DaysInMonth(from.Year(), from.Month()) {
		return NewTimePoint(from.Year(), from.Month(), r.Day), true
	}
	// Every day 1..31 exists at least once in any 12 consecutive months.
	month := StartOfMonth(from.Year(), from.Month())
	for i := 0; i < 12; i++ {
		month = StartOfMonth(month.Year(), month.Month()+1)
		if r.Day <= DaysInMonth(month.Year(), month.Month()) {
			return NewTimePoint(month.Year(), month.Month(), r.Day), true
		}
	}
	return TimePoint{}, false
}

// =============================================================================
// N-TH WEEKDAY OF MONTH
// =============================================================================

// NthWeekdayRule is active on the Occurrence-th Weekday of each month, where
// the occurrence of a date is ceil(dayOfMonth / 7).
type NthWeekdayRule struct {
	Weekday    time.Weekday
	Occurrence int
}

func (r NthWeekdayRule) Kind() RuleKind { return KindNthWeekday }
func (NthWeekdayRule) sealed()          {}

func (r NthWeekdayRule) IsActive(d TimePoint) bool {
	return d.Weekday() == r.Weekday && d.WeekOfMonth() == r.Occurrence
}

func (r NthWeekdayRule) NextOccurrence(from TimePoint) (TimePoint, bool) {
	if r.Occurrence < 1 || r.Occurrence > 5 {
		return TimePoint{}, false
	}
	next := nextWeekday(from, r.Weekday)
	turn := next.WeekOfMonth()
	month := next.Month()
	// A 5th weekday appears within any 5 consecutive months, so 9 weeks per
	// month is a generous bound.
	for i := 0; turn != r.Occurrence && i < 60; i++ {
		next = next.AddDays(7)
		if next.Month() != month {
			turn = 1
			month = next.Month()
		} else {
			turn++
		}
	}
	if turn != r.Occurrence {
		return TimePoint{}, false
	}
	return next, true
}

// =============================================================================
// FORTNIGHTLY
// =============================================================================

// FortnightlyRule is active on Weekday in every second week. A week is in
// phase when the number of days between its Sunday and the Sunday of the
// anchor's week is a multiple of 14 (zero included, either direction).
type FortnightlyRule struct {
	Weekday time.Weekday
	Anchor  TimePoint
}

func (r FortnightlyRule) Kind() RuleKind { return KindFortnightly }
func (FortnightlyRule) sealed()          {}

func (r FortnightlyRule) inPhase(d TimePoint) bool {
	weeks := DaysBetween(r.Anchor.StartOfWeek(), d.StartOfWeek()) / 7
	return weeks%2 == 0
}

func (r FortnightlyRule) IsActive(d TimePoint) bool {
	return d.Weekday() == r.Weekday && r.inPhase(d)
}

func (r FortnightlyRule) NextOccurrence(from TimePoint) (TimePoint, bool) {
	next := nextWeekday(from, r.Weekday)
	if !r.inPhase(next) {
		next = next.AddDays(7)
	}
	return next, true
}

// =============================================================================
// NONE
// =============================================================================

type NoneRule struct{}

func (NoneRule) Kind() RuleKind                             { return KindNone }
func (NoneRule) sealed()                                    {}
func (NoneRule) IsActive(TimePoint) bool                    { return false }
func (NoneRule) NextOccurrence(TimePoint) (TimePoint, bool) { return TimePoint{}, false }

// Describe renders a rule for logs and CLI output.
func Describe(r Rule) string {
	switch v := r.(type) {
	case WeekdayRule:
		return fmt.Sprintf("every %s", v.Weekday)
	case MonthDayRule:
		return fmt.Sprintf("day %d of every month", v.Day)
	case NthWeekdayRule:
		return fmt.Sprintf("%s #%d of every month", v.Weekday, v.Occurrence)
	case FortnightlyRule:
		return fmt.Sprintf("every other %s from %s", v.Weekday, v.Anchor)
	case NoneRule, nil:
		return "never"
	default:
		panic(fmt.Sprintf("generic: unhandled rule kind %T", r))
	}
}
