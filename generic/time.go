package generic

import (
	"fmt"
	"time"
)

// =============================================================================
// TIME POINT - A calendar date (this IS a calendar system)
// =============================================================================

// TimePoint is a calendar date. The wall date is stored at UTC midnight so
// that arithmetic never crosses a DST boundary of the host zone.
type TimePoint struct {
	Time time.Time
}

const dateLayout = "2006-01-02"

// Constructors
func NewTimePoint(year int, month time.Month, day int) TimePoint {
	return TimePoint{Time: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its wall date in t's own location.
func DateOf(t time.Time) TimePoint {
	return NewTimePoint(t.Year(), t.Month(), t.Day())
}

// ParseDate accepts "2006-01-02" and the unpadded "2006-1-2" form found in
// older stored documents.
func ParseDate(s string) (TimePoint, error) {
	for _, layout := range []string{dateLayout, "2006-1-2", "2006/01/02", "2006/1/2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return TimePoint{}, fmt.Errorf("invalid date %q", s)
}

// Comparison
func (tp TimePoint) Before(other TimePoint) bool        { return tp.normalize().Before(other.normalize()) }
func (tp TimePoint) Equal(other TimePoint) bool         { return tp.normalize().Equal(other.normalize()) }
func (tp TimePoint) After(other TimePoint) bool         { return tp.normalize().After(other.normalize()) }
func (tp TimePoint) BeforeOrEqual(other TimePoint) bool { return !tp.After(other) }

func (tp TimePoint) normalize() time.Time {
	return time.Date(tp.Time.Year(), tp.Time.Month(), tp.Time.Day(), 0, 0, 0, 0, time.UTC)
}

// Arithmetic
func (tp TimePoint) AddDays(n int) TimePoint { return DateOf(tp.normalize().AddDate(0, 0, n)) }

// Properties
func (tp TimePoint) Year() int             { return tp.Time.Year() }
func (tp TimePoint) Month() time.Month     { return tp.Time.Month() }
func (tp TimePoint) Day() int              { return tp.Time.Day() }
func (tp TimePoint) Weekday() time.Weekday { return tp.Time.Weekday() }
func (tp TimePoint) IsZero() bool          { return tp.Time.IsZero() }

// WeekOfMonth is the 1-based occurrence of this weekday within its month,
// ceil(day / 7).
func (tp TimePoint) WeekOfMonth() int { return (tp.Day() + 6) / 7 }

// StartOfWeek returns the Sunday on or before tp.
func (tp TimePoint) StartOfWeek() TimePoint { return tp.AddDays(-int(tp.Weekday())) }

func (tp TimePoint) String() string { return tp.normalize().Format(dateLayout) }

func (tp TimePoint) MarshalText() ([]byte, error) { return []byte(tp.String()), nil }

func (tp *TimePoint) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*tp = parsed
	return nil
}

// =============================================================================
// TIME UTILITIES
// =============================================================================

func DaysBetween(from, to TimePoint) int {
	return int(to.normalize().Sub(from.normalize()).Hours() / 24)
}

func StartOfMonth(year int, month time.Month) TimePoint { return NewTimePoint(year, month, 1) }

func DaysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// MinTimePoint returns the earliest of the given dates; ok is false when
// none are given.
func MinTimePoint(points ...TimePoint) (min TimePoint, ok bool) {
	for i, p := range points {
		if i == 0 || p.Before(min) {
			min = p
		}
	}
	return min, len(points) > 0
}

// =============================================================================
// LOCAL CALENDAR - "today" in the user's zone, independent of the host zone
// =============================================================================

// Calendar resolves day offsets from the user's local today.
type Calendar interface {
	Date(dayOffset int) TimePoint
}

// LocalCalendar resolves dates in a named IANA zone.
type LocalCalendar struct {
	Location *time.Location
	// Now defaults to time.Now; tests pin it.
	Now func() time.Time
}

// NewLocalCalendar loads the zone. An empty name means UTC.
func NewLocalCalendar(timezone string) (*LocalCalendar, error) {
	if timezone == "" {
		timezone = "UTC"
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, &TimezoneError{Name: timezone, Err: err}
	}
	return &LocalCalendar{Location: loc, Now: time.Now}, nil
}

// LocalNow is the current wall clock time in the calendar's zone.
func (c *LocalCalendar) LocalNow() time.Time {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().UTC().In(c.Location)
}

// Date returns the local date dayOffset whole days after today.
func (c *LocalCalendar) Date(dayOffset int) TimePoint {
	return c.Today().AddDays(dayOffset)
}

func (c *LocalCalendar) Today() TimePoint {
	return DateOf(c.LocalNow())
}

// FixedCalendar is a Calendar pinned to a given today.
type FixedCalendar struct {
	Today TimePoint
}

func (f FixedCalendar) Date(dayOffset int) TimePoint { return f.Today.AddDays(dayOffset) }
