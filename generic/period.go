package generic

// =============================================================================
// PERIOD - A contiguous run of days
// =============================================================================

// Period is an inclusive range of dates [Start, End].
//
// Examples:
//   - The rest of this week: tomorrow .. Saturday
//   - Next week: next Sunday .. next Saturday
type Period struct {
	Start TimePoint
	End   TimePoint
}

// IsEmpty is true when End is before Start.
func (p Period) IsEmpty() bool {
	return p.End.Before(p.Start)
}

// Days returns all days in the period as a slice of TimePoints.
func (p Period) Days() []TimePoint {
	var days []TimePoint
	current := p.Start
	for current.BeforeOrEqual(p.End) {
		days = append(days, current)
		current = current.AddDays(1)
	}
	return days
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// WeekContaining returns Sunday..Saturday around d.
func WeekContaining(d TimePoint) Period {
	start := d.StartOfWeek()
	return Period{Start: start, End: start.AddDays(6)}
}

// NextPeriod returns the period of equal length following this one.
func (p Period) NextPeriod() Period {
	newStart := p.End.AddDays(1)
	duration := DaysBetween(p.Start, p.End)
	return Period{Start: newStart, End: newStart.AddDays(duration)}
}
