package trash

import (
	"fmt"
	"time"

	"github.com/warp/trash-schedule/generic"
)

// =============================================================================
// POINT-DAY SLOTS - "today", "tomorrow", "on Friday", ...
// =============================================================================

// Slots 0..2 are day offsets; 3..9 are Sunday..Saturday.
const (
	SlotToday         = 0
	SlotTomorrow      = 1
	SlotDayAfter      = 2
	slotFirstWeekday  = 3
	slotLastWeekday   = 9
	LookaheadDayCount = 3
)

// PointDayOffset turns a point-day slot into a day offset from today.
func PointDayOffset(slot int, today generic.TimePoint) (int, error) {
	switch {
	case slot >= SlotToday && slot < slotFirstWeekday:
		return slot, nil
	case slot >= slotFirstWeekday && slot <= slotLastWeekday:
		return TargetDayByWeekday(today, time.Weekday(slot-slotFirstWeekday)), nil
	}
	return 0, fmt.Errorf("%w: %d", ErrInvalidSlot, slot)
}

// TargetDayByWeekday is the number of days until the next weekday strictly
// after today, 1..7.
func TargetDayByWeekday(today generic.TimePoint, weekday time.Weekday) int {
	diff := int(weekday) - int(today.Weekday())
	if diff < 1 {
		diff += 7
	}
	return diff
}

// Lookahead evaluates start and the two days after it.
func Lookahead(categories []Category, today generic.TimePoint, start int, names NameResolver) []DaySchedule {
	days := make([]DaySchedule, 0, LookaheadDayCount)
	for i := 0; i < LookaheadDayCount; i++ {
		date := today.AddDays(start + i)
		days = append(days, DaySchedule{
			DayOffset: start + i,
			Date:      date,
			Entries:   EnabledFor(categories, date, names),
		})
	}
	return days
}

// LaunchOffset answers for tomorrow once it is afternoon locally, when the
// user asked for that.
func LaunchOffset(localNow time.Time, nextDayFlag bool) int {
	if nextDayFlag && localNow.Hour() >= 12 {
		return 1
	}
	return 0
}
