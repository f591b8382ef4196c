/*
errors.go - Centralized error types for the schedule engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Domain packages wrap these errors with additional context.

ERROR CATEGORIES:
  1. Rule errors - Stored rules that fail to decode (recovered as NoneRule)
  2. Calendar errors - Unknown timezone names
  3. Store errors - Missing schedule documents

USAGE:
    if errors.Is(err, generic.ErrInvalidRule) {
        logger.Warn("rule degraded to none", zap.Error(err))
    }

SEE ALSO:
  - factory/schedule.go: Produces InvalidRuleError warnings
  - trash/errors.go: Comparator failures
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRule is returned when a stored rule cannot be decoded into
	// one of the known kinds. Callers substitute NoneRule and keep going.
	ErrInvalidRule = errors.New("invalid schedule rule")

	// ErrUnknownTimezone is returned for zone names the tz database lacks.
	ErrUnknownTimezone = errors.New("unknown timezone")

	// ErrScheduleNotFound is returned when no schedule is stored for a user.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrInvalidSchedule is returned when a stored document is not a list
	// of categories at all.
	ErrInvalidSchedule = errors.New("invalid schedule document")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRuleError describes one rule that was degraded to NoneRule.
type InvalidRuleError struct {
	Category string // category code, or display name for "other"
	Index    int    // position of the rule within the category
	Kind     string // stored discriminator as found
	Value    string // raw stored value
	Reason   string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule %s[%d] (type %q, value %s): %s",
		e.Category, e.Index, e.Kind, e.Value, e.Reason)
}

func (e *InvalidRuleError) Unwrap() error {
	return ErrInvalidRule
}

// TimezoneError carries the rejected zone name.
type TimezoneError struct {
	Name string
	Err  error
}

func (e *TimezoneError) Error() string {
	return fmt.Sprintf("unknown timezone %q: %v", e.Name, e.Err)
}

func (e *TimezoneError) Unwrap() []error {
	return []error{ErrUnknownTimezone, e.Err}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownTimezone) ||
		errors.Is(err, ErrInvalidSchedule)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrScheduleNotFound)
}
