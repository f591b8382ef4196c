package trash

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrComparatorFailure is returned when the similarity comparator
	// fails. It is never treated as "not registered".
	ErrComparatorFailure = errors.New("comparator failure")

	ErrInvalidWeek = errors.New("invalid week")
	ErrInvalidSlot = errors.New("invalid day slot")
	ErrInvalidTime = errors.New("invalid reminder time")
)

// ComparatorError wraps a failed or malformed comparator call.
type ComparatorError struct {
	Candidates []string
	Err        error
}

func (e *ComparatorError) Error() string {
	return fmt.Sprintf("compare against [%s]: %v", strings.Join(e.Candidates, ", "), e.Err)
}

func (e *ComparatorError) Unwrap() []error {
	return []error{ErrComparatorFailure, e.Err}
}

// IsClientError reports errors caused by bad request input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidWeek) ||
		errors.Is(err, ErrInvalidSlot) ||
		errors.Is(err, ErrInvalidTime)
}
