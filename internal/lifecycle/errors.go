package lifecycle

import "errors"

var (
	// ErrInvalidTransition is returned when the event is not legal from the current state.
	ErrInvalidTransition = errors.New("invalid assignment transition")
	// ErrInvalidState is returned for stored states that break the model invariants.
	ErrInvalidState = errors.New("invalid assignment state")
	// ErrDeadlinePassed is returned when a student submits at or after the due time.
	ErrDeadlinePassed = errors.New("assignment deadline has passed")
	// ErrNotYetDue is returned when expiring an assignment before its due time.
	ErrNotYetDue = errors.New("assignment is not yet due")
	// ErrResultsRequired is returned when a question practice is approved without counts.
	ErrResultsRequired = errors.New("result counts are required for question practice")
	// ErrResultsNotAllowed is returned when counts are supplied for other kinds.
	ErrResultsNotAllowed = errors.New("result counts are only recorded for question practice")
	// ErrResultMismatch is returned when the counts do not add up to the question count.
	ErrResultMismatch = errors.New("result counts do not match question count")
)

// IsValidationError reports whether err is a guard failure the caller can correct.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrResultsRequired) ||
		errors.Is(err, ErrResultsNotAllowed) ||
		errors.Is(err, ErrResultMismatch)
}
