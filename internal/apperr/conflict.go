package apperr

import "errors"

// ConflictReason classifies an expected dispatch race. Conflicts are normal
// traffic, not bugs: losing a race to another driver is the common case.
type ConflictReason string

// List of conflict reasons
const (
	ReasonAlreadyAssigned  ConflictReason = "already_assigned"
	ReasonAlreadyResponded ConflictReason = "already_responded"
	ReasonExpired          ConflictReason = "expired"
	ReasonNotOwned         ConflictReason = "not_owned"
)

// ConflictError carries the reason an offer operation lost a race.
type ConflictError struct {
	Reason ConflictReason
}

func (e *ConflictError) Error() string {
	return "conflict: " + string(e.Reason)
}

// Is makes errors.Is(err, ErrConflict) hold for every ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Conflict returns a ConflictError with the given reason.
func Conflict(reason ConflictReason) error {
	return &ConflictError{Reason: reason}
}

// ReasonOf extracts the conflict reason from err, if any.
func ReasonOf(err error) (ConflictReason, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce.Reason, true
	}
	return "", false
}
