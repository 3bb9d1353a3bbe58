package domain

// AssignmentStatus represents the lifecycle state of an assignment offer.
type AssignmentStatus string

// List of possible assignment statuses
const (
	StatusOffered   AssignmentStatus = "offered"
	StatusAccepted  AssignmentStatus = "accepted"
	StatusDeclined  AssignmentStatus = "declined"
	StatusExpired   AssignmentStatus = "expired"
	StatusCompleted AssignmentStatus = "completed"
)

// transitions is the closed transition table for assignment offers.
// Anything not listed here is rejected.
var transitions = map[AssignmentStatus][]AssignmentStatus{
	StatusOffered:  {StatusAccepted, StatusDeclined, StatusExpired},
	StatusAccepted: {StatusCompleted},
}

// Valid checks if the AssignmentStatus is a known status.
func (s AssignmentStatus) Valid() bool {
	switch s {
	case StatusOffered, StatusAccepted, StatusDeclined, StatusExpired, StatusCompleted:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed from s.
func (s AssignmentStatus) Terminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether s -> to is in the transition table.
func (s AssignmentStatus) CanTransition(to AssignmentStatus) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}
