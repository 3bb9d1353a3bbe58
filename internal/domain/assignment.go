package domain

import "time"

// Assignment is a time-boxed offer of one order to one driver.
// Rows accumulate as dispatch history; only accept, decline, the expiry
// sweep, completion and retention purge may mutate or remove them.
type Assignment struct {
	ID            int64
	OrderID       string
	DriverID      int64
	Status        AssignmentStatus
	Wave          int
	OfferedAt     time.Time
	ExpiresAt     time.Time
	RespondedAt   *time.Time
	AcceptedAt    *time.Time
	DeclineReason *string
}

// ExpiredAt reports whether the offer TTL has elapsed at the given moment,
// regardless of the stored status.
func (a *Assignment) ExpiredAt(now time.Time) bool {
	return now.After(a.ExpiresAt)
}
