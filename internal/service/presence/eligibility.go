package presence

import (
	"time"

	"delivery-dispatch/internal/domain"
)

// Eligible is the candidate eligibility predicate: approved, active account,
// online, fresh heartbeat and spare capacity. The finder applies the same
// predicate in SQL; this pure form exists for reuse and tests.
func Eligible(state *domain.DriverState, profile *domain.DriverProfile, now time.Time, freshFor time.Duration) bool {
	if state == nil || profile == nil {
		return false
	}
	if !profile.Approved || !profile.Active {
		return false
	}
	if !state.IsOnline {
		return false
	}
	if now.Sub(state.LastHeartbeatAt) >= freshFor {
		return false
	}
	return state.HasCapacity()
}
