package sweeper

import (
	"context"
	"time"

	"delivery-dispatch/internal/domain"
)

// assignmentRepository defines the assignment maintenance queries.
type assignmentRepository interface {
	ExpireDue(ctx context.Context, now time.Time) ([]domain.Assignment, error)
	PurgeTerminal(ctx context.Context, before time.Time) (int64, error)
	OfferStats(ctx context.Context) (pending int, accepted, declined, expired int64, err error)
}

// driverRepository defines the driver-state maintenance queries.
type driverRepository interface {
	MarkStaleOffline(ctx context.Context, olderThan time.Time) (int64, error)
	ReconcileActive(ctx context.Context) (int64, error)
	PresenceStats(ctx context.Context) (online, busy int, err error)
}

// escalationRunner processes due wave escalations.
type escalationRunner interface {
	RunDue(ctx context.Context) (int, error)
}
