package dispatch

import (
	"context"
	"time"

	"delivery-dispatch/internal/domain"
)

// FinderPort abstracts candidate selection.
type FinderPort interface {
	FindCandidates(ctx context.Context, orderID string, wave, limit int) ([]domain.CandidateSnapshot, error)
}

// OffersPort abstracts the subset of offer operations the trigger needs.
type OffersPort interface {
	CreateOffers(ctx context.Context, orderID string, driverIDs []int64, ttl time.Duration, wave int, radiusKm float64) ([]domain.Assignment, error)
	Complete(ctx context.Context, orderID string) error
	InvalidateOrder(ctx context.Context, orderID string) ([]domain.Assignment, error)
}

// escalationRepository persists wave scheduling.
type escalationRepository interface {
	Schedule(ctx context.Context, orderID string, nextWave int, dueAt time.Time) error
	Get(ctx context.Context, orderID string) (*domain.Escalation, error)
	Due(ctx context.Context, now time.Time, limit int) ([]domain.Escalation, error)
	MarkDone(ctx context.Context, orderID string) error
	MarkExhausted(ctx context.Context, orderID string) error
}

// orderGetter reads the boundary order row.
type orderGetter interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
}
