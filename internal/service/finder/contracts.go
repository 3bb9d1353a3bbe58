package finder

import (
	"context"
	"time"

	"delivery-dispatch/internal/domain"
)

// candidateRepository defines the eligibility query required by the finder.
type candidateRepository interface {
	ListEligible(ctx context.Context, orderID string, heartbeatAfter time.Time) ([]domain.CandidateSnapshot, error)
}

// orderGetter reads the boundary order row.
type orderGetter interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
}
