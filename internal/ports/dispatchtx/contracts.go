package dispatchtx

import (
	"context"
	"time"

	"delivery-dispatch/internal/domain"
)

// Repository is the transactional storage surface of the offer state machine.
// Every method runs inside the transaction opened by Runner.WithTx; the
// accept path relies on GetOrderForUpdate locking the order row so that the
// "driver_id is still null" check and all subsequent writes commit atomically.
type Repository interface {
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	GetOrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error)
	SetOrderDriver(ctx context.Context, orderID string, driverID int64, at time.Time) error

	GetAssignment(ctx context.Context, id int64) (*domain.Assignment, error)
	GetAcceptedByOrder(ctx context.Context, orderID string) (*domain.Assignment, error)
	InsertAssignment(ctx context.Context, a *domain.Assignment) error
	MarkAccepted(ctx context.Context, id int64, now time.Time) error
	MarkDeclined(ctx context.Context, id int64, now time.Time, reason *string) error
	MarkCompleted(ctx context.Context, id int64, now time.Time) error

	// ExpireOffered flips every still-offered assignment for the order to
	// expired, except the one with id exceptID (0 = no exception), and
	// returns the flipped rows.
	ExpireOffered(ctx context.Context, orderID string, exceptID int64, now time.Time) ([]domain.Assignment, error)

	// AdjustActive shifts the driver's active-assignment counter by delta,
	// floored at zero.
	AdjustActive(ctx context.Context, driverID int64, delta int) error

	MarkEscalationDone(ctx context.Context, orderID string) error
}

// Runner is a transaction runner
type Runner interface {
	WithTx(ctx context.Context, fn func(tx Repository) error) error
}
