package presence

import (
	"context"
	"time"

	"delivery-dispatch/internal/domain"
)

// stateRepository defines storage operations required by the tracker.
type stateRepository interface {
	Get(ctx context.Context, driverID int64) (*domain.DriverState, error)
	UpsertPresence(ctx context.Context, driverID int64, online bool, maxConcurrent *int, zoneID *string, now time.Time) (*domain.DriverState, error)
	Heartbeat(ctx context.Context, driverID int64, lat, lng *float64, zoneID *string, now time.Time) (*domain.DriverState, error)
}
