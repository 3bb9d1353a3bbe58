package presence

import (
	"context"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
)

// Service tracks driver presence, heartbeat freshness and capacity.
type Service struct {
	repo             stateRepository
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates and configures a presence Service.
func NewService(r stateRepository, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &Service{
		repo:             r,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// SetPresence upserts the driver's online flag. Repeated identical calls are
// idempotent; online_since tracks the last offline→online transition.
func (s *Service) SetPresence(ctx context.Context, driverID int64, online bool, maxConcurrent *int, zoneID *string) (*domain.DriverState, error) {
	if driverID <= 0 {
		return nil, apperr.ErrInvalid
	}
	if maxConcurrent != nil && *maxConcurrent <= 0 {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	state, err := s.repo.UpsertPresence(ctx, driverID, online, maxConcurrent, zoneID, s.now())
	if err != nil {
		return nil, err
	}

	s.logger.Info("driver presence updated",
		logx.Int64("driver_id", driverID),
		logx.Bool("online", online),
	)
	return state, nil
}

// Heartbeat refreshes the driver's liveness and optionally location. The
// state is created on first contact, defaulting to online.
func (s *Service) Heartbeat(ctx context.Context, driverID int64, lat, lng *float64, zoneID *string) (*domain.DriverState, error) {
	if driverID <= 0 {
		return nil, apperr.ErrInvalid
	}
	if (lat == nil) != (lng == nil) {
		return nil, apperr.ErrInvalid
	}
	if lat != nil && (*lat < -90 || *lat > 90 || *lng < -180 || *lng > 180) {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	return s.repo.Heartbeat(ctx, driverID, lat, lng, zoneID, s.now())
}

// Get returns the driver's current state.
func (s *Service) Get(ctx context.Context, driverID int64) (*domain.DriverState, error) {
	if driverID <= 0 {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	state, err := s.repo.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, apperr.ErrNotFound
	}
	return state, nil
}
