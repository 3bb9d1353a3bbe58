package handlers

import (
	"context"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/service/dispatch"
	"delivery-dispatch/internal/service/offers"
	"delivery-dispatch/internal/service/presence"
	"delivery-dispatch/internal/service/sweeper"
)

type presenceUsecase interface {
	SetPresence(ctx context.Context, driverID int64, online bool, maxConcurrent *int, zoneID *string) (*domain.DriverState, error)
	Heartbeat(ctx context.Context, driverID int64, lat, lng *float64, zoneID *string) (*domain.DriverState, error)
	Get(ctx context.Context, driverID int64) (*domain.DriverState, error)
}

// NewPresenceUsecase wires a presence Service into a presenceUsecase.
func NewPresenceUsecase(svc *presence.Service) presenceUsecase {
	return svc
}

type offerUsecase interface {
	Accept(ctx context.Context, assignmentID, driverID int64) (*offers.AcceptResult, error)
	Decline(ctx context.Context, assignmentID, driverID int64, reason *string) (*domain.Assignment, error)
}

// NewOfferUsecase wires an offers Service into an offerUsecase.
func NewOfferUsecase(svc *offers.Service) offerUsecase {
	return svc
}

type dispatchUsecase interface {
	Dispatch(ctx context.Context, orderID string, wave int) error
}

// NewDispatchUsecase wires a dispatch Service into a dispatchUsecase.
func NewDispatchUsecase(svc *dispatch.Service) dispatchUsecase {
	return svc
}

type maintenanceUsecase interface {
	RunOnce(ctx context.Context)
	Health(ctx context.Context) (domain.HealthSnapshot, error)
}

// NewMaintenanceUsecase wires a sweeper Service into a maintenanceUsecase.
func NewMaintenanceUsecase(svc *sweeper.Service) maintenanceUsecase {
	return svc
}
