package domain

import "time"

// OrderStatus represents the status of an order as published by the order
// subsystem. The dispatch core does not own this state machine; it only
// reacts to a subset of statuses.
type OrderStatus string

// Order statuses the dispatch core reacts to.
const (
	OrderBeingPrepared OrderStatus = "being_prepared"
	OrderReady         OrderStatus = "ready"
	OrderCancelled     OrderStatus = "cancelled"
	OrderDelivered     OrderStatus = "delivered"
)

// Dispatchable reports whether an order in this status may receive offers.
func (s OrderStatus) Dispatchable() bool {
	return s == OrderBeingPrepared || s == OrderReady
}

// Order is the boundary view of an order owned by the order subsystem.
// The dispatch core reads it and writes only DriverID/AssignedAt.
type Order struct {
	ID            string
	Status        OrderStatus
	DriverID      *int64
	PickupLat     float64
	PickupLng     float64
	DropoffLat    float64
	DropoffLng    float64
	DriverEarning float64
	AssignedAt    *time.Time
}

// Assigned reports whether the order already has a winning driver.
func (o *Order) Assigned() bool { return o.DriverID != nil }
