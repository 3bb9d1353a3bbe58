package handlers

import "time"

type setPresenceRequest struct {
	Online        bool    `json:"online"`
	MaxConcurrent *int    `json:"max_concurrent,omitempty"`
	ZoneID        *string `json:"zone_id,omitempty"`
}

type heartbeatRequest struct {
	Lat    *float64 `json:"lat,omitempty"`
	Lng    *float64 `json:"lng,omitempty"`
	ZoneID *string  `json:"zone_id,omitempty"`
}

type driverStateDTO struct {
	DriverID          int64      `json:"driver_id"`
	Online            bool       `json:"online"`
	ActiveAssignments int        `json:"active_assignments"`
	MaxConcurrent     int        `json:"max_concurrent"`
	ZoneID            *string    `json:"zone_id,omitempty"`
	LastHeartbeatAt   time.Time  `json:"last_heartbeat_at"`
	OnlineSince       *time.Time `json:"online_since,omitempty"`
	Lat               *float64   `json:"lat,omitempty"`
	Lng               *float64   `json:"lng,omitempty"`
}

type declineRequest struct {
	Reason *string `json:"reason,omitempty"`
}

type assignmentDTO struct {
	ID          int64      `json:"id"`
	OrderID     string     `json:"order_id"`
	DriverID    int64      `json:"driver_id"`
	Status      string     `json:"status"`
	Wave        int        `json:"wave"`
	OfferedAt   time.Time  `json:"offered_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
}

type healthDTO struct {
	TakenAt        time.Time `json:"taken_at"`
	DriversOnline  int       `json:"drivers_online"`
	DriversBusy    int       `json:"drivers_busy"`
	Utilization    float64   `json:"utilization"`
	PendingOffers  int       `json:"pending_offers"`
	OffersAccepted int64     `json:"offers_accepted"`
	OffersDeclined int64     `json:"offers_declined"`
	OffersExpired  int64     `json:"offers_expired"`
	AcceptRate     float64   `json:"accept_rate"`
}
