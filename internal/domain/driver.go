package domain

import "time"

// DriverState tracks a driver's presence and concurrent-assignment capacity.
// Created on the first heartbeat or presence call; never deleted.
type DriverState struct {
	DriverID          int64
	IsOnline          bool
	ActiveAssignments int
	MaxConcurrent     int
	ZoneID            *string
	LastHeartbeatAt   time.Time
	OnlineSince       *time.Time
	LastLocationAt    *time.Time
	Lat               *float64
	Lng               *float64
}

// HasCapacity reports whether the driver can take one more assignment.
func (s *DriverState) HasCapacity() bool {
	return s.ActiveAssignments < s.MaxConcurrent
}

// DriverProfile is the read-only view of a driver from the account subsystem.
type DriverProfile struct {
	ID              int64
	Approved        bool
	Active          bool
	Rating          float64
	TotalDeliveries int
	CompletionRate  float64
}

// CandidateSnapshot is an immutable per-driver snapshot taken at candidate
// selection time. Scoring is a pure function of this struct plus the wave.
type CandidateSnapshot struct {
	DriverID          int64
	Rating            float64
	TotalDeliveries   int
	CompletionRate    float64
	ActiveAssignments int
}
