package offers

import "time"

// OfferPayload is the assignment-offer event sent to a candidate driver.
type OfferPayload struct {
	AssignmentID int64     `json:"assignment_id"`
	OrderID      string    `json:"order_id"`
	PickupLat    float64   `json:"pickup_lat"`
	PickupLng    float64   `json:"pickup_lng"`
	DropoffLat   float64   `json:"dropoff_lat"`
	DropoffLng   float64   `json:"dropoff_lng"`
	Earning      float64   `json:"earning"`
	ExpiresAt    time.Time `json:"expires_at"`
	Wave         int       `json:"wave"`
	RadiusKm     float64   `json:"radius_km"`
}

// StatusPayload is the assignment-status-change event.
type StatusPayload struct {
	AssignmentID int64   `json:"assignment_id"`
	OrderID      string  `json:"order_id"`
	Status       string  `json:"status"`
	Reason       *string `json:"reason,omitempty"`
}
