package dispatch

import "time"

// Event is a single order status event from the order subsystem.
type Event struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}
