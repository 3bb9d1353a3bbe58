package kafka

import (
	"strings"
	"time"

	"delivery-dispatch/internal/service/dispatch"
)

// EventDTO is a data transfer object for dispatch.Event
type EventDTO struct {
	OrderID   string    `json:"order_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// ToDomain converts EventDTO to dispatch.Event
func ToDomain(dto EventDTO) dispatch.Event {
	return dispatch.Event{
		OrderID:   strings.TrimSpace(dto.OrderID),
		Status:    strings.TrimSpace(strings.ToLower(dto.Status)),
		CreatedAt: dto.CreatedAt,
	}
}
