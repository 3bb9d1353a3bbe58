package notify

import "context"

// Event names emitted toward the real-time notification sink.
const (
	EventAssignmentOffer  = "assignment.offer"
	EventAssignmentStatus = "assignment.status"
)

// Emitter is the narrow capability the dispatch core has toward any real-time
// transport. Implementations must not block dispatch on delivery.
type Emitter interface {
	Emit(ctx context.Context, driverID int64, event string, payload any) error
}

// Nop is an Emitter that discards everything.
type Nop struct{}

// Emit discards the event.
func (Nop) Emit(context.Context, int64, string, any) error { return nil }
