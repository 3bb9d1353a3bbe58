package domain

import "time"

// EscalationStatus represents the state of a scheduled wave escalation.
type EscalationStatus string

// List of possible escalation statuses
const (
	EscalationPending   EscalationStatus = "pending"
	EscalationDone      EscalationStatus = "done"
	EscalationExhausted EscalationStatus = "exhausted"
)

// Escalation is a persisted "run the next wave at due_at" record.
// Scheduling lives in the database so a process restart cannot lose it.
type Escalation struct {
	OrderID  string
	NextWave int
	DueAt    time.Time
	Status   EscalationStatus
}
