package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-dispatch/internal/domain"
)

// EscalationRepo persists wave scheduling. A pending row with a due time in
// the past is a wave waiting to run; the worker polls for those.
type EscalationRepo struct {
	db *pgxpool.Pool
}

// NewEscalationRepo creates a new EscalationRepo.
func NewEscalationRepo(db *pgxpool.Pool) *EscalationRepo {
	return &EscalationRepo{db: db}
}

// Schedule - upserts the pending escalation for the order.
func (r *EscalationRepo) Schedule(ctx context.Context, orderID string, nextWave int, dueAt time.Time) error {
	_, err := r.db.Exec(ctx, `
        INSERT INTO escalations (order_id, next_wave, due_at, status)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (order_id) DO UPDATE SET
            next_wave = EXCLUDED.next_wave,
            due_at    = EXCLUDED.due_at,
            status    = EXCLUDED.status
    `, orderID, nextWave, dueAt, domain.EscalationPending)
	if err != nil {
		return fmt.Errorf("schedule escalation for order %q: %w", orderID, err)
	}
	return nil
}

// Get - returns the escalation row for the order.
func (r *EscalationRepo) Get(ctx context.Context, orderID string) (*domain.Escalation, error) {
	var e domain.Escalation
	err := r.db.QueryRow(ctx, `
        SELECT order_id, next_wave, due_at, status
        FROM escalations WHERE order_id = $1
    `, orderID).Scan(&e.OrderID, &e.NextWave, &e.DueAt, &e.Status)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get escalation for order %q: %w", orderID, err)
	}
	return &e, nil
}

// Due - returns pending escalations whose due time has passed.
func (r *EscalationRepo) Due(ctx context.Context, now time.Time, limit int) ([]domain.Escalation, error) {
	rows, err := r.db.Query(ctx, `
        SELECT order_id, next_wave, due_at, status
        FROM escalations
        WHERE status = $1 AND due_at <= $2
        ORDER BY due_at
        LIMIT $3
    `, domain.EscalationPending, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list due escalations: %w", err)
	}
	defer rows.Close()

	var out []domain.Escalation
	for rows.Next() {
		var e domain.Escalation
		if err := rows.Scan(&e.OrderID, &e.NextWave, &e.DueAt, &e.Status); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// MarkDone - closes the escalation after an acceptance or cancellation.
func (r *EscalationRepo) MarkDone(ctx context.Context, orderID string) error {
	return r.setStatus(ctx, orderID, domain.EscalationDone)
}

// MarkExhausted - marks the order as out of waves; it needs manual handling.
func (r *EscalationRepo) MarkExhausted(ctx context.Context, orderID string) error {
	return r.setStatus(ctx, orderID, domain.EscalationExhausted)
}

func (r *EscalationRepo) setStatus(ctx context.Context, orderID string, status domain.EscalationStatus) error {
	_, err := r.db.Exec(ctx, `
        UPDATE escalations SET status = $2 WHERE order_id = $1
    `, orderID, status)
	if err != nil {
		return fmt.Errorf("set escalation status %s for order %q: %w", status, orderID, err)
	}
	return nil
}
