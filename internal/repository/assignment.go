package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/ports/dispatchtx"
)

const assignmentColumns = `id, order_id, driver_id, status, wave,
	offered_at, expires_at, responded_at, accepted_at, decline_reason`

// AssignmentRepo represents assignment (offer) repository.
type AssignmentRepo struct {
	db *pgxpool.Pool
}

// NewAssignmentRepo creates a new AssignmentRepo.
func NewAssignmentRepo(db *pgxpool.Pool) *AssignmentRepo {
	return &AssignmentRepo{db: db}
}

// WithTx opens a transaction and executes fn within it.
func (r *AssignmentRepo) WithTx(ctx context.Context, fn func(tx dispatchtx.Repository) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			err = tx.Rollback(ctx)
			if err != nil {
				panic(err)
			}
			panic(p)
		}
	}()

	wrapped := &TxRepo{tx: tx}

	if err := fn(wrapped); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// TxRepo represents transaction repository.
type TxRepo struct {
	tx pgx.Tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*domain.Assignment, error) {
	var a domain.Assignment
	err := row.Scan(&a.ID, &a.OrderID, &a.DriverID, &a.Status, &a.Wave,
		&a.OfferedAt, &a.ExpiresAt, &a.RespondedAt, &a.AcceptedAt, &a.DeclineReason)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.Status, &o.DriverID,
		&o.PickupLat, &o.PickupLng, &o.DropoffLat, &o.DropoffLng,
		&o.DriverEarning, &o.AssignedAt)
	if err != nil {
		return nil, err
	}
	return &o, nil
}

const orderColumns = `id, status, driver_id, pickup_lat, pickup_lng,
	dropoff_lat, dropoff_lng, driver_earning, assigned_at`

// GetOrder - returns the order row without locking it.
func (r *TxRepo) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := scanOrder(r.tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get order %q: %w", orderID, err)
	}
	return o, nil
}

// GetOrderForUpdate - locks and returns the order row. The lock plus the
// driver_id null check is the linearization point of the accept protocol.
func (r *TxRepo) GetOrderForUpdate(ctx context.Context, orderID string) (*domain.Order, error) {
	o, err := scanOrder(r.tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, orderID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("lock order %q: %w", orderID, err)
	}
	return o, nil
}

// SetOrderDriver - writes the winning driver onto the order, only if the
// order is still unassigned.
func (r *TxRepo) SetOrderDriver(ctx context.Context, orderID string, driverID int64, at time.Time) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE orders
        SET driver_id = $2, assigned_at = $3
        WHERE id = $1 AND driver_id IS NULL
    `, orderID, driverID, at)
	if err != nil {
		return fmt.Errorf("set order %q driver: %w", orderID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("order %q already assigned", orderID)
	}
	return nil
}

// GetAssignment - returns assignment by its ID.
func (r *TxRepo) GetAssignment(ctx context.Context, id int64) (*domain.Assignment, error) {
	a, err := scanAssignment(r.tx.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get assignment %d: %w", id, err)
	}
	return a, nil
}

// GetAcceptedByOrder - returns the accepted assignment for the order, if any.
func (r *TxRepo) GetAcceptedByOrder(ctx context.Context, orderID string) (*domain.Assignment, error) {
	a, err := scanAssignment(r.tx.QueryRow(ctx,
		`SELECT `+assignmentColumns+` FROM assignments
         WHERE order_id = $1 AND status = $2`, orderID, domain.StatusAccepted))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get accepted assignment for order %q: %w", orderID, err)
	}
	return a, nil
}

// InsertAssignment - inserts a new offered assignment.
func (r *TxRepo) InsertAssignment(ctx context.Context, a *domain.Assignment) error {
	err := r.tx.QueryRow(ctx, `
        INSERT INTO assignments (order_id, driver_id, status, wave, offered_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id
    `, a.OrderID, a.DriverID, a.Status, a.Wave, a.OfferedAt, a.ExpiresAt).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("insert assignment: %w", err)
	}
	return nil
}

// MarkAccepted - transitions an offered assignment to accepted.
func (r *TxRepo) MarkAccepted(ctx context.Context, id int64, now time.Time) error {
	return r.markStatus(ctx, id, domain.StatusOffered, domain.StatusAccepted, `
        UPDATE assignments
        SET status = $2, responded_at = $3, accepted_at = $3
        WHERE id = $1 AND status = $4
    `, id, domain.StatusAccepted, now, domain.StatusOffered)
}

// MarkDeclined - transitions an offered assignment to declined.
func (r *TxRepo) MarkDeclined(ctx context.Context, id int64, now time.Time, reason *string) error {
	return r.markStatus(ctx, id, domain.StatusOffered, domain.StatusDeclined, `
        UPDATE assignments
        SET status = $2, responded_at = $3, decline_reason = $4
        WHERE id = $1 AND status = $5
    `, id, domain.StatusDeclined, now, reason, domain.StatusOffered)
}

// MarkCompleted - transitions an accepted assignment to completed.
func (r *TxRepo) MarkCompleted(ctx context.Context, id int64, now time.Time) error {
	return r.markStatus(ctx, id, domain.StatusAccepted, domain.StatusCompleted, `
        UPDATE assignments
        SET status = $2, responded_at = COALESCE(responded_at, $3)
        WHERE id = $1 AND status = $4
    `, id, domain.StatusCompleted, now, domain.StatusAccepted)
}

func (r *TxRepo) markStatus(ctx context.Context, id int64, from, to domain.AssignmentStatus, q string, args ...any) error {
	if !from.CanTransition(to) {
		return fmt.Errorf("assignment %d: transition %s -> %s not allowed", id, from, to)
	}
	ct, err := r.tx.Exec(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("assignment %d -> %s: %w", id, to, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("assignment %d not in status %s", id, from)
	}
	return nil
}

// ExpireOffered - expires every still-offered assignment for the order except
// exceptID and returns the flipped rows.
func (r *TxRepo) ExpireOffered(ctx context.Context, orderID string, exceptID int64, now time.Time) ([]domain.Assignment, error) {
	rows, err := r.tx.Query(ctx, `
        UPDATE assignments
        SET status = $3, responded_at = $4
        WHERE order_id = $1 AND status = $5 AND id <> $2
        RETURNING `+assignmentColumns,
		orderID, exceptID, domain.StatusExpired, now, domain.StatusOffered)
	if err != nil {
		return nil, fmt.Errorf("expire offers for order %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// AdjustActive - shifts the driver's active-assignment counter, floored at zero.
func (r *TxRepo) AdjustActive(ctx context.Context, driverID int64, delta int) error {
	ct, err := r.tx.Exec(ctx, `
        UPDATE driver_states
        SET active_assignments = GREATEST(active_assignments + $2, 0)
        WHERE driver_id = $1
    `, driverID, delta)
	if err != nil {
		return fmt.Errorf("adjust active count for driver %d: %w", driverID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("driver state %d not found", driverID)
	}
	return nil
}

// MarkEscalationDone - closes the pending escalation for the order, if any.
func (r *TxRepo) MarkEscalationDone(ctx context.Context, orderID string) error {
	_, err := r.tx.Exec(ctx, `
        UPDATE escalations
        SET status = $2
        WHERE order_id = $1 AND status = $3
    `, orderID, domain.EscalationDone, domain.EscalationPending)
	if err != nil {
		return fmt.Errorf("close escalation for order %q: %w", orderID, err)
	}
	return nil
}

// ExpireDue - flips offered assignments whose TTL has passed to expired and
// returns the flipped rows. Used by the sweeper; never touches accepted rows.
func (r *AssignmentRepo) ExpireDue(ctx context.Context, now time.Time) ([]domain.Assignment, error) {
	rows, err := r.db.Query(ctx, `
        UPDATE assignments
        SET status = $1, responded_at = $2
        WHERE status = $3 AND expires_at < $2
        RETURNING `+assignmentColumns,
		domain.StatusExpired, now, domain.StatusOffered)
	if err != nil {
		return nil, fmt.Errorf("expire due assignments: %w", err)
	}
	defer rows.Close()

	var out []domain.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// PurgeTerminal - deletes terminal assignment rows older than the cutoff.
func (r *AssignmentRepo) PurgeTerminal(ctx context.Context, before time.Time) (int64, error) {
	ct, err := r.db.Exec(ctx, `
        DELETE FROM assignments
        WHERE status IN ($1, $2, $3) AND offered_at < $4
    `, domain.StatusDeclined, domain.StatusExpired, domain.StatusCompleted, before)
	if err != nil {
		return 0, fmt.Errorf("purge terminal assignments: %w", err)
	}
	return ct.RowsAffected(), nil
}

// OfferStats - returns aggregate offer counts for the health snapshot.
func (r *AssignmentRepo) OfferStats(ctx context.Context) (pending int, accepted, declined, expired int64, err error) {
	err = r.db.QueryRow(ctx, `
        SELECT
            COUNT(*) FILTER (WHERE status = $1),
            COUNT(*) FILTER (WHERE status IN ($2, $3)),
            COUNT(*) FILTER (WHERE status = $4),
            COUNT(*) FILTER (WHERE status = $5)
        FROM assignments
    `, domain.StatusOffered, domain.StatusAccepted, domain.StatusCompleted,
		domain.StatusDeclined, domain.StatusExpired).
		Scan(&pending, &accepted, &declined, &expired)
	if err != nil {
		return 0, 0, 0, 0, fmt.Errorf("offer stats: %w", err)
	}
	return pending, accepted, declined, expired, nil
}
