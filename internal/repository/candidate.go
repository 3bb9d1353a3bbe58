package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-dispatch/internal/domain"
)

// CandidateRepo selects eligible drivers for an order. Eligibility lives in
// SQL; scoring and ranking happen in the finder service on the returned
// snapshots.
type CandidateRepo struct {
	db *pgxpool.Pool
}

// NewCandidateRepo creates a new CandidateRepo.
func NewCandidateRepo(db *pgxpool.Pool) *CandidateRepo {
	return &CandidateRepo{db: db}
}

// maxEligibleRows bounds a single candidate query; ranking trims further.
const maxEligibleRows = 200

// ListEligible returns snapshots of drivers who are approved, active, online,
// fresh and under capacity, excluding any driver with a prior assignment row
// for this order (no repeat offers within one dispatch lifecycle).
func (r *CandidateRepo) ListEligible(ctx context.Context, orderID string, heartbeatAfter time.Time) ([]domain.CandidateSnapshot, error) {
	rows, err := r.db.Query(ctx, `
        SELECT d.id, d.rating, d.total_deliveries, d.completion_rate, s.active_assignments
        FROM drivers d
        JOIN driver_states s ON s.driver_id = d.id
        WHERE d.approved
          AND d.active
          AND s.is_online
          AND s.last_heartbeat_at > $2
          AND s.active_assignments < s.max_concurrent
          AND NOT EXISTS (
              SELECT 1 FROM assignments a
              WHERE a.order_id = $1 AND a.driver_id = d.id
          )
        LIMIT $3
    `, orderID, heartbeatAfter, maxEligibleRows)
	if err != nil {
		return nil, fmt.Errorf("list eligible drivers for order %q: %w", orderID, err)
	}
	defer rows.Close()

	var out []domain.CandidateSnapshot
	for rows.Next() {
		var c domain.CandidateSnapshot
		if err := rows.Scan(&c.DriverID, &c.Rating, &c.TotalDeliveries,
			&c.CompletionRate, &c.ActiveAssignments); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
