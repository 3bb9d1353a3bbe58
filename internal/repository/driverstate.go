package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"delivery-dispatch/internal/domain"
)

const driverStateColumns = `driver_id, is_online, active_assignments, max_concurrent,
	zone_id, last_heartbeat_at, online_since, last_location_at, lat, lng`

// DriverStateRepo represents driver presence/capacity repository.
type DriverStateRepo struct {
	db *pgxpool.Pool
}

// NewDriverStateRepo creates a new DriverStateRepo.
func NewDriverStateRepo(db *pgxpool.Pool) *DriverStateRepo {
	return &DriverStateRepo{db: db}
}

func scanDriverState(row rowScanner) (*domain.DriverState, error) {
	var s domain.DriverState
	err := row.Scan(&s.DriverID, &s.IsOnline, &s.ActiveAssignments, &s.MaxConcurrent,
		&s.ZoneID, &s.LastHeartbeatAt, &s.OnlineSince, &s.LastLocationAt, &s.Lat, &s.Lng)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Get - returns driver state by driver ID.
func (r *DriverStateRepo) Get(ctx context.Context, driverID int64) (*domain.DriverState, error) {
	s, err := scanDriverState(r.db.QueryRow(ctx,
		`SELECT `+driverStateColumns+` FROM driver_states WHERE driver_id = $1`, driverID))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get driver state %d: %w", driverID, err)
	}
	return s, nil
}

// UpsertPresence - upserts the driver's online flag. online_since is set on a
// false→true transition and cleared on true→false; repeated identical calls
// change nothing.
func (r *DriverStateRepo) UpsertPresence(ctx context.Context, driverID int64, online bool, maxConcurrent *int, zoneID *string, now time.Time) (*domain.DriverState, error) {
	s, err := scanDriverState(r.db.QueryRow(ctx, `
        INSERT INTO driver_states (driver_id, is_online, active_assignments, max_concurrent,
                                   zone_id, last_heartbeat_at, online_since)
        VALUES ($1, $2, 0, COALESCE($3, 1), $4, $5, CASE WHEN $2 THEN $5 END)
        ON CONFLICT (driver_id) DO UPDATE SET
            is_online      = EXCLUDED.is_online,
            max_concurrent = COALESCE($3, driver_states.max_concurrent),
            zone_id        = COALESCE($4, driver_states.zone_id),
            online_since   = CASE
                WHEN EXCLUDED.is_online AND NOT driver_states.is_online THEN $5
                WHEN NOT EXCLUDED.is_online THEN NULL
                ELSE driver_states.online_since
            END
        RETURNING `+driverStateColumns,
		driverID, online, maxConcurrent, zoneID, now))
	if err != nil {
		return nil, fmt.Errorf("upsert presence for driver %d: %w", driverID, err)
	}
	return s, nil
}

// Heartbeat - refreshes heartbeat and, when coordinates are present, location.
// Creates the state defaulting to online on first contact.
func (r *DriverStateRepo) Heartbeat(ctx context.Context, driverID int64, lat, lng *float64, zoneID *string, now time.Time) (*domain.DriverState, error) {
	s, err := scanDriverState(r.db.QueryRow(ctx, `
        INSERT INTO driver_states (driver_id, is_online, active_assignments, max_concurrent,
                                   zone_id, last_heartbeat_at, online_since, last_location_at, lat, lng)
        VALUES ($1, TRUE, 0, 1, $4, $5, $5,
                CASE WHEN $2::double precision IS NOT NULL THEN $5 END, $2, $3)
        ON CONFLICT (driver_id) DO UPDATE SET
            last_heartbeat_at = $5,
            zone_id           = COALESCE($4, driver_states.zone_id),
            last_location_at  = CASE WHEN $2::double precision IS NOT NULL THEN $5
                                     ELSE driver_states.last_location_at END,
            lat               = COALESCE($2, driver_states.lat),
            lng               = COALESCE($3, driver_states.lng)
        RETURNING `+driverStateColumns,
		driverID, lat, lng, zoneID, now))
	if err != nil {
		return nil, fmt.Errorf("heartbeat for driver %d: %w", driverID, err)
	}
	return s, nil
}

// MarkStaleOffline - flips is_online off for drivers whose heartbeat is older
// than the cutoff. Returns the number of drivers flipped.
func (r *DriverStateRepo) MarkStaleOffline(ctx context.Context, olderThan time.Time) (int64, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE driver_states
        SET is_online = FALSE, online_since = NULL
        WHERE is_online AND last_heartbeat_at < $1
    `, olderThan)
	if err != nil {
		return 0, fmt.Errorf("mark stale drivers offline: %w", err)
	}
	return ct.RowsAffected(), nil
}

// ReconcileActive - recomputes active_assignments from the authoritative
// count of accepted assignments and corrects any drift. Returns the number of
// corrected rows.
func (r *DriverStateRepo) ReconcileActive(ctx context.Context) (int64, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE driver_states ds
        SET active_assignments = sub.cnt
        FROM (
            SELECT d.driver_id,
                   (SELECT COUNT(*) FROM assignments a
                     WHERE a.driver_id = d.driver_id AND a.status = 'accepted') AS cnt
            FROM driver_states d
        ) sub
        WHERE sub.driver_id = ds.driver_id
          AND ds.active_assignments <> sub.cnt
    `)
	if err != nil {
		return 0, fmt.Errorf("reconcile active counts: %w", err)
	}
	return ct.RowsAffected(), nil
}

// PresenceStats - returns online/busy driver counts for the health snapshot.
func (r *DriverStateRepo) PresenceStats(ctx context.Context) (online, busy int, err error) {
	err = r.db.QueryRow(ctx, `
        SELECT
            COUNT(*) FILTER (WHERE is_online),
            COUNT(*) FILTER (WHERE is_online AND active_assignments > 0)
        FROM driver_states
    `).Scan(&online, &busy)
	if err != nil {
		return 0, 0, fmt.Errorf("presence stats: %w", err)
	}
	return online, busy, nil
}
