package offers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
	"delivery-dispatch/internal/ports/dispatchtx"
	"delivery-dispatch/internal/ports/notify"
)

// Service is the offer state machine: creation, the atomic accept that is the
// linearization point of the whole engine, declines, completion and
// order-level invalidation.
type Service struct {
	repo             txRunner
	emitter          notify.Emitter
	metrics          *metrics.Dispatch
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates and configures an offers Service.
func NewService(repo txRunner, emitter notify.Emitter, m *metrics.Dispatch, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if emitter == nil {
		emitter = notify.Nop{}
	}
	return &Service{
		repo:             repo,
		emitter:          emitter,
		metrics:          m,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.operationTimeout)
}

// CreateOffers inserts one offered assignment per driver with the wave TTL.
// The order must still be in a dispatchable status and unassigned; otherwise
// the call fails with no side effects. Zero drivers is a valid no-op, but the
// order checks still run so callers learn the order left dispatch.
func (s *Service) CreateOffers(ctx context.Context, orderID string, driverIDs []int64, ttl time.Duration, wave int, radiusKm float64) ([]domain.Assignment, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" || ttl <= 0 || wave < 1 {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var (
		created []domain.Assignment
		order   *domain.Order
	)
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		var err error
		// Lock the order row so a concurrent accept cannot assign the
		// order while this wave's offers are being inserted.
		order, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperr.ErrNotFound
		}
		if order.Assigned() {
			return apperr.Conflict(apperr.ReasonAlreadyAssigned)
		}
		if !order.Status.Dispatchable() {
			return fmt.Errorf("order %q in status %q: %w", orderID, order.Status, apperr.ErrConflict)
		}
		if len(driverIDs) == 0 {
			return nil
		}

		now := s.now()
		for _, driverID := range driverIDs {
			a := domain.Assignment{
				OrderID:   orderID,
				DriverID:  driverID,
				Status:    domain.StatusOffered,
				Wave:      wave,
				OfferedAt: now,
				ExpiresAt: now.Add(ttl),
			}
			if err := tx.InsertAssignment(ctx, &a); err != nil {
				return err
			}
			created = append(created, a)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for _, a := range created {
		s.emit(ctx, a.DriverID, notify.EventAssignmentOffer, OfferPayload{
			AssignmentID: a.ID,
			OrderID:      a.OrderID,
			PickupLat:    order.PickupLat,
			PickupLng:    order.PickupLng,
			DropoffLat:   order.DropoffLat,
			DropoffLng:   order.DropoffLng,
			Earning:      order.DriverEarning,
			ExpiresAt:    a.ExpiresAt,
			Wave:         a.Wave,
			RadiusKm:     radiusKm,
		})
	}
	if s.metrics != nil {
		s.metrics.OffersCreated.Add(float64(len(created)))
	}

	s.logger.Info("offers created",
		logx.String("order_id", orderID),
		logx.Int("wave", wave),
		logx.Int("count", len(created)),
		logx.Duration("ttl", ttl),
	)
	return created, nil
}

// AcceptResult carries the winning assignment and the sibling offers expired
// by the win.
type AcceptResult struct {
	Assignment domain.Assignment
	Expired    []domain.Assignment
}

// Accept performs the atomic accept. All checks and writes run in one
// transaction holding the order row lock: the order's null driver reference
// is the implicit mutex, so of any concurrent accepts exactly one wins and
// the rest observe AlreadyAssigned.
func (s *Service) Accept(ctx context.Context, assignmentID, driverID int64) (*AcceptResult, error) {
	if assignmentID <= 0 || driverID <= 0 {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var result AcceptResult
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		a, err := tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.ErrNotFound
		}
		if a.DriverID != driverID {
			return apperr.Conflict(apperr.ReasonNotOwned)
		}

		order, err := tx.GetOrderForUpdate(ctx, a.OrderID)
		if err != nil {
			return err
		}
		if order == nil {
			return apperr.ErrNotFound
		}

		// Re-read under the order lock: a concurrent winner expires
		// siblings while holding it, so this read is stable.
		a, err = tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a == nil {
			// Retention purged the row between the two reads; the first
			// read takes no row lock, so a terminal row can vanish here.
			return apperr.ErrNotFound
		}
		// Order first: a driver whose offer was expired by the winner
		// sees the race they actually lost, not their own stale status.
		if order.Assigned() {
			return apperr.Conflict(apperr.ReasonAlreadyAssigned)
		}
		if a.Status != domain.StatusOffered {
			return apperr.Conflict(apperr.ReasonAlreadyResponded)
		}

		now := s.now()
		if a.ExpiredAt(now) {
			return apperr.Conflict(apperr.ReasonExpired)
		}

		if err := tx.MarkAccepted(ctx, a.ID, now); err != nil {
			return err
		}
		if err := tx.SetOrderDriver(ctx, a.OrderID, driverID, now); err != nil {
			return err
		}
		if err := tx.AdjustActive(ctx, driverID, +1); err != nil {
			return err
		}
		expired, err := tx.ExpireOffered(ctx, a.OrderID, a.ID, now)
		if err != nil {
			return err
		}
		if err := tx.MarkEscalationDone(ctx, a.OrderID); err != nil {
			return err
		}

		accepted := *a
		accepted.Status = domain.StatusAccepted
		accepted.RespondedAt = &now
		accepted.AcceptedAt = &now
		result = AcceptResult{Assignment: accepted, Expired: expired}
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	s.emit(ctx, driverID, notify.EventAssignmentStatus, StatusPayload{
		AssignmentID: result.Assignment.ID,
		OrderID:      result.Assignment.OrderID,
		Status:       string(domain.StatusAccepted),
	})
	for _, e := range result.Expired {
		s.emit(ctx, e.DriverID, notify.EventAssignmentStatus, StatusPayload{
			AssignmentID: e.ID,
			OrderID:      e.OrderID,
			Status:       string(domain.StatusExpired),
		})
	}
	if s.metrics != nil {
		s.metrics.OfferAccepts.Inc()
		s.metrics.OffersExpired.Add(float64(len(result.Expired)))
	}

	s.logger.Info("offer accepted",
		logx.String("event", "offer_accepted"),
		logx.Int64("assignment_id", result.Assignment.ID),
		logx.String("order_id", result.Assignment.OrderID),
		logx.Int64("driver_id", driverID),
		logx.Int("siblings_expired", len(result.Expired)),
	)
	return &result, nil
}

// Decline records the driver's refusal. Same ownership/status/expiry checks
// as accept; never mutates the order.
func (s *Service) Decline(ctx context.Context, assignmentID, driverID int64, reason *string) (*domain.Assignment, error) {
	if assignmentID <= 0 || driverID <= 0 {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var declined domain.Assignment
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		a, err := tx.GetAssignment(ctx, assignmentID)
		if err != nil {
			return err
		}
		if a == nil {
			return apperr.ErrNotFound
		}
		if a.DriverID != driverID {
			return apperr.Conflict(apperr.ReasonNotOwned)
		}
		if a.Status != domain.StatusOffered {
			return apperr.Conflict(apperr.ReasonAlreadyResponded)
		}

		now := s.now()
		if a.ExpiredAt(now) {
			return apperr.Conflict(apperr.ReasonExpired)
		}

		if err := tx.MarkDeclined(ctx, a.ID, now, reason); err != nil {
			return err
		}

		declined = *a
		declined.Status = domain.StatusDeclined
		declined.RespondedAt = &now
		declined.DeclineReason = reason
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	s.emit(ctx, driverID, notify.EventAssignmentStatus, StatusPayload{
		AssignmentID: declined.ID,
		OrderID:      declined.OrderID,
		Status:       string(domain.StatusDeclined),
		Reason:       reason,
	})
	if s.metrics != nil {
		s.metrics.OfferDeclines.Inc()
	}
	return &declined, nil
}

// Complete closes the accepted assignment for the order and releases driver
// capacity. Idempotent: no accepted assignment means success with no effect.
func (s *Service) Complete(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var completed *domain.Assignment
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		a, err := tx.GetAcceptedByOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if a == nil {
			return nil
		}

		now := s.now()
		if err := tx.MarkCompleted(ctx, a.ID, now); err != nil {
			return err
		}
		if err := tx.AdjustActive(ctx, a.DriverID, -1); err != nil {
			return err
		}
		completed = a
		return nil
	})
	if err != nil {
		return err
	}
	if completed == nil {
		return nil
	}

	s.emit(ctx, completed.DriverID, notify.EventAssignmentStatus, StatusPayload{
		AssignmentID: completed.ID,
		OrderID:      completed.OrderID,
		Status:       string(domain.StatusCompleted),
	})
	return nil
}

// InvalidateOrder immediately expires every pending offer for the order and
// closes its escalation. Used when the order is cancelled externally; the
// offers become inert regardless of their nominal expiry.
func (s *Service) InvalidateOrder(ctx context.Context, orderID string) ([]domain.Assignment, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var expired []domain.Assignment
	err := s.repo.WithTx(ctx, func(tx dispatchtx.Repository) error {
		var err error
		expired, err = tx.ExpireOffered(ctx, orderID, 0, s.now())
		if err != nil {
			return err
		}
		return tx.MarkEscalationDone(ctx, orderID)
	})
	if err != nil {
		return nil, err
	}

	for _, e := range expired {
		s.emit(ctx, e.DriverID, notify.EventAssignmentStatus, StatusPayload{
			AssignmentID: e.ID,
			OrderID:      e.OrderID,
			Status:       string(domain.StatusExpired),
		})
	}
	if s.metrics != nil {
		s.metrics.OffersExpired.Add(float64(len(expired)))
	}
	return expired, nil
}

// emit pushes a notification without letting transport failures affect
// dispatch outcomes.
func (s *Service) emit(ctx context.Context, driverID int64, event string, payload any) {
	if err := s.emitter.Emit(ctx, driverID, event, payload); err != nil {
		if s.metrics != nil {
			s.metrics.NotifyFailures.Inc()
		}
		s.logger.Warn("notify emit failed",
			logx.Int64("driver_id", driverID),
			logx.String("notify_event", event),
			logx.Any("err", err),
		)
	}
}

func (s *Service) countConflict(err error) {
	if s.metrics == nil {
		return
	}
	if reason, ok := apperr.ReasonOf(err); ok {
		s.metrics.OfferConflicts.WithLabelValues(string(reason)).Inc()
	}
}
