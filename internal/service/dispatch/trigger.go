package dispatch

import (
	"context"
	"errors"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
)

// Config tunes the trigger/escalation behavior.
type Config struct {
	Plan               domain.WavePlan
	EscalationInterval time.Duration
	Retry              RetryConfig
}

// Service is the dispatch entry point: it runs waves on order transitions and
// escalates through the wave plan when a wave fails to produce an acceptance.
// Escalation timing is persisted (escalations.due_at), never held only in
// process memory.
type Service struct {
	finder      FinderPort
	offers      OffersPort
	escalations escalationRepository
	orders      orderGetter
	cfg         Config
	metrics     *metrics.Dispatch
	logger      logx.Logger
	now         func() time.Time
}

// NewService creates and configures a dispatch Service.
func NewService(finder FinderPort, offers OffersPort, escalations escalationRepository, orders orderGetter, cfg Config, m *metrics.Dispatch, logger logx.Logger) *Service {
	if cfg.EscalationInterval <= 0 {
		cfg.EscalationInterval = 10 * time.Second
	}
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	return &Service{
		finder:      finder,
		offers:      offers,
		escalations: escalations,
		orders:      orders,
		cfg:         cfg,
		metrics:     m,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// StartDispatch begins wave 1 for an order that just became dispatchable.
// Idempotent: an already assigned order or one with a pending escalation is
// left alone.
func (s *Service) StartDispatch(ctx context.Context, orderID string) error {
	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return apperr.ErrNotFound
	}
	if order.Assigned() || !order.Status.Dispatchable() {
		return nil
	}

	esc, err := s.escalations.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if esc != nil && esc.Status == domain.EscalationPending {
		return nil
	}

	return s.runWave(ctx, orderID, 1)
}

// Dispatch runs a specific wave; exposed for the admin re-dispatch trigger.
func (s *Service) Dispatch(ctx context.Context, orderID string, wave int) error {
	if wave < 1 {
		return apperr.ErrInvalid
	}
	return s.runWave(ctx, orderID, wave)
}

// runWave executes one wave: find candidates, create offers, persist the
// follow-up escalation. A wave with zero candidates is not an error; it just
// escalates sooner.
func (s *Service) runWave(ctx context.Context, orderID string, wave int) error {
	cfg, ok := s.cfg.Plan.For(wave)
	if !ok {
		return s.exhaust(ctx, orderID, wave)
	}

	cands, err := s.finder.FindCandidates(ctx, orderID, wave, cfg.DriverCount)
	if err != nil {
		return err
	}
	driverIDs := make([]int64, 0, len(cands))
	for _, c := range cands {
		driverIDs = append(driverIDs, c.DriverID)
	}

	var created []domain.Assignment
	err = s.withRetry(ctx, "create offers", func() error {
		var cerr error
		created, cerr = s.offers.CreateOffers(ctx, orderID, driverIDs, cfg.TTL, wave, cfg.RadiusKm)
		return cerr
	})
	switch {
	case errors.Is(err, apperr.ErrConflict):
		// Lost the race to an acceptance or the order left a
		// dispatchable status; either way this dispatch cycle is over.
		return s.escalations.MarkDone(ctx, orderID)
	case err != nil:
		s.logger.Error("dispatch wave failed",
			logx.String("order_id", orderID),
			logx.Int("wave", wave),
			logx.Any("err", err),
		)
		return err
	}

	// Schedule the next wave by due time. If this wave created offers, the
	// follow-up fires after their TTL plus the escalation interval; with no
	// offers there is nothing to wait out.
	dueAt := s.now().Add(s.cfg.EscalationInterval)
	if len(created) > 0 {
		dueAt = dueAt.Add(cfg.TTL)
	}
	if err := s.escalations.Schedule(ctx, orderID, wave+1, dueAt); err != nil {
		return err
	}

	s.logger.Info("dispatch wave ran",
		logx.String("event", "wave_dispatched"),
		logx.String("order_id", orderID),
		logx.Int("wave", wave),
		logx.Int("offers", len(created)),
		logx.Float64("radius_km", cfg.RadiusKm),
		logx.Time("next_check_at", dueAt),
	)
	return nil
}

// RunDue processes pending escalations whose due time has passed. Called by
// the sweeper loop and by the manual sweep trigger.
func (s *Service) RunDue(ctx context.Context) (int, error) {
	due, err := s.escalations.Due(ctx, s.now(), 50)
	if err != nil {
		return 0, err
	}

	ran := 0
	for _, e := range due {
		if err := s.escalate(ctx, e); err != nil {
			s.logger.Error("escalation failed",
				logx.String("order_id", e.OrderID),
				logx.Int("wave", e.NextWave),
				logx.Any("err", err),
			)
			continue
		}
		ran++
	}
	return ran, nil
}

func (s *Service) escalate(ctx context.Context, e domain.Escalation) error {
	order, err := s.orders.Get(ctx, e.OrderID)
	if err != nil {
		return err
	}
	if order == nil || order.Assigned() || !order.Status.Dispatchable() {
		return s.escalations.MarkDone(ctx, e.OrderID)
	}

	if e.NextWave > s.cfg.Plan.MaxWave() {
		return s.exhaust(ctx, e.OrderID, e.NextWave)
	}

	if s.metrics != nil {
		s.metrics.WavesEscalated.Inc()
	}
	return s.runWave(ctx, e.OrderID, e.NextWave)
}

// exhaust marks the order as out of waves. Terminal but non-fatal: the order
// stays undispatched and needs manual handling.
func (s *Service) exhaust(ctx context.Context, orderID string, wave int) error {
	if err := s.escalations.MarkExhausted(ctx, orderID); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.DispatchExhausted.Inc()
	}
	s.logger.Warn("dispatch exhausted, order needs manual intervention",
		logx.String("event", "dispatch_exhausted"),
		logx.String("order_id", orderID),
		logx.Int("wave", wave),
	)
	return nil
}

// Cancel invalidates all pending offers for an externally cancelled order.
func (s *Service) Cancel(ctx context.Context, orderID string) error {
	_, err := s.offers.InvalidateOrder(ctx, orderID)
	return err
}

// Complete closes the accepted assignment once the order is delivered.
func (s *Service) Complete(ctx context.Context, orderID string) error {
	return s.offers.Complete(ctx, orderID)
}
