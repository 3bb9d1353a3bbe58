package sweeper

import (
	"context"
	"time"

	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
	"delivery-dispatch/internal/ports/notify"
	"delivery-dispatch/internal/service/offers"
)

// Config tunes the maintenance sweeper.
type Config struct {
	Interval        time.Duration
	OfflineAfter    time.Duration
	RetentionWindow time.Duration
}

// Service is the periodic maintenance pass: it expires stale offers, repairs
// drifted state, runs due escalations and reports health. Every step is
// individually idempotent, so partial failures only delay repair until the
// next tick.
type Service struct {
	assignments assignmentRepository
	drivers     driverRepository
	escalator   escalationRunner
	emitter     notify.Emitter
	cfg         Config
	metrics     *metrics.Dispatch
	logger      logx.Logger
	now         func() time.Time
}

// NewService creates and configures a sweeper Service.
func NewService(assignments assignmentRepository, drivers driverRepository, escalator escalationRunner, emitter notify.Emitter, cfg Config, m *metrics.Dispatch, logger logx.Logger) *Service {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.OfflineAfter <= 0 {
		cfg.OfflineAfter = 15 * time.Minute
	}
	if cfg.RetentionWindow <= 0 {
		cfg.RetentionWindow = 30 * 24 * time.Hour
	}
	if emitter == nil {
		emitter = notify.Nop{}
	}
	return &Service{
		assignments: assignments,
		drivers:     drivers,
		escalator:   escalator,
		emitter:     emitter,
		cfg:         cfg,
		metrics:     m,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Run sweeps on the configured interval until ctx is done.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.logger.Info("sweeper started", logx.Duration("interval", s.cfg.Interval))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce performs one full maintenance pass. Also serves the manual
// administrative trigger.
func (s *Service) RunOnce(ctx context.Context) {
	now := s.now()

	expired, err := s.assignments.ExpireDue(ctx, now)
	if err != nil {
		s.logger.Error("sweep: expire due offers", logx.Any("err", err))
	} else if len(expired) > 0 {
		for _, a := range expired {
			s.emitExpired(ctx, a)
		}
		if s.metrics != nil {
			s.metrics.OffersExpired.Add(float64(len(expired)))
		}
		s.logger.Info("sweep: offers expired", logx.Int("count", len(expired)))
	}

	if flipped, err := s.drivers.MarkStaleOffline(ctx, now.Add(-s.cfg.OfflineAfter)); err != nil {
		s.logger.Error("sweep: mark stale drivers offline", logx.Any("err", err))
	} else if flipped > 0 {
		s.logger.Info("sweep: stale drivers taken offline", logx.Int64("count", flipped))
	}

	if corrected, err := s.drivers.ReconcileActive(ctx); err != nil {
		s.logger.Error("sweep: reconcile active counts", logx.Any("err", err))
	} else if corrected > 0 {
		if s.metrics != nil {
			s.metrics.DriftCorrected.Add(float64(corrected))
		}
		s.logger.Warn("sweep: active counters drifted", logx.Int64("corrected", corrected))
	}

	if purged, err := s.assignments.PurgeTerminal(ctx, now.Add(-s.cfg.RetentionWindow)); err != nil {
		s.logger.Error("sweep: purge terminal assignments", logx.Any("err", err))
	} else if purged > 0 {
		s.logger.Info("sweep: terminal assignments purged", logx.Int64("count", purged))
	}

	if s.escalator != nil {
		if _, err := s.escalator.RunDue(ctx); err != nil {
			s.logger.Error("sweep: run due escalations", logx.Any("err", err))
		}
	}

	if s.metrics != nil {
		s.metrics.SweepRuns.Inc()
	}
}

// Health builds the dispatch health snapshot.
func (s *Service) Health(ctx context.Context) (domain.HealthSnapshot, error) {
	online, busy, err := s.drivers.PresenceStats(ctx)
	if err != nil {
		return domain.HealthSnapshot{}, err
	}
	pending, accepted, declined, expired, err := s.assignments.OfferStats(ctx)
	if err != nil {
		return domain.HealthSnapshot{}, err
	}

	snap := domain.HealthSnapshot{
		TakenAt:        s.now(),
		DriversOnline:  online,
		DriversBusy:    busy,
		PendingOffers:  pending,
		OffersAccepted: accepted,
		OffersDeclined: declined,
		OffersExpired:  expired,
	}
	if online > 0 {
		snap.Utilization = float64(busy) / float64(online)
	}
	if responded := accepted + declined + expired; responded > 0 {
		snap.AcceptRate = float64(accepted) / float64(responded)
	}
	return snap, nil
}

func (s *Service) emitExpired(ctx context.Context, a domain.Assignment) {
	err := s.emitter.Emit(ctx, a.DriverID, notify.EventAssignmentStatus, offers.StatusPayload{
		AssignmentID: a.ID,
		OrderID:      a.OrderID,
		Status:       string(domain.StatusExpired),
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.NotifyFailures.Inc()
		}
		s.logger.Warn("sweep: notify emit failed",
			logx.Int64("driver_id", a.DriverID),
			logx.Any("err", err),
		)
	}
}
