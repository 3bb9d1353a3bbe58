package finder

import (
	"context"
	"strings"
	"time"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/domain"
	"delivery-dispatch/internal/logx"
)

// Service selects and ranks candidate drivers for an order.
type Service struct {
	candidates       candidateRepository
	orders           orderGetter
	heartbeatFresh   time.Duration
	operationTimeout time.Duration
	logger           logx.Logger
	now              func() time.Time
}

// NewService creates and configures a finder Service.
func NewService(candidates candidateRepository, orders orderGetter, heartbeatFresh, timeout time.Duration, logger logx.Logger) *Service {
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	if heartbeatFresh <= 0 {
		heartbeatFresh = 5 * time.Minute
	}
	return &Service{
		candidates:       candidates,
		orders:           orders,
		heartbeatFresh:   heartbeatFresh,
		operationTimeout: timeout,
		logger:           logger,
		now:              func() time.Time { return time.Now().UTC() },
	}
}

// FindCandidates returns up to limit eligible drivers for the order, best
// score first. Drivers who already hold any assignment row for this order
// are excluded; an empty result is not an error.
func (s *Service) FindCandidates(ctx context.Context, orderID string, wave, limit int) ([]domain.CandidateSnapshot, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" || wave < 1 || limit < 1 {
		return nil, apperr.ErrInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, s.operationTimeout)
	defer cancel()

	order, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, apperr.ErrNotFound
	}

	eligible, err := s.candidates.ListEligible(ctx, orderID, s.now().Add(-s.heartbeatFresh))
	if err != nil {
		return nil, err
	}

	ranked := Rank(eligible, wave)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	s.logger.Debug("candidates selected",
		logx.String("order_id", orderID),
		logx.Int("wave", wave),
		logx.Int("eligible", len(eligible)),
		logx.Int("selected", len(ranked)),
	)
	return ranked, nil
}
