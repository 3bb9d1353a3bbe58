package dispatch

import (
	"context"
	"errors"

	"delivery-dispatch/internal/apperr"
	"delivery-dispatch/internal/logx"
)

// Processor dispatches order status events to the matching engine action.
type Processor struct {
	svc     *Service
	factory *actionFactory
	logger  logx.Logger
}

// NewProcessor creates a new dispatch event Processor.
func NewProcessor(svc *Service, logger logx.Logger) *Processor {
	p := &Processor{svc: svc, logger: logger}
	p.factory = newActionFactory(p.onDispatchable, p.onCancelled, p.onCompleted)
	return p
}

// Handle processes a single order Event. Unknown statuses are ignored.
func (p *Processor) Handle(ctx context.Context, e Event) error {
	if p.factory == nil {
		return nil
	}
	fn, ok := p.factory.get(e.Status)
	if !ok {
		return nil
	}
	return fn(ctx, e)
}

func (p *Processor) onDispatchable(ctx context.Context, e Event) error {
	err := p.svc.StartDispatch(ctx, e.OrderID)
	if errors.Is(err, apperr.ErrNotFound) {
		// The order row has not reached our store yet; the event will
		// not be retried forever for a view that may never appear.
		p.logger.Warn("dispatch event for unknown order",
			logx.String("order_id", e.OrderID),
			logx.String("status", e.Status),
		)
		return nil
	}
	if errors.Is(err, apperr.ErrConflict) {
		return nil
	}
	return err
}

func (p *Processor) onCancelled(ctx context.Context, e Event) error {
	err := p.svc.Cancel(ctx, e.OrderID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	return err
}

func (p *Processor) onCompleted(ctx context.Context, e Event) error {
	return p.svc.Complete(ctx, e.OrderID)
}
