package app

import (
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"delivery-dispatch/internal/metrics"
)

type metricsOut struct {
	dig.Out

	RateLimitExceededTotal prometheus.Counter `name:"rate_limit_exceeded_total"`
}

// provideMetrics registers the rate limit counter on the default registry.
// If a counter with this name is already registered (container rebuilt in the
// same process), the existing one is reused.
func provideMetrics() (metricsOut, error) {
	rl := metrics.NewRateLimitExceededTotal()
	if err := prometheus.DefaultRegisterer.Register(rl); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return metricsOut{}, fmt.Errorf("register rate_limit_exceeded_total: %w", err)
		}
		existing, ok := are.ExistingCollector.(prometheus.Counter)
		if !ok {
			return metricsOut{}, fmt.Errorf("register rate_limit_exceeded_total: existing collector is not a counter")
		}
		rl = existing
	}
	return metricsOut{RateLimitExceededTotal: rl}, nil
}

// provideDispatchMetrics builds the dispatch counters and attaches them to the
// default registry. A duplicate registration is tolerated so tests can build
// more than one container per process.
func provideDispatchMetrics() (*metrics.Dispatch, error) {
	m := metrics.NewDispatch()
	if err := m.Register(prometheus.DefaultRegisterer); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, fmt.Errorf("register dispatch metrics: %w", err)
		}
	}
	return m, nil
}
