package metrics

import "github.com/prometheus/client_golang/prometheus"

// Dispatch groups the dispatch engine counters.
type Dispatch struct {
	OffersCreated     prometheus.Counter
	OfferAccepts      prometheus.Counter
	OfferDeclines     prometheus.Counter
	OfferConflicts    *prometheus.CounterVec
	OffersExpired     prometheus.Counter
	WavesEscalated    prometheus.Counter
	DispatchExhausted prometheus.Counter
	SweepRuns         prometheus.Counter
	DriftCorrected    prometheus.Counter
	NotifyFailures    prometheus.Counter
}

// NewDispatch returns unregistered dispatch counters; call Register to attach
// them to a registry.
func NewDispatch() *Dispatch {
	return &Dispatch{
		OffersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_offers_created_total",
			Help: "Total number of assignment offers created",
		}),
		OfferAccepts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_offer_accepts_total",
			Help: "Total number of accepted assignment offers",
		}),
		OfferDeclines: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_offer_declines_total",
			Help: "Total number of declined assignment offers",
		}),
		OfferConflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_offer_conflicts_total",
			Help: "Total number of offer responses rejected by a race or state check",
		}, []string{"reason"}),
		OffersExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_offers_expired_total",
			Help: "Total number of assignment offers expired by the sweeper or a winning accept",
		}),
		WavesEscalated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_waves_escalated_total",
			Help: "Total number of escalations to a next wave",
		}),
		DispatchExhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_exhausted_total",
			Help: "Total number of orders that ran out of waves without an acceptance",
		}),
		SweepRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_sweep_runs_total",
			Help: "Total number of maintenance sweep passes",
		}),
		DriftCorrected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_counter_drift_corrected_total",
			Help: "Total number of driver active-assignment counters corrected by the sweeper",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dispatch_notify_failures_total",
			Help: "Total number of driver notification emit failures",
		}),
	}
}

// Register attaches all dispatch collectors to reg.
func (m *Dispatch) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		m.OffersCreated, m.OfferAccepts, m.OfferDeclines, m.OfferConflicts,
		m.OffersExpired, m.WavesEscalated, m.DispatchExhausted,
		m.SweepRuns, m.DriftCorrected, m.NotifyFailures,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}
