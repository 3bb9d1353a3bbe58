package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"delivery-dispatch/internal/http/handlers"
	custommw "delivery-dispatch/internal/http/middleware"
	"delivery-dispatch/internal/http/middleware/ratelimit"
	"delivery-dispatch/internal/logx"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger    logx.Logger
	Base      *handlers.Handlers
	Drivers   *handlers.DriverHandler
	Offers    *handlers.OfferHandler
	Admin     *handlers.AdminHandler
	RateLimit *ratelimit.Middleware
}

// New constructs a chi-based http.Handler with base middleware and routes.
// The rate limit applies to driver-facing routes only; admin and service
// endpoints stay unthrottled.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommw.Observability(d.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(5 * time.Second))

	r.Get("/ping", d.Base.Ping)
	r.Method(http.MethodHead, "/healthcheck", http.HandlerFunc(d.Base.HealthcheckHead))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if d.RateLimit != nil {
			r.Use(d.RateLimit.Handler())
		}
		r.Route("/drivers/{id}", func(r chi.Router) {
			r.Post("/presence", d.Drivers.SetPresence)
			r.Post("/heartbeat", d.Drivers.Heartbeat)
			r.Get("/state", d.Drivers.GetState)
		})
		r.Route("/offers/{id}", func(r chi.Router) {
			r.Post("/accept", d.Offers.Accept)
			r.Post("/decline", d.Offers.Decline)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Get("/health", d.Admin.Health)
		r.Post("/sweep", d.Admin.Sweep)
		r.Post("/dispatch/{orderID}", d.Admin.Dispatch)
	})

	r.NotFound(http.HandlerFunc(d.Base.NotFound))

	return r
}
