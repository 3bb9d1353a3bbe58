package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/http/handlers"
	"delivery-dispatch/internal/http/middleware/ratelimit"
	"delivery-dispatch/internal/http/pprofserver"
	"delivery-dispatch/internal/http/router"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/metrics"
	"delivery-dispatch/internal/ports/notify"
	"delivery-dispatch/internal/repository"
	"delivery-dispatch/internal/service/dispatch"
	"delivery-dispatch/internal/service/finder"
	"delivery-dispatch/internal/service/offers"
	"delivery-dispatch/internal/service/presence"
	"delivery-dispatch/internal/service/sweeper"
	"delivery-dispatch/internal/transport/kafka"
)

// ContainerBuilder is a dig container builder.
type ContainerBuilder struct {
	dbConnect func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error)
	logFatalf func(string, ...interface{})
}

// NewContainerBuilder returns a new dig container builder
func NewContainerBuilder() *ContainerBuilder {
	return &ContainerBuilder{
		dbConnect: connectDbWithRetry,
		logFatalf: log.Fatalf,
	}
}

// WithDBConnect sets the database connection function
func (b *ContainerBuilder) WithDBConnect(
	fn func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error),
) *ContainerBuilder {
	if fn != nil {
		b.dbConnect = fn
	}
	return b
}

// WithLogFatalf sets the log.Fatalf function
func (b *ContainerBuilder) WithLogFatalf(fn func(string, ...interface{})) *ContainerBuilder {
	if fn != nil {
		b.logFatalf = fn
	}
	return b
}

// MustBuild builds and returns the API dig container
func (b *ContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.logFatalf("failed to build container: %v", err)
	}
	return container
}

func (b *ContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerDomainServices(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerHTTP(container); err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	return container, nil
}

// MustBuildContainer builds and returns the API dig container
func MustBuildContainer(ctx context.Context) *dig.Container {
	return NewContainerBuilder().MustBuild(ctx)
}

func provideAll(container *dig.Container, providers ...any) error {
	for _, provider := range providers {
		if err := container.Provide(provider); err != nil {
			return fmt.Errorf("provide %T: %w", provider, err)
		}
	}
	return nil
}

func registerCore(container *dig.Container, ctx context.Context) error {
	return provideAll(container,
		func() context.Context { return ctx },
		NewLogger,
		config.Load,
		provideMetrics,
		provideDispatchMetrics,
	)
}

func registerDb(
	container *dig.Container,
	dbConnect func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error),
) error {
	providerDB := func(ctx context.Context, logger logx.Logger, cfg *config.Config) (*pgxpool.Pool, error) {
		return dbConnect(ctx, logger, cfg.DB.DSN(), 10, time.Second)
	}
	return provideAll(container, providerDB)
}

// provideEmitter builds the Kafka-backed notification emitter, falling back to
// a no-op when the notify topic is not configured. The concrete *kafka.Notifier
// is provided too so runners can close it.
func provideEmitter(cfg *config.Config) (notify.Emitter, *kafka.Notifier, error) {
	n, err := kafka.NewNotifier(cfg.Kafka.Brokers, cfg.Kafka.NotifyTopic)
	if err != nil {
		return nil, nil, err
	}
	if n == nil {
		return notify.Nop{}, nil, nil
	}
	return n, n, nil
}

func registerDomainServices(container *dig.Container) error {
	return provideAll(container,
		repository.NewAssignmentRepo,
		repository.NewCandidateRepo,
		repository.NewDriverStateRepo,
		repository.NewEscalationRepo,
		repository.NewOrderRepo,
		provideEmitter,
		func(repo *repository.DriverStateRepo, cfg *config.Config, logger logx.Logger) *presence.Service {
			return presence.NewService(repo, cfg.Dispatch.OperationTimeout, logger)
		},
		func(candidates *repository.CandidateRepo, orders *repository.OrderRepo, cfg *config.Config, logger logx.Logger) *finder.Service {
			return finder.NewService(candidates, orders, cfg.Dispatch.HeartbeatFreshFor, cfg.Dispatch.OperationTimeout, logger)
		},
		func(repo *repository.AssignmentRepo, emitter notify.Emitter, m *metrics.Dispatch, cfg *config.Config, logger logx.Logger) *offers.Service {
			return offers.NewService(repo, emitter, m, cfg.Dispatch.OperationTimeout, logger)
		},
		func(
			f *finder.Service,
			o *offers.Service,
			escalations *repository.EscalationRepo,
			orders *repository.OrderRepo,
			cfg *config.Config,
			m *metrics.Dispatch,
			logger logx.Logger,
		) *dispatch.Service {
			return dispatch.NewService(f, o, escalations, orders, dispatch.Config{
				Plan:               cfg.Dispatch.Waves,
				EscalationInterval: cfg.Dispatch.EscalationInterval,
				Retry: dispatch.RetryConfig{
					MaxAttempts: cfg.Dispatch.AcceptRetryAttempts,
					BaseDelay:   cfg.Dispatch.AcceptRetryBase,
					MaxDelay:    cfg.Dispatch.AcceptRetryMax,
				},
			}, m, logger)
		},
		func(
			assignments *repository.AssignmentRepo,
			drivers *repository.DriverStateRepo,
			escalator *dispatch.Service,
			emitter notify.Emitter,
			cfg *config.Config,
			m *metrics.Dispatch,
			logger logx.Logger,
		) *sweeper.Service {
			return sweeper.NewService(assignments, drivers, escalator, emitter, sweeper.Config{
				Interval:        cfg.Dispatch.SweepInterval,
				OfflineAfter:    cfg.Dispatch.OfflineAfter,
				RetentionWindow: cfg.Dispatch.RetentionWindow,
			}, m, logger)
		},
	)
}

type httpServersOut struct {
	dig.Out

	Pprof *http.Server `name:"pprof_server"`
}

func registerHTTP(container *dig.Container) error {
	serverProvider := func(cfg *config.Config, mux http.Handler) *http.Server {
		return &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      15 * time.Second,
			IdleTimeout:       60 * time.Second,
		}
	}
	pprofProvider := func(cfg *config.Config) httpServersOut {
		if !cfg.Pprof.Enabled {
			return httpServersOut{}
		}
		return httpServersOut{
			Pprof: &http.Server{
				Addr:              cfg.Pprof.Addr,
				Handler:           pprofserver.Handler(pprofserver.Config{User: cfg.Pprof.User, Pass: cfg.Pprof.Pass}),
				ReadHeaderTimeout: 5 * time.Second,
			},
		}
	}
	routerProvider := func(
		logger logx.Logger,
		base *handlers.Handlers,
		drivers *handlers.DriverHandler,
		offersHandler *handlers.OfferHandler,
		admin *handlers.AdminHandler,
		rl *ratelimit.Middleware,
	) http.Handler {
		return router.New(router.Deps{
			Logger:    logger,
			Base:      base,
			Drivers:   drivers,
			Offers:    offersHandler,
			Admin:     admin,
			RateLimit: rl,
		})
	}
	return provideAll(container,
		handlers.New,
		handlers.NewPresenceUsecase,
		handlers.NewDriverHandler,
		handlers.NewOfferUsecase,
		handlers.NewOfferHandler,
		handlers.NewDispatchUsecase,
		handlers.NewMaintenanceUsecase,
		handlers.NewAdminHandler,
		newRateLimitClock,
		newRateLimiter,
		newRateLimitMiddleware,
		routerProvider,
		serverProvider,
		pprofProvider,
	)
}
