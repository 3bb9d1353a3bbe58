package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/service/dispatch"
	"delivery-dispatch/internal/transport/kafka"
)

// MustBuildWorkerContainer builds the worker dig container: the Kafka order
// consumer, the dispatch processor and the maintenance sweeper.
func MustBuildWorkerContainer(ctx context.Context) *dig.Container {
	return NewWorkerContainerBuilder().MustBuild(ctx)
}

// WorkerContainerBuilder is a dig container builder for the worker process.
type WorkerContainerBuilder struct {
	inner *ContainerBuilder
}

// NewWorkerContainerBuilder returns a new worker container builder
func NewWorkerContainerBuilder() *WorkerContainerBuilder {
	return &WorkerContainerBuilder{inner: NewContainerBuilder()}
}

// WithDBConnect sets the database connection function
func (b *WorkerContainerBuilder) WithDBConnect(
	fn func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error),
) *WorkerContainerBuilder {
	b.inner.WithDBConnect(fn)
	return b
}

// MustBuild builds and returns the worker dig container
func (b *WorkerContainerBuilder) MustBuild(ctx context.Context) *dig.Container {
	container, err := b.build(ctx)
	if err != nil {
		b.inner.logFatalf("failed to build worker container: %v", err)
	}
	return container
}

func (b *WorkerContainerBuilder) build(ctx context.Context) (*dig.Container, error) {
	container := dig.New()

	if err := registerCore(container, ctx); err != nil {
		return nil, fmt.Errorf("core: %w", err)
	}
	if err := registerDb(container, b.inner.dbConnect); err != nil {
		return nil, fmt.Errorf("DB: %w", err)
	}
	if err := registerDomainServices(container); err != nil {
		return nil, fmt.Errorf("service: %w", err)
	}
	if err := registerWorker(container); err != nil {
		return nil, fmt.Errorf("worker: %w", err)
	}
	return container, nil
}

func registerWorker(container *dig.Container) error {
	return provideAll(container,
		dispatch.NewProcessor,
		func(p *dispatch.Processor) kafka.HandleFunc {
			return p.Handle
		},
		func(cfg *config.Config, h kafka.HandleFunc, logger logx.Logger) (*kafka.Consumer, error) {
			return kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.OrdersTopic, h, logger)
		},
	)
}
