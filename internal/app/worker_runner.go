package app

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/dig"

	"delivery-dispatch/internal/logx"
	"delivery-dispatch/internal/service/sweeper"
	"delivery-dispatch/internal/transport/kafka"
)

// WorkerRunner runs the dispatch worker process: the Kafka order consumer and
// the maintenance sweeper loop.
type WorkerRunner struct {
	runFn func(*dig.Container) error
}

// NewWorkerRunner returns a new WorkerRunner
func NewWorkerRunner() *WorkerRunner {
	return &WorkerRunner{runFn: runWorker}
}

// MustRun starts the worker using the provided DI container
func (r *WorkerRunner) MustRun(container *dig.Container) {
	err := r.runFn(container)
	if err == nil || errors.Is(err, context.Canceled) {
		return
	}
	panic(err)
}

func runWorker(container *dig.Container) error {
	return container.Invoke(workerRun)
}

// workerRun blocks until ctx is done. A nil consumer (Kafka unconfigured) is
// valid: the worker then runs the sweeper only, and escalations still advance
// through the persisted due times.
func workerRun(
	ctx context.Context,
	pool *pgxpool.Pool,
	logger logx.Logger,
	consumer *kafka.Consumer,
	sweep *sweeper.Service,
	notifier *kafka.Notifier,
) error {
	if sweep == nil {
		return errors.New("sweeper is nil: worker container misconfigured")
	}
	defer closeWorker(pool, logger, consumer, notifier)

	logger.Info("dispatch-worker started")

	sweepDone := make(chan error, 1)
	go func() { sweepDone <- sweep.Run(ctx) }()

	if consumer == nil {
		logger.Warn("kafka consumer not configured, running sweeper only")
		return <-sweepDone
	}

	consumeDone := make(chan error, 1)
	go func() { consumeDone <- consumer.Run(ctx) }()

	select {
	case err := <-consumeDone:
		return err
	case err := <-sweepDone:
		return err
	}
}

func closeWorker(pool *pgxpool.Pool, logger logx.Logger, consumer *kafka.Consumer, notifier *kafka.Notifier) {
	if err := consumer.Close(); err != nil {
		logger.Error("kafka close error", logx.Any("err", err))
	}
	if err := notifier.Close(); err != nil {
		logger.Error("notifier close error", logx.Any("err", err))
	}
	if pool != nil {
		pool.Close()
	}
}
