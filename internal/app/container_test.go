package app

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/dig"

	"delivery-dispatch/internal/config"
	"delivery-dispatch/internal/http/handlers"
	"delivery-dispatch/internal/logx"
)

func isolateDefaultRegistry(t *testing.T) {
	t.Helper()
	oldReg := prometheus.DefaultRegisterer
	oldGath := prometheus.DefaultGatherer
	reg := prometheus.NewRegistry()
	prometheus.DefaultRegisterer = reg
	prometheus.DefaultGatherer = reg
	t.Cleanup(func() {
		prometheus.DefaultRegisterer = oldReg
		prometheus.DefaultGatherer = oldGath
	})
}

func setupTestContainer(t *testing.T) *dig.Container {
	t.Helper()

	c := dig.New()

	providers := []struct {
		name     string
		provider any
	}{
		{"context", func() context.Context { return context.Background() }},
		{"logger", logx.Nop},
		{"config", func() *config.Config { return &config.Config{Port: 8080} }},
		{"pgxpool", func() *pgxpool.Pool { return &pgxpool.Pool{} }},
		{"metrics", provideMetrics},
		{"dispatch metrics", provideDispatchMetrics},
	}

	for _, p := range providers {
		err := c.Provide(p.provider)
		require.NoErrorf(t, err, "provide %s", p.name)
	}

	require.NoError(t, registerDomainServices(c))
	require.NoError(t, registerHTTP(c))

	return c
}

func verifyServer(t *testing.T, srv *http.Server) {
	t.Helper()

	require.NotNil(t, srv, "http.Server is nil")
	require.Equal(t, ":8080", srv.Addr)
	require.Greater(t, srv.ReadHeaderTimeout, time.Duration(0))
	require.Greater(t, srv.ReadTimeout, time.Duration(0))
	require.Greater(t, srv.WriteTimeout, time.Duration(0))
	require.Greater(t, srv.IdleTimeout, time.Duration(0))
}

func TestRegisterServiceAndHTTP_ProvidesHttpServerAndHandlers(t *testing.T) {
	isolateDefaultRegistry(t)

	c := setupTestContainer(t)

	err := c.Invoke(func(
		srv *http.Server,
		base *handlers.Handlers,
		driverHandler *handlers.DriverHandler,
		offerHandler *handlers.OfferHandler,
		adminHandler *handlers.AdminHandler,
	) {
		verifyServer(t, srv)
		require.NotNil(t, base)
		require.NotNil(t, driverHandler)
		require.NotNil(t, offerHandler)
		require.NotNil(t, adminHandler)
	})
	require.NoError(t, err)
}

func TestRegisterHTTP_PprofDisabled_NoPprofServer(t *testing.T) {
	isolateDefaultRegistry(t)

	c := setupTestContainer(t)

	type in struct {
		dig.In
		Pprof *http.Server `name:"pprof_server" optional:"true"`
	}
	err := c.Invoke(func(got in) {
		require.Nil(t, got.Pprof)
	})
	require.NoError(t, err)
}

func TestRegisterHTTP_PprofEnabled_ProvidesPprofServer(t *testing.T) {
	isolateDefaultRegistry(t)

	c := dig.New()
	cfg := &config.Config{
		Port: 8080,
		Pprof: config.Pprof{
			Enabled: true,
			Addr:    "127.0.0.1:6060",
			User:    "u",
			Pass:    "p",
		},
	}
	require.NoError(t, c.Provide(func() *config.Config { return cfg }))
	require.NoError(t, c.Provide(logx.Nop))
	require.NoError(t, c.Provide(func() *pgxpool.Pool { return &pgxpool.Pool{} }))
	require.NoError(t, c.Provide(provideMetrics))
	require.NoError(t, c.Provide(provideDispatchMetrics))
	require.NoError(t, registerDomainServices(c))
	require.NoError(t, registerHTTP(c))

	type in struct {
		dig.In
		Pprof *http.Server `name:"pprof_server" optional:"true"`
	}
	err := c.Invoke(func(got in) {
		require.NotNil(t, got.Pprof)
		require.Equal(t, "127.0.0.1:6060", got.Pprof.Addr)
		require.NotNil(t, got.Pprof.Handler)
	})
	require.NoError(t, err)
}

func TestProvideAll_Success(t *testing.T) {
	t.Parallel()

	c := dig.New()

	err := provideAll(c,
		func() context.Context { return context.Background() },
		func() time.Duration { return 3 * time.Second },
	)
	require.NoError(t, err)

	err = c.Invoke(func(ctx context.Context, d time.Duration) {
		require.NotNil(t, ctx)
		require.Equal(t, 3*time.Second, d)
	})
	require.NoError(t, err)
}

func TestProvideAll_InvalidProvider(t *testing.T) {
	t.Parallel()

	c := dig.New()

	type bad struct{}
	err := provideAll(c, bad{})
	require.Error(t, err)
}

func TestRegisterDb_UsesDbConnectAndProvidesPool(t *testing.T) {
	t.Parallel()

	c := dig.New()
	ctx := context.Background()

	cfg := &config.Config{
		DB: config.DB{
			Host: "localhost",
			Port: "5432",
			User: "user",
			Pass: "pass",
			Name: "db",
		},
	}

	require.NoError(t, c.Provide(func() context.Context { return ctx }))
	require.NoError(t, c.Provide(func() *config.Config { return cfg }))
	require.NoError(t, c.Provide(logx.Nop))

	stubPool := &pgxpool.Pool{}

	stubConnect := func(
		gotCtx context.Context,
		_ logx.Logger,
		dsn string,
		retries int,
		delay time.Duration,
	) (*pgxpool.Pool, error) {
		require.Equal(t, ctx, gotCtx)
		require.Equal(t, cfg.DB.DSN(), dsn)
		require.Equal(t, 10, retries)
		require.Equal(t, time.Second, delay)
		return stubPool, nil
	}

	err := registerDb(c, stubConnect)
	require.NoError(t, err)

	err = c.Invoke(func(pool *pgxpool.Pool) {
		require.Equal(t, stubPool, pool)
	})
	require.NoError(t, err)
}

func TestContainerBuilder_Build_DBError(t *testing.T) {
	isolateDefaultRegistry(t)

	ctx := context.Background()

	builder := NewContainerBuilder().
		WithDBConnect(func(context.Context, logx.Logger, string, int, time.Duration) (*pgxpool.Pool, error) {
			return nil, fmt.Errorf("db failed")
		})

	c, err := builder.build(ctx)
	require.NoError(t, err)
	require.NotNil(t, c)

	err = c.Invoke(func(pool *pgxpool.Pool) {
		_ = pool
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), "db failed")
}

func TestProvideMetrics_ReusesExistingCounter(t *testing.T) {
	isolateDefaultRegistry(t)

	first, err := provideMetrics()
	require.NoError(t, err)
	require.NotNil(t, first.RateLimitExceededTotal)

	second, err := provideMetrics()
	require.NoError(t, err)
	require.Same(t, first.RateLimitExceededTotal, second.RateLimitExceededTotal)
}

func TestProvideDispatchMetrics_ToleratesDuplicate(t *testing.T) {
	isolateDefaultRegistry(t)

	m1, err := provideDispatchMetrics()
	require.NoError(t, err)
	require.NotNil(t, m1)

	m2, err := provideDispatchMetrics()
	require.NoError(t, err)
	require.NotNil(t, m2)
}
