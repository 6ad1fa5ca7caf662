package server

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"VolSurf/internal/handler/api"
	"VolSurf/internal/service/ratelimit"
	"VolSurf/internal/services/surface"
	"VolSurf/internal/usecase"
	"VolSurf/pkg/cache"
	pkgch "VolSurf/pkg/clickhouse"
	"VolSurf/pkg/config"
	xhttp "VolSurf/pkg/http"
	pkgkafka "VolSurf/pkg/kafka"
	applogger "VolSurf/pkg/logger"
)

// limiterIdle is how long a client's grid bucket survives without requests.
const limiterIdle = 10 * time.Minute

// Deps are the wired components the App runs. Optional infrastructure is nil
// when disabled in config.
type Deps struct {
	Logger      *applogger.Logger
	Engine      *surface.Engine
	Ingestor    *usecase.SampleIngestor
	Query       *usecase.SurfaceQuery
	Broadcaster *usecase.SurfaceBroadcaster
	Stream      *api.SurfaceStream
	Handler     xhttp.Handler
	Limiter     *ratelimit.Limiter
	Consumer    *pkgkafka.Consumer
	Handlers    []pkgkafka.MessageHandler
	Producer    *pkgkafka.Producer
	ClickHouse  *pkgch.Client
	Cache       cache.Service
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	deps       Deps
	log        *applogger.Logger
	httpServer *xhttp.Server
	wg         sync.WaitGroup
	seedDemo   bool
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, deps Deps) *App {
	l := deps.Logger
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, deps: deps, log: l}
}

// SeedDemo makes Run load the built-in demo quotes before serving.
func (a *App) SeedDemo(enabled bool) { a.seedDemo = enabled }

// Run starts the application and blocks until SIGINT or SIGTERM.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the application and blocks until ctx is done, then
// shuts everything down.
func (a *App) RunContext(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.load(ctx); err != nil {
		return err
	}

	// Start consumer if configured
	if a.deps.Consumer != nil && len(a.deps.Handlers) > 0 {
		for _, h := range a.deps.Handlers {
			a.deps.Consumer.RegisterHandler(h)
		}
		if err := a.deps.Consumer.Start(); err != nil {
			return err
		}
	}

	if a.deps.Broadcaster != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.deps.Broadcaster.Run(runCtx)
		}()
	}

	if a.deps.Limiter != nil {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			a.pruneLimiter(runCtx)
		}()
	}

	metricsPath := ""
	if a.cfg.Metrics.Enabled {
		metricsPath = a.cfg.Metrics.Path
	}
	a.httpServer = xhttp.NewServer(a.deps.Handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
		xhttp.WithMetrics(metricsPath),
		xhttp.WithCORS(a.cfg.Server.CORSOrigins, api.HeaderSurfaceVersion),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	fields := []applogger.Field{
		applogger.String("env", a.cfg.Environment),
		applogger.String("engine_id", a.deps.Engine.ID()),
		applogger.Int("samples", a.deps.Engine.Count()),
		applogger.String("duplicate_policy", a.deps.Engine.DuplicatePolicy().String()),
	}
	if a.deps.Consumer != nil {
		fields = append(fields, applogger.Strings("brokers", a.cfg.Kafka.Brokers))
	}
	a.log.Info("volsurf running", fields...)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// load restores persisted samples, optionally seeds the demo quotes and
// builds the first surface so the first query does not pay for it.
func (a *App) load(ctx context.Context) error {
	if a.deps.Ingestor == nil {
		return nil
	}
	if _, err := a.deps.Ingestor.Restore(ctx); err != nil {
		return err
	}
	if a.seedDemo {
		rep := a.deps.Ingestor.Ingest(ctx, "demo", surface.DemoSamples())
		a.log.Info("demo samples seeded",
			applogger.Int("stored", len(rep.Stored)),
			applogger.Int("rejected", len(rep.Rejected)),
		)
	}
	if err := a.deps.Engine.Rebuild(); err != nil && !errors.Is(err, surface.ErrDegenerateDomain) {
		a.log.Warn("initial surface build failed", applogger.Error(err))
	}
	return nil
}

func (a *App) pruneLimiter(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := a.deps.Limiter.Prune(limiterIdle); n > 0 {
				a.log.Debug("rate limiter pruned", applogger.Int("buckets", n))
			}
		}
	}
}

// shutdown gracefully stops all services: inbound traffic first, then
// background work, then infrastructure clients.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	a.log.Info("shutting down...")

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}
	if a.deps.Stream != nil {
		a.deps.Stream.Close()
	}

	if a.deps.Consumer != nil && len(a.deps.Handlers) > 0 {
		if err := a.deps.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	a.wg.Wait()

	if a.deps.Query != nil {
		if err := a.deps.Query.Purge(ctx); err != nil {
			a.log.Warn("grid cache purge error", applogger.Error(err))
		}
	}
	if a.deps.Cache != nil {
		if err := a.deps.Cache.Close(); err != nil {
			a.log.Warn("cache close error", applogger.Error(err))
		}
	}
	if a.deps.ClickHouse != nil {
		if err := a.deps.ClickHouse.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")

	// flush the log digest before the producer it publishes through
	a.log.RemoveCollector()
	if a.deps.Producer != nil {
		if err := a.deps.Producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return nil
}
