package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/hampton/progress-tracker/internal/domain/progress"
	"github.com/hampton/progress-tracker/internal/domain/shared"
	"github.com/hampton/progress-tracker/internal/infrastructure/messaging"
	"github.com/hampton/progress-tracker/internal/infrastructure/metrics"
	"github.com/hampton/progress-tracker/internal/infrastructure/persistence/redis"
	"github.com/hampton/progress-tracker/internal/infrastructure/scheduler"
	"github.com/hampton/progress-tracker/internal/infrastructure/scheduler/jobs"
	httpserver "github.com/hampton/progress-tracker/internal/interface/http"
	"github.com/hampton/progress-tracker/internal/interface/http/handlers"
)

// ══════════════════════════════════════════════════════════════════════════════
// SERVE
// ══════════════════════════════════════════════════════════════════════════════

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr struct {
		host string
		port int
	}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local REST API with metrics and an event stream",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, opts, true)
			if err != nil {
				return err
			}
			defer a.Close()

			if cmd.Flags().Changed("host") {
				a.cfg.HTTP.Host = addr.host
			}
			if cmd.Flags().Changed("port") {
				a.cfg.HTTP.Port = addr.port
			}
			return serve(ctx, a)
		},
	}
	cmd.Flags().StringVar(&addr.host, "host", "", "bind address (overrides http.host)")
	cmd.Flags().IntVar(&addr.port, "port", 0, "port (overrides http.port)")
	return cmd
}

func serve(ctx context.Context, a *app) error {
	cfg := a.cfg
	log := a.log

	// ─────────────────────────────────────────────────────────────────────────
	// 1. ПОДПИСЧИКИ ШИНЫ
	// ─────────────────────────────────────────────────────────────────────────
	collector := metrics.New()
	if err := collector.Attach(a.bus); err != nil {
		return fmt.Errorf("failed to attach metrics: %w", err)
	}
	broadcaster := messaging.NewBroadcaster(cfg.Events.StreamBuffer, log)
	if err := broadcaster.Attach(a.bus); err != nil {
		return fmt.Errorf("failed to attach event stream: %w", err)
	}

	// События, пришедшие из другого процесса (например, из CLI), означают,
	// что сохранённое состояние изменилось.
	if err := a.bus.SubscribeAll(func(e shared.Event) error {
		if _, remote := e.(*messaging.RemoteEvent); !remote {
			return nil
		}
		return a.tracker.Reload(ctx)
	}); err != nil {
		return fmt.Errorf("failed to subscribe reloader: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. ПРОВЕРКИ ЗДОРОВЬЯ
	// ─────────────────────────────────────────────────────────────────────────
	health := handlers.NewCompositeHealthChecker(version)
	if p, ok := a.repo.(handlers.Pinger); ok {
		health.AddCheck("store", handlers.NewPingCheck(p))
	}
	var snapshots *redis.SnapshotCache
	if a.redis != nil {
		health.AddCheck("redis", handlers.NewPingCheck(a.redis))
		if cfg.HTTP.SnapshotCache {
			snapshots = redis.NewSnapshotCache(a.redis, 0)
		}
	}
	if a.breaker != nil {
		health.AddCheck("content", handlers.NewBreakerCheck(a.breaker))
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 3. ФОНОВЫЕ ЗАДАЧИ
	// ─────────────────────────────────────────────────────────────────────────
	sched, err := newScheduler(a, collector)
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer func() { _ = sched.Stop() }()

	// ─────────────────────────────────────────────────────────────────────────
	// 4. HTTP-СЕРВЕР
	// ─────────────────────────────────────────────────────────────────────────
	serverCfg := httpserver.DefaultConfig()
	serverCfg.Host = cfg.HTTP.Host
	serverCfg.Port = cfg.HTTP.Port
	serverCfg.ReadTimeout = cfg.HTTP.ReadTimeout
	serverCfg.WriteTimeout = cfg.HTTP.WriteTimeout
	serverCfg.Version = version

	srv, err := httpserver.NewServer(serverCfg, httpserver.Dependencies{
		Tracker:   a.tracker,
		Events:    broadcaster,
		Metrics:   collector,
		Snapshots: snapshots,
		Health:    health,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. ЗАПУСК И ОСТАНОВКА
	// ─────────────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout(cfg.App.ShutdownTimeout))
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("hampton is serving",
		"addr", srv.Address(),
		"store", cfg.Store.Driver,
		"redis", a.redis != nil,
		"jobs", len(sched.ListJobs()),
		"version", version,
	)
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("hampton stopped")
	return nil
}

func shutdownTimeout(d time.Duration) time.Duration {
	if d <= 0 {
		return 10 * time.Second
	}
	return d
}

// newScheduler регистрирует фоновые задачи сервера. Без Redis синхронизация
// с CLI держится на периодической проверке хранилища.
func newScheduler(a *app, collector *metrics.Collector) (*scheduler.Scheduler, error) {
	sched := scheduler.New(scheduler.Config{
		Logger:   a.log,
		Location: a.cfg.App.Location,
		Clock:    clock,
		OnJobComplete: func(r scheduler.JobResult) {
			collector.ObserveJob(r.JobName, r.Error)
		},
	})

	if every := a.cfg.Store.SyncInterval; every > 0 {
		if err := sched.Register(jobs.NewStoreSyncJob(a.repo, a.tracker, a.log), scheduler.Every(every)); err != nil {
			return nil, err
		}
	}
	if a.breaker != nil {
		project := func() progress.Project { return a.tracker.Snapshot().SelectedProject }
		if err := sched.Register(jobs.NewContentProbeJob(a.source, project, a.log), scheduler.Every(time.Minute)); err != nil {
			return nil, err
		}
	}
	if err := sched.Register(jobs.NewDailyDigestJob(a.tracker, a.log), scheduler.DailyAt(9, 0)); err != nil {
		return nil, err
	}
	return sched, nil
}
