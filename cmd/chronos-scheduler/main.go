// Chronos Scheduler — постоянно работающий процесс, запускающий scraper
// в окна срабатывания (по умолчанию 08:00 и 22:00).
//
// Scheduler:
//   - Проверяет, попадает ли текущее время в окно trigger
//   - Синхронно запускает scraper, затем выдерживает cooldown
//   - Вне окна спит ровно до следующего trigger
//   - Отдаёт /healthz, /metrics и /api/v1/* на SCHED_PORT
//
// При заданном DB_URL запуски пишутся в историю, а несколько реплик
// координируются через advisory lock: окна обслуживает только лидер.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shaiso/Chronos/internal/api"
	"github.com/shaiso/Chronos/internal/app"
	"github.com/shaiso/Chronos/internal/config"
	"github.com/shaiso/Chronos/internal/repo"
	"github.com/shaiso/Chronos/internal/runner"
	"github.com/shaiso/Chronos/internal/scheduler"
	"github.com/shaiso/Chronos/internal/telemetry"
)

// leaderRetryInterval — как часто резервная реплика пробует стать лидером.
const leaderRetryInterval = 15 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	logger := telemetry.SetupLogger("chronos-scheduler")
	logger.Info("starting chronos-scheduler")

	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		return 1
	}

	// graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	deps, err := app.Build(ctx, cfg, logger, app.Options{})
	if err != nil {
		logger.Error("startup failed", "error", err)
		if errors.Is(err, runner.ErrEnvironment) {
			return 2
		}
		return 1
	}
	defer deps.Close()

	// Config уже провалидирован
	triggers, _ := cfg.Triggers()
	loc, _ := cfg.Location()

	schedCfg := scheduler.Config{
		Triggers: triggers,
		Location: loc,
		Window:   cfg.Schedule.Window,
		Cooldown: cfg.Schedule.Cooldown,
		Launcher: deps.Launcher,
		Sink:     deps.Sink,
		Metrics:  deps.Metrics,
		Logger:   logger,
	}
	var lock *repo.LeaderLock
	if deps.Pool != nil {
		lock = repo.NewLeaderLock(deps.Pool, repo.SchedulerLockKey)
		schedCfg.Leader = lock
	}
	sched := scheduler.New(schedCfg)

	// HTTP mux: /healthz + /metrics + API
	apiCfg := api.Config{Status: sched, Logger: logger}
	if deps.Runs != nil {
		apiCfg.Runs = deps.Runs
	}
	mux := http.NewServeMux()
	api.NewHandler(apiCfg).RegisterRoutes(mux)
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			cancel()
		}
	}()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}()

	// Несколько реплик: окна обслуживает только держатель lock
	if lock != nil {
		if err := lock.Acquire(ctx, leaderRetryInterval, logger); err != nil {
			logger.Info("stopped before acquiring leadership", "reason", err)
			return 0
		}
		defer lock.Release()
		logger.Info("acquired scheduler leadership")
	}

	err = sched.Run(ctx)
	if ctx.Err() != nil {
		logger.Info("chronos-scheduler stopped")
		return 0
	}
	if errors.Is(err, scheduler.ErrLeadershipLost) {
		// Перезапуск вернёт процесс в ожидание lock
		logger.Error("scheduler leadership lost, exiting", "error", err)
		return 1
	}
	logger.Error("scheduler loop failed", "error", err)
	return 1
}
