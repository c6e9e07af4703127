// Package app собирает зависимости процессов Chronos из конфигурации.
//
// Общая сборка для chronos-scheduler и chronos-launcher: журнал запусков,
// подготовленный runner, опциональные Postgres и RabbitMQ, метрики и
// launcher поверх всего этого.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/afero"

	"github.com/shaiso/Chronos/internal/config"
	"github.com/shaiso/Chronos/internal/launcher"
	"github.com/shaiso/Chronos/internal/mq"
	"github.com/shaiso/Chronos/internal/repo"
	"github.com/shaiso/Chronos/internal/runlog"
	"github.com/shaiso/Chronos/internal/runner"
	"github.com/shaiso/Chronos/internal/telemetry"
)

// Options — точки подмены для тестов.
type Options struct {
	Fs         afero.Fs              // default: OS
	Env        []string              // default: os.Environ()
	Registerer prometheus.Registerer // default: prometheus.DefaultRegisterer
	Now        func() time.Time      // default: time.Now
}

// Deps — собранные зависимости. Pool, Runs, MQ и Publisher равны nil,
// если соответствующий URL не задан или сервис недоступен.
type Deps struct {
	Config  *config.Config
	Logger  *slog.Logger
	Sink    *runlog.Sink
	Runner  *runner.ExecRunner
	Metrics *telemetry.Metrics

	Pool      *pgxpool.Pool
	Runs      *repo.RunRepo
	MQ        *mq.Connection
	Publisher *mq.Publisher

	Launcher *launcher.Launcher
}

// Build открывает журнал, готовит окружение scraper и подключает
// опциональные сервисы.
//
// Ошибки журнала и окружения оборачивают runner.ErrEnvironment и фатальны.
// Недоступность Postgres при заданном DB_URL тоже фатальна: без неё
// нет leader lock. RabbitMQ опционален: при ошибке работаем без событий.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Deps, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}

	d := &Deps{Config: cfg, Logger: logger}

	sink, err := runlog.Open(opts.Fs, cfg.LogFile, opts.Now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", runner.ErrEnvironment, err)
	}
	sink.SetLogger(logger)
	d.Sink = sink

	d.Runner = runner.New(runner.Config{
		Command: cfg.CommandArgs(),
		Dir:     cfg.Scraper.Dir,
		VenvDir: cfg.Scraper.Venv,
		Timeout: cfg.Scraper.Timeout,
		Output:  sink.Writer(),
		Env:     opts.Env,
		Fs:      opts.Fs,
	})
	if err := d.Runner.Prepare(); err != nil {
		sink.Logf("Environment preparation failed: %v", err)
		d.Close()
		return nil, err
	}
	logger.Info("scraper environment ready",
		"executable", d.Runner.Path(),
		"dir", cfg.Scraper.Dir,
		"venv", cfg.Scraper.Venv,
	)

	d.Metrics = telemetry.NewMetrics(opts.Registerer)

	if cfg.DBURL != "" {
		if err := d.connectDB(ctx); err != nil {
			d.Close()
			return nil, err
		}
	}

	if cfg.RabbitMQURL != "" {
		d.connectMQ(ctx)
	}

	lcfg := launcher.Config{
		Runner:  d.Runner,
		Sink:    sink,
		Metrics: d.Metrics,
		Retry:   cfg.RetryPolicy(),
		Now:     opts.Now,
		Logger:  logger,
	}
	// Интерфейсные поля заполняем только настоящими значениями
	if d.Runs != nil {
		lcfg.Store = d.Runs
	}
	if d.Publisher != nil {
		lcfg.Publisher = d.Publisher
	}
	d.Launcher = launcher.New(lcfg)

	return d, nil
}

func (d *Deps) connectDB(ctx context.Context) error {
	pool, err := repo.NewPool(ctx, d.Config.DBURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	if err := repo.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return err
	}

	d.Pool = pool
	d.Runs = repo.NewRunRepo(pool)
	d.Logger.Info("database connected, run history enabled")
	return nil
}

func (d *Deps) connectMQ(ctx context.Context) {
	conn, err := mq.Dial(d.Config.RabbitMQURL, d.Logger)
	if err != nil {
		d.Logger.Warn("RabbitMQ not available, run events disabled", "error", err)
		return
	}
	if err := mq.SetupTopology(ctx, conn); err != nil {
		d.Logger.Warn("failed to setup topology, run events disabled", "error", err)
		_ = conn.Close()
		return
	}

	d.MQ = conn
	d.Publisher = mq.NewPublisher(conn, d.Logger)
}

// Close освобождает ресурсы в обратном порядке.
func (d *Deps) Close() {
	if d.MQ != nil {
		_ = d.MQ.Close()
	}
	if d.Pool != nil {
		d.Pool.Close()
	}
	if d.Sink != nil {
		_ = d.Sink.Close()
	}
}
