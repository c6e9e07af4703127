package launcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shaiso/Chronos/internal/domain"
	"github.com/shaiso/Chronos/internal/repo"
	"github.com/shaiso/Chronos/internal/runlog"
	"github.com/shaiso/Chronos/internal/runner"
	"github.com/shaiso/Chronos/internal/telemetry"
)

// outputTailBytes — сколько байт вывода сохраняется в истории.
const outputTailBytes = 4096

// RunStore — история запусков. Реализация: repo.RunRepo.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	Update(ctx context.Context, run *domain.Run) error
}

// EventPublisher — события о запусках. Реализация: mq.Publisher.
type EventPublisher interface {
	PublishRunStarted(ctx context.Context, run *domain.Run) error
	PublishRunFinished(ctx context.Context, run *domain.Run) error
}

// Request — параметры одного запуска.
type Request struct {
	// Trigger — "08:00" или domain.TriggerManual.
	Trigger string

	// Mode — scheduled или oneshot.
	Mode domain.RunMode

	// WindowStart — начало окна срабатывания; нулевое значение — вне окна
	// (idempotency key не формируется).
	WindowStart time.Time
}

// Launcher выполняет запуск scraper и фиксирует результат.
type Launcher struct {
	runner    runner.Runner
	sink      *runlog.Sink
	store     RunStore
	publisher EventPublisher
	metrics   *telemetry.Metrics
	retry     RetryPolicy
	sleep     func(ctx context.Context, d time.Duration) error
	now       func() time.Time
	logger    *slog.Logger
}

// Config — конфигурация Launcher.
type Config struct {
	Runner runner.Runner

	// Sink — append-only журнал (опционально).
	Sink *runlog.Sink

	// Store — история запусков (опционально).
	Store RunStore

	// Publisher — события (опционально).
	Publisher EventPublisher

	// Metrics — Prometheus метрики (опционально).
	Metrics *telemetry.Metrics

	Retry RetryPolicy

	// Sleep — ожидание между попытками (nil — таймер с учётом ctx).
	Sleep func(ctx context.Context, d time.Duration) error

	// Now — источник времени для CreatedAt/StartedAt/FinishedAt (nil → time.Now).
	Now func() time.Time

	Logger *slog.Logger
}

// New создаёт новый Launcher.
func New(cfg Config) *Launcher {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Launcher{
		runner:    cfg.Runner,
		sink:      cfg.Sink,
		store:     cfg.Store,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		retry:     cfg.Retry,
		sleep:     sleep,
		now:       now,
		logger:    logger,
	}
}

// Launch выполняет scraper синхронно и возвращает завершённый run.
//
// Ошибка возвращается только если:
//   - run для окна уже существует (ErrAlreadyLaunched), run == nil
//   - ctx отменён во время ожидания retry, run завершён как FAILED
func (l *Launcher) Launch(ctx context.Context, req Request) (*domain.Run, error) {
	run := domain.NewRun(req.Trigger, req.Mode, l.now())
	if !req.WindowStart.IsZero() {
		run.IdempotencyKey = fmt.Sprintf("%s_%d", req.Trigger, req.WindowStart.Unix())
	}

	logger := telemetry.WithTrigger(telemetry.WithRunID(l.logger, run.ID.String()), req.Trigger)

	if l.store != nil {
		if err := l.store.Create(ctx, run); err != nil {
			if errors.Is(err, repo.ErrAlreadyExists) {
				logger.Info("run already exists for window, skipping",
					"idempotency_key", run.IdempotencyKey,
				)
				l.sink.Logf("Run for trigger %s already launched in this window, skipping", req.Trigger)
				return nil, ErrAlreadyLaunched
			}
			// История не критична — запускаем scraper всё равно
			logger.Warn("failed to record run", "error", err)
		}
	}

	l.sink.BeginRun(req.Trigger)
	logger.Info("scraper run started", "mode", req.Mode)
	l.publish(ctx, logger, run, l.publisherStarted)

	launchErr := l.execute(ctx, run, logger)

	l.sink.EndRun(run)
	l.metrics.ObserveRun(run)
	l.save(ctx, logger, run)
	l.publish(ctx, logger, run, l.publisherFinished)

	if run.Succeeded() {
		logger.Info("scraper run succeeded",
			"attempts", run.Attempts,
			"duration", run.Duration(),
		)
	} else {
		logger.Warn("scraper run failed",
			"exit_code", run.ExitCode,
			"attempts", run.Attempts,
			"error", run.Error,
		)
	}

	return run, launchErr
}

// execute выполняет попытки согласно RetryPolicy.
func (l *Launcher) execute(ctx context.Context, run *domain.Run, logger *slog.Logger) error {
	maxAttempts := l.retry.Attempts()

	for {
		run.MarkRunning(l.now())
		l.save(ctx, logger, run)
		l.metrics.ObserveAttempt()

		result, err := l.runner.Run(ctx)
		if result == nil {
			result = &runner.Result{ExitCode: -1}
		}
		run.OutputTail = result.Tail(outputTailBytes)

		if err == nil && result.Succeeded() {
			run.MarkSucceeded(l.now())
			return nil
		}

		errMsg := fmt.Sprintf("exit status %d", result.ExitCode)
		if err != nil {
			errMsg = err.Error()
		}

		if run.Attempts >= maxAttempts {
			run.MarkFailed(l.now(), result.ExitCode, errMsg)
			return nil
		}

		delay := l.retry.Delay(run.Attempts)
		logger.Warn("scraper attempt failed, retrying",
			"attempt", run.Attempts,
			"max_attempts", maxAttempts,
			"exit_code", result.ExitCode,
			"delay", delay,
		)
		l.sink.Logf("Attempt %d/%d failed (%s), retrying in %s", run.Attempts, maxAttempts, errMsg, delay)

		if err := l.sleep(ctx, delay); err != nil {
			run.MarkFailed(l.now(), result.ExitCode, fmt.Sprintf("%s; retry aborted: %v", errMsg, err))
			return err
		}
	}
}

// save обновляет run в истории; ошибки только логируются.
func (l *Launcher) save(ctx context.Context, logger *slog.Logger, run *domain.Run) {
	if l.store == nil {
		return
	}
	// Завершённый run записываем даже при отменённом ctx
	if err := l.store.Update(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to update run", "status", run.Status, "error", err)
	}
}

func (l *Launcher) publisherStarted(ctx context.Context, run *domain.Run) error {
	return l.publisher.PublishRunStarted(ctx, run)
}

func (l *Launcher) publisherFinished(ctx context.Context, run *domain.Run) error {
	return l.publisher.PublishRunFinished(ctx, run)
}

// publish отправляет событие; ошибки не фатальны — run уже в журнале и истории.
func (l *Launcher) publish(ctx context.Context, logger *slog.Logger, run *domain.Run, fn func(context.Context, *domain.Run) error) {
	if l.publisher == nil {
		return
	}
	if err := fn(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to publish run event", "status", run.Status, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
