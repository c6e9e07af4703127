package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shaiso/Chronos/internal/domain"
	"github.com/shaiso/Chronos/internal/launcher"
	"github.com/shaiso/Chronos/internal/runlog"
	"github.com/shaiso/Chronos/internal/telemetry"
)

// Значения по умолчанию.
const (
	DefaultWindow   = 5 * time.Minute
	DefaultCooldown = 600 * time.Second
)

// Launcher — синхронный запуск scraper. Реализация: launcher.Launcher.
type Launcher interface {
	Launch(ctx context.Context, req launcher.Request) (*domain.Run, error)
}

// LeaderCheck подтверждает лидерство перед запуском. Реализация: repo.LeaderLock.
type LeaderCheck interface {
	Check(ctx context.Context) error
}

// Scheduler — self-scheduler, запускающий scraper в окна срабатывания.
type Scheduler struct {
	triggers []domain.TriggerTime
	location *time.Location
	window   time.Duration
	cooldown time.Duration

	launcher Launcher
	leader   LeaderCheck
	clock    Clock
	sink     *runlog.Sink
	metrics  *telemetry.Metrics
	logger   *slog.Logger

	// lastFired — начало последнего окна, в котором был запуск.
	// Защищает от повторного запуска в том же окне.
	lastFired time.Time

	mu      sync.RWMutex
	lastRun *domain.Run
}

// Config — конфигурация Scheduler.
type Config struct {
	Triggers []domain.TriggerTime
	Location *time.Location // default: time.Local
	Window   time.Duration  // default: 5m
	Cooldown time.Duration  // default: 600s

	Launcher Launcher
	Clock    Clock // default: RealClock

	// Leader — проверка leader lock перед каждым запуском (опционально).
	Leader LeaderCheck

	// Sink — журнал для нарратива (опционально).
	Sink *runlog.Sink

	Metrics *telemetry.Metrics
	Logger  *slog.Logger
}

// New создаёт новый Scheduler. Triggers должны быть провалидированы (config.Validate).
func New(cfg Config) *Scheduler {
	triggers := append([]domain.TriggerTime(nil), cfg.Triggers...)
	domain.SortTriggers(triggers)

	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}

	window := cfg.Window
	if window <= 0 {
		window = DefaultWindow
	}

	cooldown := cfg.Cooldown
	if cooldown <= 0 {
		cooldown = DefaultCooldown
	}

	clock := cfg.Clock
	if clock == nil {
		clock = RealClock{}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		triggers: triggers,
		location: loc,
		window:   window,
		cooldown: cooldown,
		launcher: cfg.Launcher,
		leader:   cfg.Leader,
		clock:    clock,
		sink:     cfg.Sink,
		metrics:  cfg.Metrics,
		logger:   logger,
	}
}

// Run выполняет цикл планировщика до отмены ctx.
//
// Нормального выхода нет: возвращается ctx.Err() при остановке
// или ошибка Launcher, не связанная с неудачей scraper.
func (s *Scheduler) Run(ctx context.Context) error {
	s.logger.Info("scheduler started",
		"triggers", domain.FormatTriggers(s.triggers),
		"timezone", s.location.String(),
		"window", s.window,
		"cooldown", s.cooldown,
		"upcoming", Upcoming(s.clock.Now().In(s.location), s.triggers, len(s.triggers)),
	)
	s.sink.Logf("Scheduler started: triggers %s (%s), window %s, cooldown %s",
		domain.FormatTriggers(s.triggers), s.location, s.window, s.cooldown)

	for {
		wait, err := s.Step(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}

		if err := s.clock.Sleep(ctx, wait); err != nil {
			s.logger.Info("scheduler stopped", "reason", err)
			return err
		}
	}
}

// Step выполняет одну итерацию и возвращает длительность сна до следующей.
//
//   - внутри окна, запуска ещё не было — запускает scraper, возвращает cooldown
//   - внутри окна, запуск уже был — возвращает остаток окна
//   - вне окна — возвращает время до ближайшего trigger
func (s *Scheduler) Step(ctx context.Context) (time.Duration, error) {
	if len(s.triggers) == 0 {
		return 0, ErrNoTriggers
	}
	now := s.clock.Now().In(s.location)

	trigger, start, due := Due(now, s.triggers, s.window)
	if due {
		if start.Equal(s.lastFired) {
			rest := start.Add(s.window).Sub(now)
			s.logger.Debug("already fired in this window",
				"trigger", trigger.String(),
				"window_end", start.Add(s.window),
			)
			return rest, nil
		}
		return s.fire(ctx, trigger, start, now)
	}

	next, nextTrigger := NextTrigger(now, s.triggers)
	wait := next.Sub(now)

	s.metrics.SetNextTrigger(next)
	s.logger.Info("waiting for next trigger",
		"now_minute", MinutesSinceMidnight(now),
		"next_trigger", nextTrigger.String(),
		"next_at", next,
		"wait", wait,
	)
	s.sink.Logf("Next run at %s %s (in %d minutes)",
		next.Format("2006-01-02"), nextTrigger, int(wait.Round(time.Minute)/time.Minute))

	return wait, nil
}

// fire запускает scraper для окна start.
func (s *Scheduler) fire(ctx context.Context, trigger domain.TriggerTime, start, now time.Time) (time.Duration, error) {
	if s.leader != nil {
		if err := s.leader.Check(ctx); err != nil {
			s.logger.Error("leadership check failed, not firing", "trigger", trigger.String(), "error", err)
			s.sink.Logf("Leadership lost, trigger %s left to another instance", trigger)
			return 0, fmt.Errorf("%w: %v", ErrLeadershipLost, err)
		}
	}

	// Фиксируем окно до запуска: даже неудачный запуск не повторяется
	s.lastFired = start

	s.logger.Info("trigger window reached",
		"trigger", trigger.String(),
		"window_start", start,
		"late_by", now.Sub(start),
	)

	run, err := s.launcher.Launch(ctx, launcher.Request{
		Trigger:     trigger.String(),
		Mode:        domain.RunModeScheduled,
		WindowStart: start,
	})
	if run != nil {
		s.setLastRun(run)
	}

	switch {
	case errors.Is(err, launcher.ErrAlreadyLaunched):
		// Другой экземпляр или предыдущий процесс уже отработал окно
	case err != nil:
		return 0, err
	}

	s.sink.Logf("Cooldown %s before next check", s.cooldown)
	return s.cooldown, nil
}

func (s *Scheduler) setLastRun(run *domain.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	s.lastRun = &cp
}

// Status — снимок состояния scheduler для API.
type Status struct {
	Triggers      []string      `json:"triggers"`
	Timezone      string        `json:"timezone"`
	Window        time.Duration `json:"window"`
	Cooldown      time.Duration `json:"cooldown"`
	Now           time.Time     `json:"now"`
	InWindow      bool          `json:"in_window"`
	NextTrigger   string        `json:"next_trigger"`
	NextTriggerAt time.Time     `json:"next_trigger_at"`
	LastRun       *domain.Run   `json:"last_run,omitempty"`
}

// Status возвращает текущее состояние. Безопасен для вызова из других горутин.
func (s *Scheduler) Status() Status {
	now := s.clock.Now().In(s.location)
	next, nextTrigger := NextTrigger(now, s.triggers)
	_, _, inWindow := Due(now, s.triggers, s.window)

	triggers := make([]string, len(s.triggers))
	for i, t := range s.triggers {
		triggers[i] = t.String()
	}

	s.mu.RLock()
	var last *domain.Run
	if s.lastRun != nil {
		cp := *s.lastRun
		last = &cp
	}
	s.mu.RUnlock()

	return Status{
		Triggers:      triggers,
		Timezone:      s.location.String(),
		Window:        s.window,
		Cooldown:      s.cooldown,
		Now:           now,
		InWindow:      inWindow,
		NextTrigger:   nextTrigger.String(),
		NextTriggerAt: next,
		LastRun:       last,
	}
}
