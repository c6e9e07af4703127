package scheduler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/shaiso/Chronos/internal/domain"
	"github.com/shaiso/Chronos/internal/launcher"
	"github.com/shaiso/Chronos/internal/runlog"
)

// --- Fakes ---

// fakeClock — ручное время: Sleep сдвигает now и запоминает длительность.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
	// limit — после стольких Sleep возвращается context.Canceled.
	limit int
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	if c.limit > 0 && len(c.sleeps) >= c.limit {
		return context.Canceled
	}
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	return nil
}

// fakeLauncher запоминает запросы и «выполняет» scraper за duration.
type fakeLauncher struct {
	clock    *fakeClock
	duration time.Duration
	exitCode int
	err      error
	requests []launcher.Request
}

func (l *fakeLauncher) Launch(_ context.Context, req launcher.Request) (*domain.Run, error) {
	l.requests = append(l.requests, req)
	if l.err != nil {
		return nil, l.err
	}

	run := domain.NewRun(req.Trigger, req.Mode, l.clock.now)
	run.MarkRunning(l.clock.now)
	l.clock.now = l.clock.now.Add(l.duration)
	if l.exitCode == 0 {
		run.MarkSucceeded(l.clock.now)
	} else {
		run.MarkFailed(l.clock.now, l.exitCode, "exit status")
	}
	return run, nil
}

// fakeLeader — проверка лидерства с заданным результатом.
type fakeLeader struct {
	err    error
	checks int
}

func (f *fakeLeader) Check(_ context.Context) error {
	f.checks++
	return f.err
}

func newTestScheduler(now time.Time) (*Scheduler, *fakeClock, *fakeLauncher, *bytes.Buffer) {
	clock := &fakeClock{now: now}
	l := &fakeLauncher{clock: clock, duration: time.Minute}
	var buf bytes.Buffer

	s := New(Config{
		Triggers: defaultTriggers,
		Location: time.UTC,
		Launcher: l,
		Clock:    clock,
		Sink:     runlog.New(&buf, clock.Now),
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	return s, clock, l, &buf
}

// --- Step Tests ---

func TestStep_OutsideWindow(t *testing.T) {
	tests := []struct {
		name string
		now  time.Time
		wait time.Duration
	}{
		{"07:30", at(7, 30, 0), 30 * time.Minute},
		{"23:00", at(23, 0, 0), 540 * time.Minute},
		{"minute 5 is outside", at(22, 5, 0), 595 * time.Minute},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _, l, _ := newTestScheduler(tt.now)

			wait, err := s.Step(context.Background())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if wait != tt.wait {
				t.Errorf("expected wait %v, got %v", tt.wait, wait)
			}
			if len(l.requests) != 0 {
				t.Errorf("scraper must not run outside a window, got %d runs", len(l.requests))
			}
		})
	}
}

func TestStep_MinuteFourFires(t *testing.T) {
	s, _, l, _ := newTestScheduler(at(8, 4, 0))

	wait, err := s.Step(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(l.requests) != 1 {
		t.Fatalf("expected 1 run, got %d", len(l.requests))
	}
	if wait != DefaultCooldown {
		t.Errorf("expected cooldown %v, got %v", DefaultCooldown, wait)
	}
}

func TestStep_InsideWindowFiresOnceThenCooldown(t *testing.T) {
	s, _, l, buf := newTestScheduler(at(22, 3, 0))

	wait, err := s.Step(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(l.requests) != 1 {
		t.Fatalf("expected exactly 1 run, got %d", len(l.requests))
	}
	req := l.requests[0]
	if req.Trigger != "22:00" {
		t.Errorf("expected trigger 22:00, got %s", req.Trigger)
	}
	if req.Mode != domain.RunModeScheduled {
		t.Errorf("expected scheduled mode, got %s", req.Mode)
	}
	if !req.WindowStart.Equal(at(22, 0, 0)) {
		t.Errorf("expected window start 22:00, got %v", req.WindowStart)
	}
	if wait < 600*time.Second {
		t.Errorf("expected sleep of at least 600s, got %v", wait)
	}
	if !strings.Contains(buf.String(), "Cooldown 10m0s before next check") {
		t.Errorf("cooldown not narrated in log: %q", buf.String())
	}
}

func TestStep_TwoChecksInOneWindow(t *testing.T) {
	s, clock, l, _ := newTestScheduler(at(8, 1, 0))

	if _, err := s.Step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	clock.now = at(8, 3, 0)
	wait, err := s.Step(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(l.requests) != 1 {
		t.Errorf("expected 1 run for one window, got %d", len(l.requests))
	}
	if wait != 2*time.Minute {
		t.Errorf("expected to sleep out the rest of the window (2m), got %v", wait)
	}
}

func TestStep_NextWindowFiresAgain(t *testing.T) {
	s, clock, l, _ := newTestScheduler(at(8, 0, 0))

	if _, err := s.Step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	clock.now = at(22, 0, 30)
	if _, err := s.Step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(l.requests) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(l.requests))
	}
	if l.requests[1].Trigger != "22:00" {
		t.Errorf("expected second run for 22:00, got %s", l.requests[1].Trigger)
	}
}

func TestStep_LeadershipLostDoesNotFire(t *testing.T) {
	s, _, l, buf := newTestScheduler(at(8, 1, 0))
	leader := &fakeLeader{err: errors.New("conn closed")}
	s.leader = leader

	_, err := s.Step(context.Background())
	if !errors.Is(err, ErrLeadershipLost) {
		t.Fatalf("expected ErrLeadershipLost, got %v", err)
	}
	if len(l.requests) != 0 {
		t.Errorf("should not launch without leadership, got %d runs", len(l.requests))
	}
	if !strings.Contains(buf.String(), "Leadership lost") {
		t.Errorf("leadership loss not narrated: %q", buf.String())
	}

	// Окно не помечено как отработанное
	leader.err = nil
	if _, err := s.Step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(l.requests) != 1 || leader.checks != 2 {
		t.Errorf("expected 1 run after 2 checks, got %d runs, %d checks", len(l.requests), leader.checks)
	}
}

func TestStep_LeaderNotCheckedOutsideWindow(t *testing.T) {
	s, _, _, _ := newTestScheduler(at(7, 30, 0))
	leader := &fakeLeader{err: errors.New("conn closed")}
	s.leader = leader

	if _, err := s.Step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if leader.checks != 0 {
		t.Errorf("leader should only be checked before firing, got %d checks", leader.checks)
	}
}

func TestRun_NoTriggers(t *testing.T) {
	clock := &fakeClock{now: at(7, 30, 0), limit: 3}
	s := New(Config{
		Clock:  clock,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	if err := s.Run(context.Background()); !errors.Is(err, ErrNoTriggers) {
		t.Fatalf("expected ErrNoTriggers, got %v", err)
	}
	if len(clock.sleeps) != 0 {
		t.Errorf("empty schedule should not loop, got %d sleeps", len(clock.sleeps))
	}
}

func TestStep_FailedRunIsNotAnError(t *testing.T) {
	s, _, l, _ := newTestScheduler(at(8, 2, 0))
	l.exitCode = 1

	wait, err := s.Step(context.Background())
	if err != nil {
		t.Fatalf("scraper failure must not stop the scheduler: %v", err)
	}
	if wait != DefaultCooldown {
		t.Errorf("expected cooldown after failure, got %v", wait)
	}

	st := s.Status()
	if st.LastRun == nil || st.LastRun.Status != domain.RunStatusFailed {
		t.Errorf("expected last run FAILED, got %+v", st.LastRun)
	}
}

func TestStep_AlreadyLaunched(t *testing.T) {
	s, _, l, _ := newTestScheduler(at(8, 2, 0))
	l.err = launcher.ErrAlreadyLaunched

	wait, err := s.Step(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wait != DefaultCooldown {
		t.Errorf("expected cooldown, got %v", wait)
	}
}

func TestStep_LauncherError(t *testing.T) {
	s, _, l, _ := newTestScheduler(at(8, 2, 0))
	l.err = context.Canceled

	if _, err := s.Step(context.Background()); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestStep_NarratesNextRun(t *testing.T) {
	s, _, _, buf := newTestScheduler(at(7, 30, 0))

	if _, err := s.Step(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "[2026-10-19 07:30:00] Next run at 2026-10-19 08:00 (in 30 minutes)"
	if !strings.Contains(buf.String(), want) {
		t.Errorf("expected %q in log, got %q", want, buf.String())
	}
}

// --- Run Tests ---

func TestRun_Loop(t *testing.T) {
	s, clock, l, _ := newTestScheduler(at(7, 30, 0))
	clock.limit = 4

	err := s.Run(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	// 07:30 → 08:00 запуск (1m) → cooldown → 22:00 запуск → cooldown
	want := []time.Duration{
		30 * time.Minute,
		DefaultCooldown,
		13*time.Hour + 49*time.Minute,
		DefaultCooldown,
	}
	if len(clock.sleeps) != len(want) {
		t.Fatalf("expected sleeps %v, got %v", want, clock.sleeps)
	}
	for i := range want {
		if clock.sleeps[i] != want[i] {
			t.Errorf("sleep %d: expected %v, got %v", i, want[i], clock.sleeps[i])
		}
	}

	if len(l.requests) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(l.requests))
	}
	if l.requests[0].Trigger != "08:00" || l.requests[1].Trigger != "22:00" {
		t.Errorf("unexpected triggers: %s, %s", l.requests[0].Trigger, l.requests[1].Trigger)
	}
}

func TestRun_SkipsMissedWindow(t *testing.T) {
	// Процесс проснулся в 08:30: окно 08:00 пропущено, догоняющего запуска нет
	s, clock, l, _ := newTestScheduler(at(8, 30, 0))
	clock.limit = 1

	_ = s.Run(context.Background())

	if len(l.requests) != 0 {
		t.Errorf("missed window must not be backfilled, got %d runs", len(l.requests))
	}
	if len(clock.sleeps) != 1 || clock.sleeps[0] != 13*time.Hour+30*time.Minute {
		t.Errorf("expected a single sleep until 22:00, got %v", clock.sleeps)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	s, _, _, _ := newTestScheduler(at(7, 30, 0))
	s.clock = RealClock{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// --- Status Tests ---

func TestStatus(t *testing.T) {
	s, _, _, _ := newTestScheduler(at(7, 30, 0))

	st := s.Status()
	if got := strings.Join(st.Triggers, ","); got != "08:00,22:00" {
		t.Errorf("expected triggers 08:00,22:00, got %s", got)
	}
	if st.Timezone != "UTC" {
		t.Errorf("expected UTC, got %s", st.Timezone)
	}
	if st.InWindow {
		t.Error("07:30 is not inside a window")
	}
	if st.NextTrigger != "08:00" || !st.NextTriggerAt.Equal(at(8, 0, 0)) {
		t.Errorf("unexpected next trigger %s at %v", st.NextTrigger, st.NextTriggerAt)
	}
	if st.LastRun != nil {
		t.Error("expected no last run")
	}
}

func TestNew_Defaults(t *testing.T) {
	s := New(Config{Triggers: []domain.TriggerTime{{Hour: 22}, {Hour: 8}}})

	if s.window != DefaultWindow || s.cooldown != DefaultCooldown {
		t.Errorf("unexpected defaults: window %v, cooldown %v", s.window, s.cooldown)
	}
	if s.triggers[0].Hour != 8 {
		t.Error("triggers should be sorted")
	}
	if s.location != time.Local {
		t.Error("expected time.Local by default")
	}
}
