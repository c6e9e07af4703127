package domain

import (
	"time"

	"github.com/google/uuid"
)

// Run — один запуск внешнего процесса scraper.
//
// Run создаётся когда:
// - Scheduler попадает в окно срабатывания
// - Launcher выполняет одиночный запуск
//
// Retry внутри одного окна не создаёт новый Run, а увеличивает Attempts.
type Run struct {
	// ID — уникальный идентификатор run.
	ID uuid.UUID `json:"id"`

	// Trigger — время срабатывания ("08:00") или "manual".
	Trigger string `json:"trigger"`

	// Mode — scheduled или oneshot.
	Mode RunMode `json:"mode"`

	// Status — текущий статус выполнения.
	Status RunStatus `json:"status"`

	// ExitCode — код выхода последней попытки.
	// -1, если процесс не удалось запустить или он был убит по таймауту.
	ExitCode int `json:"exit_code"`

	// Attempts — количество выполненных попыток.
	Attempts int `json:"attempts"`

	// OutputTail — хвост stdout/stderr последней попытки.
	OutputTail string `json:"output_tail,omitempty"`

	// Error — описание ошибки, если run завершился с FAILED.
	Error string `json:"error,omitempty"`

	// IdempotencyKey — "{trigger}_{window_start_unix}" для scheduled runs.
	// Гарантирует один run на окно даже при нескольких репликах.
	IdempotencyKey string `json:"idempotency_key,omitempty"`

	// StartedAt — время запуска первой попытки.
	StartedAt *time.Time `json:"started_at,omitempty"`

	// FinishedAt — время завершения последней попытки.
	FinishedAt *time.Time `json:"finished_at,omitempty"`

	// CreatedAt — время создания run.
	CreatedAt time.Time `json:"created_at"`
}

// NewRun создаёт run в статусе PENDING.
func NewRun(trigger string, mode RunMode, now time.Time) *Run {
	return &Run{
		ID:        uuid.New(),
		Trigger:   trigger,
		Mode:      mode,
		Status:    RunStatusPending,
		CreatedAt: now,
	}
}

// Duration возвращает продолжительность выполнения.
// Возвращает 0, если run ещё не завершён.
func (r *Run) Duration() time.Duration {
	if r.StartedAt == nil || r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(*r.StartedAt)
}

// IsFinished возвращает true, если run завершён (в любом статусе).
func (r *Run) IsFinished() bool {
	return r.Status.IsTerminal()
}

// Succeeded возвращает true для SUCCEEDED.
func (r *Run) Succeeded() bool {
	return r.Status == RunStatusSucceeded
}

// MarkRunning переводит run в статус RUNNING и увеличивает счётчик попыток.
// StartedAt фиксируется только для первой попытки.
func (r *Run) MarkRunning(now time.Time) {
	r.Status = RunStatusRunning
	r.Attempts++
	if r.StartedAt == nil {
		r.StartedAt = &now
	}
}

// MarkSucceeded переводит run в статус SUCCEEDED.
func (r *Run) MarkSucceeded(now time.Time) {
	r.Status = RunStatusSucceeded
	r.FinishedAt = &now
	r.ExitCode = 0
	r.Error = ""
}

// MarkFailed переводит run в статус FAILED с кодом выхода и ошибкой.
func (r *Run) MarkFailed(now time.Time, exitCode int, err string) {
	r.Status = RunStatusFailed
	r.FinishedAt = &now
	r.ExitCode = exitCode
	r.Error = err
}
