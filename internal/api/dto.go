package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Chronos/internal/domain"
	"github.com/shaiso/Chronos/internal/scheduler"
)

// RunResponse — run в ответах API.
type RunResponse struct {
	ID             uuid.UUID  `json:"id"`
	Trigger        string     `json:"trigger"`
	Mode           string     `json:"mode"`
	Status         string     `json:"status"`
	ExitCode       int        `json:"exit_code"`
	Attempts       int        `json:"attempts"`
	Error          string     `json:"error,omitempty"`
	OutputTail     string     `json:"output_tail,omitempty"`
	IdempotencyKey string     `json:"idempotency_key,omitempty"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	FinishedAt     *time.Time `json:"finished_at,omitempty"`
	DurationMs     int64      `json:"duration_ms"`
	CreatedAt      time.Time  `json:"created_at"`
}

// RunFromDomain конвертирует domain.Run в RunResponse.
func RunFromDomain(r domain.Run) RunResponse {
	return RunResponse{
		ID:             r.ID,
		Trigger:        r.Trigger,
		Mode:           string(r.Mode),
		Status:         string(r.Status),
		ExitCode:       r.ExitCode,
		Attempts:       r.Attempts,
		Error:          r.Error,
		OutputTail:     r.OutputTail,
		IdempotencyKey: r.IdempotencyKey,
		StartedAt:      r.StartedAt,
		FinishedAt:     r.FinishedAt,
		DurationMs:     r.Duration().Milliseconds(),
		CreatedAt:      r.CreatedAt,
	}
}

// StatusResponse — состояние scheduler.
type StatusResponse struct {
	Triggers        []string     `json:"triggers"`
	Timezone        string       `json:"timezone"`
	WindowSeconds   int64        `json:"window_seconds"`
	CooldownSeconds int64        `json:"cooldown_seconds"`
	Now             time.Time    `json:"now"`
	InWindow        bool         `json:"in_window"`
	NextTrigger     string       `json:"next_trigger"`
	NextTriggerAt   time.Time    `json:"next_trigger_at"`
	NextInSeconds   int64        `json:"next_in_seconds"`
	LastRun         *RunResponse `json:"last_run,omitempty"`
}

// StatusFromScheduler конвертирует scheduler.Status в StatusResponse.
func StatusFromScheduler(s scheduler.Status) StatusResponse {
	resp := StatusResponse{
		Triggers:        s.Triggers,
		Timezone:        s.Timezone,
		WindowSeconds:   int64(s.Window.Seconds()),
		CooldownSeconds: int64(s.Cooldown.Seconds()),
		Now:             s.Now,
		InWindow:        s.InWindow,
		NextTrigger:     s.NextTrigger,
		NextTriggerAt:   s.NextTriggerAt,
		NextInSeconds:   int64(s.NextTriggerAt.Sub(s.Now).Seconds()),
	}
	if s.LastRun != nil {
		last := RunFromDomain(*s.LastRun)
		resp.LastRun = &last
	}
	return resp
}
