package main

import (
	"testing"
	"time"

	"github.com/shaiso/Chronos/internal/domain"
)

func TestExitCode(t *testing.T) {
	finished := func(code int) *domain.Run {
		now := time.Now()
		run := domain.NewRun(domain.TriggerManual, domain.RunModeOneShot, now)
		run.MarkRunning(now)
		if code == 0 {
			run.MarkSucceeded(now)
		} else {
			run.MarkFailed(now, code, "failed")
		}
		return run
	}

	tests := []struct {
		name     string
		run      *domain.Run
		expected int
	}{
		{"no run", nil, exitFailure},
		{"success", finished(0), 0},
		{"scraper exit code propagated", finished(3), 3},
		{"not started", finished(-1), exitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.run); got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}
