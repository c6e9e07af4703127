package scheduler

import (
	"context"
	"time"
)

// Clock абстрагирует время для тестов.
type Clock interface {
	Now() time.Time
	// Sleep ждёт d или отмены ctx.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock использует системное время.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
