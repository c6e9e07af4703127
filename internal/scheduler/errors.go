package scheduler

import "errors"

// Ошибки scheduler.
var (
	// ErrNoTriggers — расписание пустое, ждать нечего.
	ErrNoTriggers = errors.New("no trigger times configured")

	// ErrLeadershipLost — экземпляр больше не держит leader lock.
	ErrLeadershipLost = errors.New("scheduler leadership lost")
)
