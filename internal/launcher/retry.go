package launcher

import "time"

const defaultRetryDelay = 30 * time.Second

// RetryPolicy — повторные попытки в рамках одного окна.
//
// MaxAttempts <= 1 — без повторов. Delays — прогрессивные задержки:
// перед попыткой N+1 ждём Delays[N-1]; если задержек меньше, чем
// попыток, повторяется последняя.
type RetryPolicy struct {
	MaxAttempts int
	Delays      []time.Duration
}

// Attempts возвращает эффективное количество попыток (минимум 1).
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}

// Delay возвращает задержку после неудачной попытки attempt (с 1).
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if len(p.Delays) == 0 {
		return defaultRetryDelay
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(p.Delays) {
		idx = len(p.Delays) - 1
	}
	return p.Delays[idx]
}
