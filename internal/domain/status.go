package domain

// RunStatus — статус запуска scraper.
//
// Жизненный цикл:
//
//	PENDING → RUNNING → SUCCEEDED
//	                  ↘ FAILED
type RunStatus string

const (
	// RunStatusPending — run создан, процесс ещё не запущен.
	RunStatusPending RunStatus = "PENDING"

	// RunStatusRunning — процесс scraper выполняется.
	RunStatusRunning RunStatus = "RUNNING"

	// RunStatusSucceeded — процесс завершился с кодом 0.
	RunStatusSucceeded RunStatus = "SUCCEEDED"

	// RunStatusFailed — ненулевой код выхода или процесс не удалось запустить.
	RunStatusFailed RunStatus = "FAILED"
)

// IsTerminal возвращает true, если статус финальный (run завершён).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSucceeded, RunStatusFailed:
		return true
	default:
		return false
	}
}

// ParseRunStatus парсит строку в RunStatus. Пустая строка и неизвестные значения → "".
func ParseRunStatus(s string) RunStatus {
	switch RunStatus(s) {
	case RunStatusPending, RunStatusRunning, RunStatusSucceeded, RunStatusFailed:
		return RunStatus(s)
	default:
		return ""
	}
}

// RunMode — каким путём был инициирован run.
type RunMode string

const (
	// RunModeScheduled — запуск из self-scheduler по окну срабатывания.
	RunModeScheduled RunMode = "scheduled"

	// RunModeOneShot — одиночный запуск через launcher (cron или вручную).
	RunModeOneShot RunMode = "oneshot"
)

// TriggerManual — значение Run.Trigger для запусков вне расписания.
const TriggerManual = "manual"
