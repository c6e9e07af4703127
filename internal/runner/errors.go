package runner

import "errors"

// Ошибки runner.
var (
	// ErrEnvironment — окружение не готово (нет venv, команды, рабочего каталога).
	ErrEnvironment = errors.New("environment preparation failed")

	// ErrStart — процесс не удалось запустить.
	ErrStart = errors.New("scraper failed to start")

	// ErrTimeout — процесс превысил таймаут и был убит.
	ErrTimeout = errors.New("scraper timed out")
)
