package runner

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"
)

// Runner — синхронный запуск scraper.
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}

// Result — результат одного запуска процесса.
type Result struct {
	// ExitCode — код выхода; -1 если процесс не стартовал или был убит.
	ExitCode int

	// Output — объединённый stdout/stderr.
	Output []byte

	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded возвращает true для кода выхода 0.
func (r *Result) Succeeded() bool {
	return r != nil && r.ExitCode == 0
}

// Duration возвращает длительность запуска.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Tail возвращает не более n последних байт вывода как корректный UTF-8.
//
// Срез начинается с границы руны; невалидные последовательности и NUL
// вырезаются (Postgres text их не принимает).
func (r *Result) Tail(n int) string {
	if r == nil || n <= 0 {
		return ""
	}
	out := r.Output
	if len(out) > n {
		out = out[len(out)-n:]
		i := 0
		for i < len(out) && i < utf8.UTFMax && !utf8.RuneStart(out[i]) {
			i++
		}
		out = out[i:]
	}
	tail := strings.ToValidUTF8(string(out), "")
	return strings.ReplaceAll(tail, "\x00", "")
}
