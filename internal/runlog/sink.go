// Package runlog — append-only журнал запусков scraper.
//
// Журнал — обычный текстовый файл (по умолчанию logs/cron.log), куда
// пишется нарратив scheduler и весь вывод процесса scraper. Каждый run
// обрамлён баннером, строкой старта, строкой статуса и пустой строкой:
//
//	==================================================
//	[2026-10-19 08:00:00] Starting scraper run (trigger 08:00)
//	... вывод scraper ...
//	[2026-10-19 08:03:12] Scraper run completed successfully (exit code 0, duration 3m12s)
//
// Sink не знает про файловую систему: Open работает через afero.Fs,
// а в тестах достаточно bytes.Buffer.
package runlog

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/afero"

	"github.com/shaiso/Chronos/internal/domain"
)

// TimestampFormat — формат меток времени в журнале.
const TimestampFormat = "2006-01-02 15:04:05"

const banner = "=================================================="

// Sink — потокобезопасный append-only приёмник строк журнала.
//
// Все методы безопасны для nil-получателя: nil Sink молча отбрасывает записи.
//
// Ошибки записи не прерывают работу: первая ошибка и восстановление
// сообщаются через slog, пропущенные записи считаются.
type Sink struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time

	logger  *slog.Logger
	err     error
	dropped int
}

// New создаёт Sink поверх w. now — источник времени для меток (nil → time.Now).
func New(w io.Writer, now func() time.Time) *Sink {
	if now == nil {
		now = time.Now
	}
	return &Sink{w: w, now: now, logger: slog.Default()}
}

// SetLogger задаёт логгер для сообщений об ошибках записи.
func (s *Sink) SetLogger(logger *slog.Logger) {
	if s == nil || logger == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger = logger
}

// Err возвращает текущую ошибку записи (nil, если последняя запись удалась).
func (s *Sink) Err() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Open открывает файл журнала в режиме дозаписи, создавая каталоги.
func Open(fs afero.Fs, path string, now func() time.Time) (*Sink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir %s: %w", dir, err)
		}
	}

	f, err := fs.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file %s: %w", path, err)
	}
	return New(f, now), nil
}

// Logf пишет строку с меткой времени.
func (s *Sink) Logf(format string, args ...any) {
	if s == nil {
		return
	}
	line := fmt.Sprintf("[%s] %s\n", s.now().Format(TimestampFormat), fmt.Sprintf(format, args...))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.write([]byte(line))
}

// BeginRun пишет баннер и строку старта run.
func (s *Sink) BeginRun(trigger string) {
	if s == nil {
		return
	}
	s.raw(banner + "\n")
	s.Logf("Starting scraper run (trigger %s)", trigger)
}

// EndRun пишет строку статуса и завершающую пустую строку.
func (s *Sink) EndRun(run *domain.Run) {
	if s == nil || run == nil {
		return
	}
	if run.Succeeded() {
		s.Logf("Scraper run completed successfully (exit code 0, duration %s)", run.Duration().Round(time.Second))
	} else {
		s.Logf("Scraper run failed (exit code %d, attempts %d): %s", run.ExitCode, run.Attempts, run.Error)
	}
	s.raw("\n")
}

// Writer возвращает io.Writer для сырого вывода процесса (без меток времени).
func (s *Sink) Writer() io.Writer {
	if s == nil {
		return io.Discard
	}
	return rawWriter{s}
}

// Close закрывает нижележащий writer, если он это поддерживает.
func (s *Sink) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Sink) raw(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.write([]byte(text))
}

// write пишет p и отслеживает сбои. Вызывается под s.mu.
func (s *Sink) write(p []byte) {
	_, err := s.w.Write(p)
	switch {
	case err != nil && s.err == nil:
		s.err = err
		s.dropped = 1
		s.logger.Error("run log write failed, lines are being lost", "error", err)
	case err != nil:
		s.dropped++
	case s.err != nil:
		s.logger.Warn("run log writes recovered", "lost_writes", s.dropped, "error", s.err)
		s.err = nil
		s.dropped = 0
	}
}

// rawWriter не возвращает ошибок: сбой журнала не должен обрывать
// вывод процесса scraper.
type rawWriter struct{ s *Sink }

func (w rawWriter) Write(p []byte) (int, error) {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.write(p)
	return len(p), nil
}
