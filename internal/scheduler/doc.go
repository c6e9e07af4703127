// Package scheduler реализует self-scheduler: цикл, заменяющий системный
// cron внутри долгоживущего контейнера.
//
// Каждую итерацию Step:
//  1. Берёт текущее время в часовом поясе расписания
//  2. Если время внутри окна срабатывания (start <= now < start+window) —
//     синхронно запускает scraper через Launcher и возвращает cooldown
//  3. Иначе возвращает длительность до ближайшего trigger (с переходом
//     через полночь)
//
// Run повторяет Step и спит возвращённую длительность, пока ctx не отменён.
//
// Структура:
//   - scheduler.go — Scheduler (Step, Run, Status)
//   - window.go    — вычисление окон и ожидания
//   - cron.go      — разбор cron-выражений в набор triggers
//   - clock.go     — абстракция времени
//   - errors.go    — ошибки пакета
//
// Пропущенные окна (контейнер был остановлен) не догоняются.
//
// При нескольких репликах Config.Leader подтверждает leader lock перед
// каждым запуском; потеря лидерства завершает Run с ErrLeadershipLost.
//
// Использование:
//
//	sched := scheduler.New(scheduler.Config{
//	    Triggers: cfg.Triggers,
//	    Location: loc,
//	    Window:   5 * time.Minute,
//	    Cooldown: 600 * time.Second,
//	    Launcher: l,
//	    Logger:   logger,
//	})
//
//	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
//	    logger.Error("scheduler stopped", "error", err)
//	}
package scheduler
