// Package launcher выполняет один запуск scraper от начала до конца.
//
// Launcher используется обоими путями:
//   - self-scheduler — при попадании в окно срабатывания
//   - одиночный запуск (chronos-launcher) — один раз при старте
//
// # Обработка run
//
//  1. Создание domain.Run (uuid, idempotency key окна)
//  2. Сохранение в историю (если RunStore настроен); дубликат ключа →
//     ErrAlreadyLaunched, scraper не запускается
//  3. Баннер и строка старта в журнал
//  4. Выполнение через Runner с RetryPolicy
//  5. Строка статуса в журнал, метрики, обновление истории
//  6. Публикация run.finished (если Publisher настроен)
//
// Неудача scraper не является ошибкой Launch: она отражается в
// Run.Status. Ошибки истории и публикации только логируются.
package launcher
