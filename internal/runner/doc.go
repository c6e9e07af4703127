// Package runner запускает внешний процесс scraper.
//
// Scraper — непрозрачная программа без аргументов: код выхода 0 означает
// успех, любой другой — неудачу. Весь stdout/stderr процесса пишется в
// общий журнал и сохраняется в Result.Output.
//
// Пакет различает два уровня ошибок:
//   - Подготовка окружения (Prepare) — фатальная, ErrEnvironment.
//     Scraper не запускается вообще.
//   - Выполнение (Run) — ненулевой код выхода не является Go-ошибкой,
//     это Result.ExitCode. error возвращается только если процесс не
//     стартовал (ErrStart) или был убит по таймауту (ErrTimeout);
//     в обоих случаях ExitCode = -1.
//
// Запущенный процесс не отменяется вместе с ctx: run всегда доходит до
// конца или до собственного таймаута.
package runner
