// Package cli реализует инструмент командной строки Chronos.
//
// # Обзор
//
// CLI работает с HTTP API scheduler (status, runs), читает события
// запусков из RabbitMQ (watch) и локально рассчитывает расписание
// (schedule next).
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для API. Разбирает DataResponse, ListResponse и
// ErrorResponse; ошибки API возвращаются как *APIError.
//
//	client := cli.NewClient("http://localhost:8081")
//	runs, err := client.ListRuns(cli.ListRunsOpts{Status: "FAILED"})
//
// ## Output
//
// Таблицы (text/tabwriter) по умолчанию, JSON с флагом --json.
// Данные пишутся в stdout, сообщения в stderr:
// chronos runs list --json | jq .
//
// ## Commands
//
//   - status
//   - runs: list, show
//   - schedule: next
//   - watch
//
// Фабрики команд принимают clientFn и outputFn — замыкания, создающие
// Client и Output после разбора PersistentFlags.
package cli
