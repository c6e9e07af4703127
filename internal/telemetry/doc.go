// Package telemetry обеспечивает наблюдаемость системы.
//
// Включает:
//   - logging.go — structured logging через slog
//   - metrics.go — Prometheus метрики запусков scraper
//
// Все бинарники используют единый формат логирования,
// scheduler экспортирует метрики на /metrics endpoint.
package telemetry
