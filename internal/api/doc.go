// Package api — HTTP API статуса scheduler и истории запусков.
//
// Структура:
//   - handler.go        — Handler и его зависимости
//   - routes.go         — регистрация маршрутов
//   - middleware.go     — logging, recovery
//   - response.go       — унифицированные JSON-ответы и ошибки
//   - dto.go            — ответы API
//   - status_handler.go — /healthz, /api/v1/status
//   - run_handler.go    — /api/v1/runs
//
// История запусков доступна только при настроенной БД; без неё
// /api/v1/runs отвечает 503.
package api
