// Package mq публикует события о запусках scraper в RabbitMQ.
//
// Структура:
//   - connection.go — соединение с автоматическим переподключением
//   - topology.go   — exchange, очереди и bindings
//   - publisher.go  — события run.started / run.finished
//   - consumer.go   — чтение событий (chronos watch)
//
// Топология:
//
//	chronos.runs (direct)
//	├── runs.started  [routing: started]
//	└── runs.finished [routing: finished]
//
// Очереди runs.* рассчитаны на внешних потребителей (алерты, дашборды).
// chronos watch не забирает из них сообщения, а объявляет собственную
// временную очередь (DeclareWatchQueue).
package mq
