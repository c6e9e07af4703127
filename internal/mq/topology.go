package mq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Exchange — имя обменника.
type Exchange string

// Queue — имя очереди.
type Queue string

// RoutingKey — ключ маршрутизации.
type RoutingKey string

const (
	ExchangeRuns Exchange = "chronos.runs"

	QueueRunsStarted  Queue = "runs.started"
	QueueRunsFinished Queue = "runs.finished"

	RoutingKeyStarted  RoutingKey = "started"
	RoutingKeyFinished RoutingKey = "finished"
)

// Ограничения durable очередей: без потребителя они не растут бесконечно.
const (
	queueMessageTTL = 7 * 24 * time.Hour
	queueMaxLength  = 10000
)

// SetupTopology объявляет exchange, очереди и bindings. Идемпотентна.
func SetupTopology(ctx context.Context, conn *Connection) error {
	return conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.ExchangeDeclare(
			string(ExchangeRuns), // name
			"direct",             // type
			true,                 // durable
			false,                // auto-deleted
			false,                // internal
			false,                // no-wait
			nil,                  // arguments
		)
		if err != nil {
			return fmt.Errorf("declare exchange %s: %w", ExchangeRuns, err)
		}

		args := amqp.Table{
			"x-message-ttl": queueMessageTTL.Milliseconds(),
			"x-max-length":  int64(queueMaxLength),
		}

		bindings := []struct {
			queue Queue
			key   RoutingKey
		}{
			{QueueRunsStarted, RoutingKeyStarted},
			{QueueRunsFinished, RoutingKeyFinished},
		}

		for _, b := range bindings {
			if _, err := ch.QueueDeclare(string(b.queue), true, false, false, false, args); err != nil {
				return fmt.Errorf("declare queue %s: %w", b.queue, err)
			}
			if err := ch.QueueBind(string(b.queue), string(b.key), string(ExchangeRuns), false, nil); err != nil {
				return fmt.Errorf("bind queue %s to %s: %w", b.queue, ExchangeRuns, err)
			}
		}
		return nil
	})
}

// DeclareWatchQueue объявляет временную exclusive очередь, привязанную к keys.
// Очередь удаляется брокером вместе с соединением.
func DeclareWatchQueue(ch *amqp.Channel, keys ...RoutingKey) (string, error) {
	q, err := ch.QueueDeclare(
		"",    // имя выдаёт брокер
		false, // durable
		true,  // auto-delete
		true,  // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("declare watch queue: %w", err)
	}

	for _, key := range keys {
		if err := ch.QueueBind(q.Name, string(key), string(ExchangeRuns), false, nil); err != nil {
			return "", fmt.Errorf("bind watch queue to %s: %w", key, err)
		}
	}
	return q.Name, nil
}
