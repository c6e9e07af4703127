package mq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Handler обрабатывает одно событие. Ошибка — сообщение возвращается в очередь.
type Handler func(ctx context.Context, msg *Delivery) error

// Delivery — распарсенное событие и исходное AMQP сообщение.
type Delivery struct {
	Message Message
	Raw     amqp.Delivery
}

// ConsumerConfig — конфигурация Consumer.
type ConsumerConfig struct {
	// Queue — имя существующей очереди. Игнорируется, если задан Declare.
	Queue string

	// Declare объявляет очередь на новом канале и возвращает её имя.
	// Вызывается при старте и после каждого переподключения.
	Declare func(ch *amqp.Channel) (string, error)

	Handler Handler

	// Prefetch — default: 1.
	Prefetch int
}

// Consumer читает события из очереди и переживает переподключения.
type Consumer struct {
	conn   *Connection
	logger *slog.Logger
	cfg    ConsumerConfig
}

// NewConsumer создаёт Consumer.
func NewConsumer(conn *Connection, logger *slog.Logger, cfg ConsumerConfig) *Consumer {
	if cfg.Prefetch <= 0 {
		cfg.Prefetch = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{conn: conn, logger: logger, cfg: cfg}
}

// Run потребляет сообщения до отмены ctx. Возвращает ctx.Err().
func (c *Consumer) Run(ctx context.Context) error {
	for {
		deliveries, queue, err := c.subscribe()
		if err != nil {
			c.logger.Error("failed to subscribe", "error", err)
		} else {
			c.logger.Info("consumer started", "queue", queue)
			err = c.drain(ctx, queue, deliveries)
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("consumer interrupted, waiting for reconnect", "queue", queue, "error", err)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.conn.Reconnected():
		}
	}
}

// subscribe настраивает prefetch, объявляет очередь (если нужно) и начинает чтение.
func (c *Consumer) subscribe() (<-chan amqp.Delivery, string, error) {
	ch := c.conn.Channel()
	if ch == nil {
		return nil, "", ErrNoChannel
	}

	if err := ch.Qos(c.cfg.Prefetch, 0, false); err != nil {
		return nil, "", fmt.Errorf("set qos: %w", err)
	}

	queue := c.cfg.Queue
	if c.cfg.Declare != nil {
		name, err := c.cfg.Declare(ch)
		if err != nil {
			return nil, "", err
		}
		queue = name
	}

	deliveries, err := ch.Consume(
		queue,
		"",    // consumer tag
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, "", fmt.Errorf("consume %s: %w", queue, err)
	}
	return deliveries, queue, nil
}

var errDeliveriesClosed = errors.New("deliveries channel closed")

func (c *Consumer) drain(ctx context.Context, queue string, deliveries <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case raw, ok := <-deliveries:
			if !ok {
				return errDeliveriesClosed
			}
			c.handle(ctx, queue, raw)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, queue string, raw amqp.Delivery) {
	var msg Message
	if err := json.Unmarshal(raw.Body, &msg); err != nil {
		c.logger.Error("failed to unmarshal message", "queue", queue, "error", err)
		// Битое сообщение не возвращаем в очередь
		_ = raw.Nack(false, false)
		return
	}

	if err := c.cfg.Handler(ctx, &Delivery{Message: msg, Raw: raw}); err != nil {
		c.logger.Error("handler failed",
			"queue", queue,
			"message_id", msg.ID,
			"type", msg.Type,
			"error", err,
		)
		_ = raw.Nack(false, true)
		return
	}
	_ = raw.Ack(false)
}

// ParsePayload декодирует payload сообщения в T.
func ParsePayload[T any](msg *Message) (T, error) {
	var result T

	data, err := json.Marshal(msg.Payload)
	if err != nil {
		return result, fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("unmarshal payload: %w", err)
	}
	return result, nil
}
