package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/shaiso/Chronos/internal/domain"
)

// MessageType — тип события.
type MessageType string

const (
	MessageTypeRunStarted  MessageType = "run.started"
	MessageTypeRunFinished MessageType = "run.finished"
)

// Message — конверт события.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// RunEventPayload — состояние run на момент события.
type RunEventPayload struct {
	RunID      uuid.UUID        `json:"run_id"`
	Trigger    string           `json:"trigger"`
	Mode       domain.RunMode   `json:"mode"`
	Status     domain.RunStatus `json:"status"`
	ExitCode   int              `json:"exit_code"`
	Attempts   int              `json:"attempts"`
	Error      string           `json:"error,omitempty"`
	StartedAt  *time.Time       `json:"started_at,omitempty"`
	FinishedAt *time.Time       `json:"finished_at,omitempty"`
	DurationMs int64            `json:"duration_ms"`
}

// NewRunEventPayload снимает payload с run.
func NewRunEventPayload(run *domain.Run) RunEventPayload {
	return RunEventPayload{
		RunID:      run.ID,
		Trigger:    run.Trigger,
		Mode:       run.Mode,
		Status:     run.Status,
		ExitCode:   run.ExitCode,
		Attempts:   run.Attempts,
		Error:      run.Error,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
		DurationMs: run.Duration().Milliseconds(),
	}
}

// Publisher публикует события о запусках в exchange chronos.runs.
type Publisher struct {
	conn   *Connection
	logger *slog.Logger
}

// NewPublisher создаёт Publisher.
func NewPublisher(conn *Connection, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{conn: conn, logger: logger}
}

// PublishRunStarted — событие о начале run.
func (p *Publisher) PublishRunStarted(ctx context.Context, run *domain.Run) error {
	return p.publish(ctx, RoutingKeyStarted, MessageTypeRunStarted, run)
}

// PublishRunFinished — событие о завершении run (SUCCEEDED или FAILED).
func (p *Publisher) PublishRunFinished(ctx context.Context, run *domain.Run) error {
	return p.publish(ctx, RoutingKeyFinished, MessageTypeRunFinished, run)
}

func (p *Publisher) publish(ctx context.Context, key RoutingKey, msgType MessageType, run *domain.Run) error {
	msg := &Message{
		ID:        uuid.New().String(),
		Type:      msgType,
		Payload:   NewRunEventPayload(run),
		Timestamp: time.Now(),
	}
	return p.Publish(ctx, key, msg)
}

// Publish отправляет сообщение в chronos.runs с ключом key.
func (p *Publisher) Publish(ctx context.Context, key RoutingKey, msg *Message) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	return p.conn.WithChannel(ctx, func(ch *amqp.Channel) error {
		err := ch.PublishWithContext(ctx,
			string(ExchangeRuns),
			string(key),
			false, // mandatory
			false, // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				MessageId:    msg.ID,
				Type:         string(msg.Type),
				Timestamp:    msg.Timestamp,
				Body:         body,
			},
		)
		if err != nil {
			return fmt.Errorf("publish to %s/%s: %w", ExchangeRuns, key, err)
		}

		p.logger.Debug("published message",
			"routing_key", key,
			"message_id", msg.ID,
			"type", msg.Type,
		)
		return nil
	})
}
