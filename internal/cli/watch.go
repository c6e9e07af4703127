package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"

	"github.com/shaiso/Chronos/internal/mq"
)

// NewWatchCmd создаёт команду, печатающую события о запусках по мере их появления.
func NewWatchCmd(outputFn func() *Output) *cobra.Command {
	var (
		amqpURL      string
		finishedOnly bool
	)

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream run events from RabbitMQ",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if amqpURL == "" {
				amqpURL = os.Getenv("RABBITMQ_URL")
			}
			if amqpURL == "" {
				amqpURL = mq.DefaultURL()
			}

			logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

			conn, err := mq.Dial(amqpURL, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			keys := []mq.RoutingKey{mq.RoutingKeyStarted, mq.RoutingKeyFinished}
			if finishedOnly {
				keys = keys[1:]
			}

			out := outputFn()
			consumer := mq.NewConsumer(conn, logger, mq.ConsumerConfig{
				Declare: func(ch *amqp.Channel) (string, error) {
					return mq.DeclareWatchQueue(ch, keys...)
				},
				Handler: func(_ context.Context, d *mq.Delivery) error {
					return printEvent(out, &d.Message)
				},
			})

			out.Success("Watching run events, press Ctrl+C to stop")
			err = consumer.Run(cmd.Context())
			if cmd.Context().Err() != nil {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVar(&amqpURL, "amqp-url", "", "RabbitMQ URL (default: $RABBITMQ_URL)")
	cmd.Flags().BoolVar(&finishedOnly, "finished-only", false, "Only show run.finished events")

	return cmd
}

// printEvent печатает событие одной строкой или JSON-объектом.
func printEvent(out *Output, msg *mq.Message) error {
	payload, err := mq.ParsePayload[mq.RunEventPayload](msg)
	if err != nil {
		return err
	}

	if out.JSONMode() {
		out.JSON(map[string]any{"type": msg.Type, "timestamp": msg.Timestamp, "run": payload})
		return nil
	}

	out.Line("%s", FormatEvent(msg.Type, msg.Timestamp, payload))
	return nil
}

// FormatEvent — текстовое представление события.
func FormatEvent(msgType mq.MessageType, ts time.Time, p mq.RunEventPayload) string {
	line := fmt.Sprintf("%s  %-12s run=%s trigger=%s mode=%s",
		ts.Local().Format("2006-01-02 15:04:05"), msgType, p.RunID, p.Trigger, p.Mode)

	if msgType == mq.MessageTypeRunFinished {
		line += fmt.Sprintf(" status=%s exit=%d attempts=%d duration=%s",
			p.Status, p.ExitCode, p.Attempts, time.Duration(p.DurationMs)*time.Millisecond)
		if p.Error != "" {
			line += fmt.Sprintf(" error=%q", p.Error)
		}
	}
	return line
}
