package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/repository"
)

// AuditStore persists audit rows.
type AuditStore interface {
	Create(ctx context.Context, l *model.AuditLog) error
}

// StartAuditConsumer connects to RabbitMQ, declares the durable audit queue
// and writes every delivered event to store. It reconnects with
// exponential backoff and returns only when ctx is cancelled.
func StartAuditConsumer(ctx context.Context, url string, store AuditStore, logger echo.Logger) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			logger.Warnf("audit-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, store, logger)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warnf("audit-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, store AuditStore, logger echo.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Warnf("audit-consumer: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(AuditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(AuditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(ctx, store, d.Body); err != nil {
				logger.Errorf("audit-consumer: handle message failed: %v", err)
				// Requeue only errors a retry can fix.
				_ = d.Nack(false, retryable(err))
				continue
			}
			_ = d.Ack(false)
		}
	}
}

var errBadEvent = errors.New("malformed audit event")

func retryable(err error) bool {
	return !errors.Is(err, errBadEvent) && !errors.Is(err, repository.ErrReferenceNotFound)
}

func handleMessage(ctx context.Context, store AuditStore, body []byte) error {
	var ev AuditEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: %v", errBadEvent, err)
	}
	if ev.UserID == 0 || ev.Action == "" || ev.Entity == "" {
		return fmt.Errorf("%w: missing user, action or entity", errBadEvent)
	}
	if len(ev.Changes) > 0 && !json.Valid(ev.Changes) {
		return fmt.Errorf("%w: changes is not JSON", errBadEvent)
	}
	row := ev.AuditLog()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := store.Create(ctx, &row); err != nil {
		return fmt.Errorf("persist audit event %s: %w", ev.EventID, err)
	}
	return nil
}
