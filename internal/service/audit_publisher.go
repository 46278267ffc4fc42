// Package service holds the audit trail publishers. Publishing never
// blocks a request on a failure: callers log the error and move on.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/ankur-foundation/ngo-portal/internal/model"
	"github.com/ankur-foundation/ngo-portal/internal/queue"
)

// AuditPublisher delivers audit events.
type AuditPublisher interface {
	Publish(ctx context.Context, ev queue.AuditEvent) error
}

// DefaultDialTimeout bounds the TCP connect and the AMQP handshake. Publish
// runs on the request path, so a broker that accepts but never answers must
// not stall it.
const DefaultDialTimeout = 2 * time.Second

// AMQPAuditPublisher publishes persistent messages to the audit queue over a
// shared connection, re-dialing when the broker drops it.
type AMQPAuditPublisher struct {
	url         string
	dialTimeout time.Duration

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPAuditPublisher dials url and declares the durable audit queue.
func NewAMQPAuditPublisher(url string) (*AMQPAuditPublisher, error) {
	p := &AMQPAuditPublisher{url: url, dialTimeout: DefaultDialTimeout}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.connect(); err != nil {
		return nil, err
	}
	return p, nil
}

// connect must be called with mu held.
func (p *AMQPAuditPublisher) connect() error {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(p.dialTimeout),
	})
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}
	if _, err := ch.QueueDeclare(queue.AuditQueueName, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return err
	}
	p.conn, p.ch = conn, ch
	return nil
}

// Publish marshals ev and sends it to the default exchange with the queue
// name as routing key.
func (p *AMQPAuditPublisher) Publish(ctx context.Context, ev queue.AuditEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.EventID,
		Timestamp:    ev.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() || p.ch == nil || p.ch.IsClosed() {
		p.closeLocked()
		if err := p.connect(); err != nil {
			return err
		}
	}
	return p.ch.PublishWithContext(ctx, "", queue.AuditQueueName, false, false, msg)
}

// Close releases the channel and connection.
func (p *AMQPAuditPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *AMQPAuditPublisher) closeLocked() error {
	var errs []error
	if p.ch != nil {
		errs = append(errs, ignoreClosed(p.ch.Close()))
		p.ch = nil
	}
	if p.conn != nil {
		errs = append(errs, ignoreClosed(p.conn.Close()))
		p.conn = nil
	}
	return errors.Join(errs...)
}

func ignoreClosed(err error) error {
	if errors.Is(err, amqp.ErrClosed) {
		return nil
	}
	return err
}

// AuditWriter persists audit rows.
type AuditWriter interface {
	Create(ctx context.Context, l *model.AuditLog) error
}

// DirectAuditWriter writes events straight to the audit store. It is used
// when no broker is configured.
type DirectAuditWriter struct {
	Logs AuditWriter
}

func (w DirectAuditWriter) Publish(ctx context.Context, ev queue.AuditEvent) error {
	row := ev.AuditLog()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return w.Logs.Create(ctx, &row)
}
