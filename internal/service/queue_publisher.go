// Package service holds adapters from the booking ledger to outside
// infrastructure.
package service

import (
    "context"
    "encoding/json"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/cinema-ticketing/internal/logging"
)

// amqpChannel is the part of *amqp.Channel the publisher uses.
type amqpChannel interface {
    QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
    PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
    Close() error
}

// dialFunc opens a channel on a fresh connection.
type dialFunc func(url string) (amqpChannel, func() error, error)

func dialAMQP(url string) (amqpChannel, func() error, error) {
    conn, err := amqp.Dial(url)
    if err != nil {
        return nil, nil, err
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return nil, nil, err
    }
    return ch, conn.Close, nil
}

// QueuePublisher publishes booking events to durable RabbitMQ queues on the
// default exchange.  The connection is opened on first use and reopened
// after a failed publish.
type QueuePublisher struct {
    url  string
    dial dialFunc

    mu       sync.Mutex
    ch       amqpChannel
    closeFn  func() error
    declared map[string]bool
}

// NewQueuePublisher returns a publisher for the broker at url.
func NewQueuePublisher(url string) *QueuePublisher {
    return &QueuePublisher{url: url, dial: dialAMQP, declared: map[string]bool{}}
}

// Publish marshals event as JSON and sends it persistently to queue.  The
// request correlation id travels in the message properties.
func (p *QueuePublisher) Publish(ctx context.Context, q string, event any) error {
    body, err := json.Marshal(event)
    if err != nil {
        return fmt.Errorf("marshal %s event: %w", q, err)
    }
    msg := amqp.Publishing{
        ContentType:   "application/json",
        DeliveryMode:  amqp.Persistent,
        Timestamp:     time.Now().UTC(),
        CorrelationId: logging.CorrelationIDFromContext(ctx),
        Body:          body,
    }

    p.mu.Lock()
    defer p.mu.Unlock()
    if err := p.publishLocked(ctx, q, msg); err != nil {
        // the channel may be dead; retry once on a fresh connection
        logging.FromContext(ctx).WithError(err).WithField("queue", q).Debug("publish failed, redialling")
        p.resetLocked()
        if err := p.publishLocked(ctx, q, msg); err != nil {
            p.resetLocked()
            return fmt.Errorf("publish to %s: %w", q, err)
        }
    }
    return nil
}

func (p *QueuePublisher) publishLocked(ctx context.Context, q string, msg amqp.Publishing) error {
    if p.ch == nil {
        ch, closeFn, err := p.dial(p.url)
        if err != nil {
            return fmt.Errorf("dial broker: %w", err)
        }
        p.ch, p.closeFn = ch, closeFn
        p.declared = map[string]bool{}
    }
    if !p.declared[q] {
        if _, err := p.ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare: %w", err)
        }
        p.declared[q] = true
    }
    return p.ch.PublishWithContext(ctx, "", q, false, false, msg)
}

func (p *QueuePublisher) resetLocked() {
    if p.ch != nil {
        _ = p.ch.Close()
    }
    if p.closeFn != nil {
        _ = p.closeFn()
    }
    p.ch, p.closeFn = nil, nil
}

// Close releases the broker connection.
func (p *QueuePublisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    p.resetLocked()
    return nil
}
