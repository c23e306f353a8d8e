package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/cinema-ticketing/internal/logging"
)

// Queues lists every queue the audit consumer reads.
var Queues = []string{PurchasedQueue, ReleasedQueue}

// AuditConsumer reads booking events and appends one human friendly line
// per event to a log file (logs/booking.log by default).
type AuditConsumer struct {
    url     string
    logPath string
}

// NewAuditConsumer returns a consumer for the broker at url.  An empty
// logPath means logs/booking.log.
func NewAuditConsumer(url, logPath string) *AuditConsumer {
    if logPath == "" {
        logPath = filepath.Join("logs", "booking.log")
    }
    return &AuditConsumer{url: url, logPath: logPath}
}

// Run connects to RabbitMQ, declares the durable booking queues and
// consumes them until ctx is cancelled.  Lost connections are redialled
// with exponential backoff.  Messages that cannot be handled are rejected
// without requeue so that one bad payload cannot stall the queue.
func (a *AuditConsumer) Run(ctx context.Context) error {
    log := logging.FromContext(ctx).WithField("component", "booking-consumer")
    backoff := time.Second
    for {
        conn, err := amqp.Dial(a.url)
        if err != nil {
            log.WithError(err).WithField("retry_in", backoff.String()).Warn("failed to dial broker")
            if !sleep(ctx, backoff) {
                return nil
            }
            backoff = min(backoff*2, 30*time.Second)
            continue
        }
        backoff = time.Second

        err = a.consume(ctx, conn, log)
        _ = conn.Close()
        if ctx.Err() != nil {
            return nil
        }
        log.WithError(err).Warn("consume loop ended; reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return nil
        }
    }
}

func (a *AuditConsumer) consume(ctx context.Context, conn *amqp.Connection, log *logrus.Entry) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.WithError(err).Warn("set QoS failed")
    }

    type delivery struct {
        queue string
        amqp.Delivery
    }
    merged := make(chan delivery)
    for _, q := range Queues {
        if _, err := ch.QueueDeclare(q, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", q, err)
        }
        msgs, err := ch.Consume(q, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", q, err)
        }
        go func(q string, msgs <-chan amqp.Delivery) {
            for d := range msgs {
                select {
                case merged <- delivery{queue: q, Delivery: d}:
                case <-ctx.Done():
                    return
                }
            }
        }(q, msgs)
    }

    closed := conn.NotifyClose(make(chan *amqp.Error, 1))
    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case amqpErr := <-closed:
            if amqpErr != nil {
                return amqpErr
            }
            return errors.New("connection closed")
        case d := <-merged:
            if err := a.handleMessage(d.queue, d.Body); err != nil {
                log.WithError(err).WithField("queue", d.queue).Error("handle message failed")
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

// handleMessage formats one event and appends it to the log file.
func (a *AuditConsumer) handleMessage(queue string, body []byte) error {
    line, err := formatEvent(queue, body)
    if err != nil {
        return err
    }
    if err := os.MkdirAll(filepath.Dir(a.logPath), 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatEvent(queue string, body []byte) (string, error) {
    switch queue {
    case PurchasedQueue:
        var ev ReservationPurchasedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal: %w", err)
        }
        return fmt.Sprintf("[%s] Reservation purchased | reservation_id=%d | payment_id=%d | reference=%s | user_id=%d | showing_id=%d | total=%d cents | seats=%s\n",
            ev.PurchasedAt, ev.ReservationID, ev.PaymentID, ev.Reference, ev.UserID, ev.ShowingID, ev.AmountCents, seatList(ev.Seats)), nil
    case ReleasedQueue:
        var ev SeatsReleasedEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return "", fmt.Errorf("unmarshal: %w", err)
        }
        return fmt.Sprintf("[%s] Seats released | reservation_id=%d | showing_id=%d | reason=%s | seats=%s\n",
            ev.ReleasedAt, ev.ReservationID, ev.ShowingID, ev.Reason, seatList(ev.Seats)), nil
    }
    return "", fmt.Errorf("unknown queue %q", queue)
}

func seatList(seats []string) string {
    return "[" + strings.Join(seats, ",") + "]"
}

// sleep waits for d and reports false when ctx ended first.
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
