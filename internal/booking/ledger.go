// Package booking implements the booking ledger: seat inventory, the
// reservation state machine, pricing, the payment ledger and ticket
// confirmation.  Every mutation runs in one storage transaction so that
// seat flags, reservation history and payments never disagree.
package booking

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cinema-ticketing/internal/logging"
	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/repository"
)

// Publisher delivers domain events after a transaction has committed.
type Publisher interface {
	Publish(ctx context.Context, queue string, event any) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, any) error { return nil }

// Ledger is the entry point of every booking operation.  It is safe for
// concurrent use; consistency comes from the store's transactions, not
// from in-process locks.
type Ledger struct {
	store         repository.Store
	pricer        *Pricer
	events        Publisher
	now           func() time.Time
	retries       int
	defaultMethod model.PaymentMethod
	newReference  func(time.Time) string
}

// Option customises a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithPublisher sets the destination of domain events.
func WithPublisher(p Publisher) Option {
	return func(l *Ledger) {
		if p != nil {
			l.events = p
		}
	}
}

// WithUpdateRetries bounds how often UpdatePaymentStatus retries after a
// version conflict.
func WithUpdateRetries(n int) Option {
	return func(l *Ledger) {
		if n >= 0 {
			l.retries = n
		}
	}
}

// WithDefaultPaymentMethod sets the method used when a request names none.
func WithDefaultPaymentMethod(m model.PaymentMethod) Option {
	return func(l *Ledger) {
		if m.Valid() {
			l.defaultMethod = m
		}
	}
}

// New returns a Ledger on top of store.
func New(store repository.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:         store,
		events:        nopPublisher{},
		now:           time.Now,
		retries:       3,
		defaultMethod: model.MethodCreditCard,
		newReference:  paymentReference,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.pricer = NewPricer(store.Cards(), l.clock)
	return l
}

func (l *Ledger) clock() time.Time { return l.now().UTC() }

// paymentReference returns PAY-<yyyymmdd>-<8 hex>.
func paymentReference(at time.Time) string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return fmt.Sprintf("PAY-%s-%s", at.Format("20060102"), strings.ToUpper(id[:8]))
}

// fail logs internal failures with the operation and the ids involved and
// returns err unchanged.  Expected failures are left to the caller.
func (l *Ledger) fail(ctx context.Context, op string, err error, kv ...any) error {
	if err == nil || KindOf(err) != KindInternal {
		return err
	}
	fields := logrus.Fields{"operation": op}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			fields[k] = kv[i+1]
		}
	}
	logging.FromContext(ctx).WithFields(fields).WithError(err).Error("booking operation failed")
	return err
}

// publish sends an event and only logs delivery failures; the booking has
// already been committed.
func (l *Ledger) publish(ctx context.Context, queue string, event any) {
	if err := l.events.Publish(ctx, queue, event); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("queue", queue).Warn("event publish failed")
	}
}

// transition moves r to status to inside tx and mirrors the change on r.
func (l *Ledger) transition(ctx context.Context, tx repository.Tx, r *model.Reservation, to model.ReservationStatus, at time.Time) error {
	if err := checkTransition(r.Status, to); err != nil {
		return err
	}
	if err := tx.Reservations().UpdateStatus(ctx, r.ID, r.Version, to, at); err != nil {
		return err
	}
	r.Status = to
	r.History = append(r.History, model.StatusChange{Status: to, At: at})
	r.Version++
	r.UpdatedAt = at
	return nil
}
