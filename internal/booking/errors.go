package booking

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies ledger failures so that transports can map them to
// status codes without knowing every sentinel.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
	KindConflict
	KindInvalidInput
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindInvalidInput:
		return "invalid_input"
	}
	return "internal"
}

var (
	ErrShowingNotFound     = errors.New("showing not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrPaymentNotFound     = errors.New("payment not found")

	ErrSeatUnavailable        = errors.New("seats unavailable")
	ErrSeatConflict           = errors.New("seats were taken concurrently")
	ErrPaymentExists          = errors.New("reservation already has a payment")
	ErrPaymentAlreadyExists   = errors.New("payment already exists for reservation")
	ErrReservationNotReserved = errors.New("reservation is not reserved")
	ErrReservationNotPending  = errors.New("reservation is not pending")
	ErrPaymentNotAccepted     = errors.New("payment not accepted")
	ErrConcurrentUpdate       = errors.New("payment was updated concurrently")

	ErrEmptySeatSelection   = errors.New("no seats selected")
	ErrInvalidMode          = errors.New("invalid reservation mode")
	ErrInvalidPaymentStatus = errors.New("invalid payment status")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")

	// ErrIllegalTransition signals a broken state machine invariant and is
	// always treated as an internal failure.
	ErrIllegalTransition = errors.New("illegal reservation transition")
)

var kinds = map[error]Kind{
	ErrShowingNotFound:        KindNotFound,
	ErrReservationNotFound:    KindNotFound,
	ErrPaymentNotFound:        KindNotFound,
	ErrSeatUnavailable:        KindConflict,
	ErrSeatConflict:           KindConflict,
	ErrPaymentExists:          KindConflict,
	ErrPaymentAlreadyExists:   KindConflict,
	ErrReservationNotReserved: KindConflict,
	ErrReservationNotPending:  KindConflict,
	ErrPaymentNotAccepted:     KindConflict,
	ErrConcurrentUpdate:       KindConflict,
	ErrEmptySeatSelection:     KindInvalidInput,
	ErrInvalidMode:            KindInvalidInput,
	ErrInvalidPaymentStatus:   KindInvalidInput,
	ErrInvalidPaymentMethod:   KindInvalidInput,
}

// KindOf returns the kind of err.  Errors the ledger does not recognise,
// including ErrIllegalTransition and storage failures, are internal.
func KindOf(err error) Kind {
	for sentinel, k := range kinds {
		if errors.Is(err, sentinel) {
			return k
		}
	}
	return KindInternal
}

// SeatError names the seats behind ErrSeatUnavailable or ErrSeatConflict.
type SeatError struct {
	Err   error
	Seats []string
}

func (e *SeatError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, strings.Join(e.Seats, ", "))
}

func (e *SeatError) Unwrap() error { return e.Err }

// ConflictingSeats returns the seat names carried by err, if any.
func ConflictingSeats(err error) []string {
	var se *SeatError
	if errors.As(err, &se) {
		return se.Seats
	}
	return nil
}
