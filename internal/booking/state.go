package booking

import (
	"fmt"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// transitions lists the legal successors of every non-terminal state.
var transitions = map[model.ReservationStatus][]model.ReservationStatus{
	model.ReservationPending: {
		model.ReservationReserved,
		model.ReservationCancelled,
	},
	model.ReservationReserved: {
		model.ReservationProcessing,
		model.ReservationPurchased,
		model.ReservationRejected,
		model.ReservationCancelled,
	},
	model.ReservationProcessing: {
		model.ReservationPurchased,
		model.ReservationRejected,
		model.ReservationCancelled,
	},
}

// checkTransition returns ErrIllegalTransition unless from may move to to.
func checkTransition(from, to model.ReservationStatus) error {
	if from.Terminal() {
		return fmt.Errorf("%w: %s is terminal", ErrIllegalTransition, from)
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
}

// reservationStatusFor maps the payment statuses a provider may report to
// the reservation state they drive.
var reservationStatusFor = map[model.PaymentStatus]model.ReservationStatus{
	model.PaymentProcessing: model.ReservationProcessing,
	model.PaymentAccepted:   model.ReservationPurchased,
	model.PaymentRejected:   model.ReservationRejected,
	model.PaymentCancelled:  model.ReservationCancelled,
}

// releasesSeats reports whether reaching s hands the seats back.
func releasesSeats(s model.PaymentStatus) bool {
	return s == model.PaymentRejected || s == model.PaymentCancelled
}

func initialStatus(mode model.ReservationMode) (model.ReservationStatus, error) {
	switch mode {
	case model.ModePurchase:
		return model.ReservationPending, nil
	case model.ModeReserve:
		return model.ReservationReserved, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidMode, mode)
}
