package booking

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
	"github.com/iliyamo/cinema-ticketing/internal/queue"
)

func TestCreateReservationPurchaseModeLocksSeats(t *testing.T) {
	f := newFixture(t)
	r, err := f.ledger.CreateReservation(context.Background(), CreateRequest{
		UserID: alice, ShowingID: showingID, Seats: []string{"A1", "A2"}, Mode: model.ModePurchase,
	})
	require.NoError(t, err)

	assert.Equal(t, model.ReservationPending, r.Status)
	assert.Equal(t, []string{"A1", "A2"}, r.Seats)
	assert.Equal(t, []model.ReservationStatus{model.ReservationPending}, statuses(r.History))
	assert.Equal(t, []string{"A1", "A2"}, f.unavailable(t))
	f.requireLockInvariant(t)
}

func TestCreateReservationReserveModeStartsReserved(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t, alice, "B3")
	assert.Equal(t, model.ReservationReserved, r.Status)

	stored, err := f.ledger.GetReservation(context.Background(), alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.History, stored.History)
}

func TestCreateReservationDeduplicatesSeatNames(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t, alice, " A1", "A1", "A2 ")
	assert.Equal(t, []string{"A1", "A2"}, r.Seats)
}

func TestCreateReservationRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.ledger.CreateReservation(ctx, CreateRequest{UserID: alice, ShowingID: showingID, Mode: model.ModeReserve})
	require.ErrorIs(t, err, ErrEmptySeatSelection)
	assert.Equal(t, KindInvalidInput, KindOf(err))

	_, err = f.ledger.CreateReservation(ctx, CreateRequest{UserID: alice, ShowingID: showingID, Seats: []string{"A1"}, Mode: "later"})
	require.ErrorIs(t, err, ErrInvalidMode)

	_, err = f.ledger.CreateReservation(ctx, CreateRequest{UserID: alice, ShowingID: 404, Seats: []string{"A1"}, Mode: model.ModeReserve})
	require.ErrorIs(t, err, ErrShowingNotFound)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Empty(t, f.unavailable(t))
}

func TestCreateReservationReportsUnavailableSeats(t *testing.T) {
	f := newFixture(t)
	f.reserve(t, alice, "A1")

	_, err := f.ledger.CreateReservation(context.Background(), CreateRequest{
		UserID: bob, ShowingID: showingID, Seats: []string{"A1", "A2", "Z9"}, Mode: model.ModePurchase,
	})
	require.ErrorIs(t, err, ErrSeatUnavailable)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, []string{"A1", "Z9"}, ConflictingSeats(err))
	// A2 must not be left locked by the failed attempt
	assert.Equal(t, []string{"A1"}, f.unavailable(t))
	f.requireLockInvariant(t)
}

func TestCreateThenCancelReleasesSeats(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t, alice, "A1", "A2")

	cancelled, err := f.ledger.CancelReservation(context.Background(), alice, r.ID)
	require.NoError(t, err)

	assert.Equal(t, model.ReservationCancelled, cancelled.Status)
	assert.Equal(t, []model.ReservationStatus{model.ReservationReserved, model.ReservationCancelled}, statuses(cancelled.History))
	assert.Empty(t, f.unavailable(t))
	f.requireLockInvariant(t)

	require.Equal(t, []string{queue.ReleasedQueue}, f.events.queues())
	ev := f.events.events[0].event.(queue.SeatsReleasedEvent)
	assert.Equal(t, "cancelled_by_user", ev.Reason)
	assert.Equal(t, []string{"A1", "A2"}, ev.Seats)
}

func TestCancelPendingReservation(t *testing.T) {
	f := newFixture(t)
	r, err := f.ledger.CreateReservation(context.Background(), CreateRequest{
		UserID: alice, ShowingID: showingID, Seats: []string{"B4"}, Mode: model.ModePurchase,
	})
	require.NoError(t, err)

	_, err = f.ledger.CancelReservation(context.Background(), alice, r.ID)
	require.NoError(t, err)
	assert.Empty(t, f.unavailable(t))
}

func TestCancelReservationOfAnotherUserIsNotFound(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t, alice, "A1")

	_, err := f.ledger.CancelReservation(context.Background(), bob, r.ID)
	require.ErrorIs(t, err, ErrReservationNotFound)
	assert.Equal(t, []string{"A1"}, f.unavailable(t))
}

func TestCancelAfterPaymentInitiatedFails(t *testing.T) {
	f := newFixture(t)
	p := f.pay(t, alice, "A1")

	_, err := f.ledger.CancelReservation(context.Background(), alice, p.ReservationID)
	require.ErrorIs(t, err, ErrPaymentExists)
	assert.Equal(t, KindConflict, KindOf(err))
	assert.Equal(t, []string{"A1"}, f.unavailable(t))
}

func TestCancelTerminalReservationIsNotFound(t *testing.T) {
	f := newFixture(t)
	r := f.reserve(t, alice, "A1")
	_, err := f.ledger.CancelReservation(context.Background(), alice, r.ID)
	require.NoError(t, err)

	_, err = f.ledger.CancelReservation(context.Background(), alice, r.ID)
	require.ErrorIs(t, err, ErrReservationNotFound)

	_, err = f.ledger.CancelReservation(context.Background(), alice, 999)
	require.ErrorIs(t, err, ErrReservationNotFound)
}

func TestHoldMovesPendingToReserved(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r, err := f.ledger.CreateReservation(ctx, CreateRequest{
		UserID: alice, ShowingID: showingID, Seats: []string{"A1"}, Mode: model.ModePurchase,
	})
	require.NoError(t, err)

	held, err := f.ledger.HoldReservation(ctx, alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ReservationReserved, held.Status)
	assert.Equal(t, []model.ReservationStatus{model.ReservationPending, model.ReservationReserved}, statuses(held.History))

	_, err = f.ledger.HoldReservation(ctx, alice, r.ID)
	require.ErrorIs(t, err, ErrReservationNotPending)

	_, err = f.ledger.HoldReservation(ctx, bob, r.ID)
	require.ErrorIs(t, err, ErrReservationNotFound)
}

func TestListReservations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.reserve(t, alice, "A1")
	second := f.reserve(t, alice, "A2")
	f.reserve(t, bob, "B3")

	mine, err := f.ledger.ListReservations(ctx, alice)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	all, err := f.ledger.ListShowingReservations(ctx, showingID)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, err = f.ledger.ListShowingReservations(ctx, 404)
	require.ErrorIs(t, err, ErrShowingNotFound)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	f.reserve(t, alice, "A1")

	av, err := f.ledger.CheckAvailability(context.Background(), showingID, []string{"A1", "A2"})
	require.NoError(t, err)
	assert.False(t, av.Available)
	assert.Equal(t, []string{"A1"}, av.Unavailable)

	av, err = f.ledger.CheckAvailability(context.Background(), showingID, []string{"B3"})
	require.NoError(t, err)
	assert.True(t, av.Available)
	assert.Empty(t, av.Unavailable)
}
