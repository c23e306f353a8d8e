package booking

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cinema-ticketing/internal/model"
)

// These races run on the memory store, whose transactions take turns on
// one mutex.  TestMySQLConcurrentOverlappingCreateHasOneWinner repeats the
// first one against MySQL row locks when BOOKING_MYSQL_DSN is set.

func TestConcurrentOverlappingCreateHasOneWinner(t *testing.T) {
	f := newFixture(t)
	const workers = 16

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		wins     int
		failures []error
	)
	start := make(chan struct{})
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(user uint64) {
			defer wg.Done()
			<-start
			_, err := f.ledger.CreateReservation(context.Background(), CreateRequest{
				UserID: user, ShowingID: showingID, Seats: []string{"B3", "B4"}, Mode: model.ModePurchase,
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			failures = append(failures, err)
		}(uint64(100 + i))
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	require.Len(t, failures, workers-1)
	for _, err := range failures {
		assert.Equal(t, KindConflict, KindOf(err), err.Error())
		assert.NotEmpty(t, ConflictingSeats(err))
	}
	assert.Equal(t, []string{"B3", "B4"}, f.unavailable(t))
	f.requireLockInvariant(t)
}

func TestConcurrentDisjointCreatesAllSucceed(t *testing.T) {
	f := newFixture(t)
	seats := []string{"A1", "A2", "B3", "B4"}

	var wg sync.WaitGroup
	errs := make([]error, len(seats))
	for i, s := range seats {
		wg.Add(1)
		go func(i int, seat string) {
			defer wg.Done()
			_, errs[i] = f.ledger.CreateReservation(context.Background(), CreateRequest{
				UserID: alice, ShowingID: showingID, Seats: []string{seat}, Mode: model.ModeReserve,
			})
		}(i, s)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.Equal(t, seats, f.unavailable(t))
	f.requireLockInvariant(t)
}

func TestInitiateAndCancelRaceHasOneWinner(t *testing.T) {
	for i := 0; i < 20; i++ {
		f := newFixture(t)
		r := f.reserve(t, alice, "A1")

		var wg sync.WaitGroup
		var payErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, payErr = f.ledger.InitiatePayment(context.Background(), InitiateRequest{UserID: alice, ReservationID: r.ID})
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = f.ledger.CancelReservation(context.Background(), alice, r.ID)
		}()
		wg.Wait()

		require.True(t, (payErr == nil) != (cancelErr == nil), "pay=%v cancel=%v", payErr, cancelErr)
		if payErr == nil {
			require.ErrorIs(t, cancelErr, ErrPaymentExists)
			assert.Equal(t, []string{"A1"}, f.unavailable(t))
		} else {
			require.ErrorIs(t, payErr, ErrReservationNotReserved)
			assert.Empty(t, f.unavailable(t))
		}
		f.requireLockInvariant(t)
	}
}

func TestConcurrentStatusCallbacksApplyOnce(t *testing.T) {
	f := newFixture(t)
	p := f.pay(t, alice, "A2")

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.ledger.UpdatePaymentStatus(context.Background(), StatusUpdate{PaymentID: p.ID, Status: model.PaymentRejected})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	r, err := f.ledger.GetReservation(context.Background(), alice, p.ReservationID)
	require.NoError(t, err)
	assert.Equal(t, []model.ReservationStatus{model.ReservationReserved, model.ReservationRejected}, statuses(r.History))
	assert.Len(t, f.events.queues(), 1)
	assert.Empty(t, f.unavailable(t))
}
