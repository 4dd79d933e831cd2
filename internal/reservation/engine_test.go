package reservation

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/cinearenas/booking-engine/internal/mocks"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 6, 15, 18, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type engineFixture struct {
	engine   *Engine
	catalog  *mocks.MockCatalog
	ledger   *mocks.MockSalesLedger
	notifier *mocks.MockNotifier
	clock    *fakeClock
}

func newTestEngine(t *testing.T, opts ...Option) *engineFixture {
	t.Helper()

	catalog := new(mocks.MockCatalog)
	catalog.On("SeatLayout", mock.Anything, mock.Anything).Return(seatList("A1", "A2", "A3", "B1"), nil)
	catalog.On("GetShowtime", mock.Anything, mock.Anything).Return(&domain.Showtime{
		ID:         1,
		MovieTitle: "Blade Runner",
		HallName:   "Sala 1",
		Format:     "2D",
		SeatPrice:  decimal.NewFromInt(100),
	}, nil)

	ledger := new(mocks.MockSalesLedger)
	ledger.On("ReservedSeats", mock.Anything, mock.Anything).Return([]domain.SeatID{}, nil)

	notifier := mocks.NewMockNotifier()
	clock := newFakeClock()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithClock(clock.Now)}, opts...)

	return &engineFixture{
		engine:   New(catalog, ledger, notifier, logger, opts...),
		catalog:  catalog,
		ledger:   ledger,
		notifier: notifier,
		clock:    clock,
	}
}

// holdWithIntent drives the common setup: an active hold plus its pending
// payment intent.
func (f *engineFixture) holdWithIntent(t *testing.T, labels ...string) (domain.Hold, domain.PaymentIntent) {
	t.Helper()

	hold, err := f.engine.CreateHold(context.Background(), 1, seatList(labels...), "req-1")
	require.NoError(t, err)

	amount := decimal.NewFromInt(int64(100 * len(labels)))
	intent, err := f.engine.OpenIntent(context.Background(), hold.ID, amount, "payer@example.com")
	require.NoError(t, err)

	return hold, intent
}

func TestCreateHoldValidation(t *testing.T) {
	f := newTestEngine(t)

	tests := []struct {
		name       string
		showtimeID int64
		seats      []domain.SeatID
	}{
		{name: "non-positive showtime id", showtimeID: 0, seats: seatList("A1")},
		{name: "empty seat set", showtimeID: 1, seats: nil},
		{name: "duplicate seats", showtimeID: 1, seats: seatList("A1", "A1")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.CreateHold(context.Background(), tt.showtimeID, tt.seats, "req-1")
			require.ErrorIs(t, err, domain.ErrInvalidRequest)
		})
	}
}

func TestOpenIntentOncePerHold(t *testing.T) {
	f := newTestEngine(t)

	hold, err := f.engine.CreateHold(context.Background(), 1, seatList("A1"), "req-1")
	require.NoError(t, err)

	_, err = f.engine.OpenIntent(context.Background(), hold.ID, decimal.NewFromInt(100), "payer@example.com")
	require.NoError(t, err)

	_, err = f.engine.OpenIntent(context.Background(), hold.ID, decimal.NewFromInt(100), "payer@example.com")
	require.ErrorIs(t, err, domain.ErrHoldNotActive)
}

func TestOpenIntentRequiresActiveHold(t *testing.T) {
	f := newTestEngine(t)

	hold, err := f.engine.CreateHold(context.Background(), 1, seatList("A1"), "req-1")
	require.NoError(t, err)
	require.NoError(t, f.engine.Release(context.Background(), hold.ID))

	_, err = f.engine.OpenIntent(context.Background(), hold.ID, decimal.NewFromInt(100), "payer@example.com")
	require.ErrorIs(t, err, domain.ErrHoldNotActive)
}

func TestOpenIntentRejectsNonPositiveAmount(t *testing.T) {
	f := newTestEngine(t)

	hold, err := f.engine.CreateHold(context.Background(), 1, seatList("A1"), "req-1")
	require.NoError(t, err)

	_, err = f.engine.OpenIntent(context.Background(), hold.ID, decimal.Zero, "payer@example.com")
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestResolveApprovedCommitsAndRecordsSale(t *testing.T) {
	f := newTestEngine(t)
	hold, intent := f.holdWithIntent(t, "A1", "A2")

	f.ledger.On("Append", mock.Anything, mock.MatchedBy(func(record domain.SalesRecord) bool {
		return record.ID == intent.ID &&
			record.ShowtimeID == hold.ShowtimeID &&
			record.Amount.Equal(intent.Amount)
	})).Return(nil).Once()

	require.NoError(t, f.engine.Resolve(context.Background(), intent.Reference, domain.OutcomeApproved))

	committed, err := f.engine.GetHold(hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldCommitted, committed.Status)

	stored, err := f.engine.LookupByReference(intent.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentApproved, stored.Status)

	available, err := f.engine.ListAvailableSeats(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, available, 2)

	f.engine.Shutdown()

	confirmations := f.notifier.Confirmations()
	require.Len(t, confirmations, 1)
	assert.Equal(t, "payer@example.com", confirmations[0].Recipient)
	assert.Equal(t, "Blade Runner", confirmations[0].MovieTitle)
	assert.Equal(t, seatList("A1", "A2"), confirmations[0].Seats)

	f.ledger.AssertExpectations(t)
}

func TestResolveIsIdempotent(t *testing.T) {
	f := newTestEngine(t)
	_, intent := f.holdWithIntent(t, "A1")

	f.ledger.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, f.engine.Resolve(context.Background(), intent.Reference, domain.OutcomeApproved))

	// A redelivered approval changes nothing and appends nothing.
	require.NoError(t, f.engine.Resolve(context.Background(), intent.Reference, domain.OutcomeApproved))

	f.ledger.AssertNumberOfCalls(t, "Append", 1)
	f.engine.Shutdown()
}

func TestResolveRejectedReleasesSeats(t *testing.T) {
	f := newTestEngine(t)
	hold, intent := f.holdWithIntent(t, "A1", "A2")

	require.NoError(t, f.engine.Resolve(context.Background(), intent.Reference, domain.OutcomeRejected))

	released, err := f.engine.GetHold(hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldReleased, released.Status)

	available, err := f.engine.ListAvailableSeats(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, available, 4)

	f.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestResolveConflictingOutcomes(t *testing.T) {
	f := newTestEngine(t)
	hold, intent := f.holdWithIntent(t, "A1")

	require.NoError(t, f.engine.Resolve(context.Background(), intent.Reference, domain.OutcomeRejected))

	err := f.engine.Resolve(context.Background(), intent.Reference, domain.OutcomeApproved)

	var conflict *domain.ReconciliationConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, intent.Reference, conflict.Reference)
	assert.Equal(t, domain.IntentRejected, conflict.Stored)
	assert.Equal(t, domain.OutcomeApproved, conflict.Outcome)

	// The stored verdict stands untouched.
	stored, err := f.engine.LookupByReference(intent.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRejected, stored.Status)

	released, err := f.engine.GetHold(hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldReleased, released.Status)
}

func TestResolveUnknownReference(t *testing.T) {
	f := newTestEngine(t)

	err := f.engine.Resolve(context.Background(), "no-such-reference", domain.OutcomeApproved)
	require.ErrorIs(t, err, domain.ErrUnknownReference)
}

func TestResolveUnknownOutcome(t *testing.T) {
	f := newTestEngine(t)

	err := f.engine.Resolve(context.Background(), "whatever", domain.Outcome("refunded"))
	require.ErrorIs(t, err, domain.ErrInvalidRequest)
}

func TestExpiryRejectsPendingIntent(t *testing.T) {
	f := newTestEngine(t)
	hold, intent := f.holdWithIntent(t, "A1", "A2")

	f.clock.Advance(11 * time.Minute)

	require.Equal(t, 1, f.engine.ExpireOverdue(context.Background()))

	expired, err := f.engine.GetHold(hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldExpired, expired.Status)

	stored, err := f.engine.LookupByReference(intent.Reference)
	require.NoError(t, err)
	assert.Equal(t, domain.IntentRejected, stored.Status)

	available, err := f.engine.ListAvailableSeats(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, available, 4)
}

func TestLateApprovalAfterExpiry(t *testing.T) {
	f := newTestEngine(t)
	hold, intent := f.holdWithIntent(t, "A1", "A2")

	// The payer stalls on the provider's page past the hold deadline.
	f.clock.Advance(700 * time.Second)
	require.Equal(t, 1, f.engine.ExpireOverdue(context.Background()))

	// Another customer takes one of the freed seats and pays for it.
	rival, rivalIntent := f.holdWithIntent(t, "A1")
	f.ledger.On("Append", mock.Anything, mock.Anything).Return(nil).Once()
	require.NoError(t, f.engine.Resolve(context.Background(), rivalIntent.Reference, domain.OutcomeApproved))

	// Now the stale approval finally arrives. It must not resurrect the
	// expired hold or touch the rival's reservation.
	err := f.engine.Resolve(context.Background(), intent.Reference, domain.OutcomeApproved)

	var late *domain.LateApprovalError
	require.ErrorAs(t, err, &late)
	assert.Equal(t, intent.Reference, late.Reference)
	assert.Equal(t, hold.ID, late.HoldID)
	assert.Equal(t, domain.HoldExpired, late.HoldStatus)
	assert.Equal(t, seatList("A1", "A2"), late.Seats)

	rivalHold, err := f.engine.GetHold(rival.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldCommitted, rivalHold.Status)

	f.ledger.AssertNumberOfCalls(t, "Append", 1)
	f.engine.Shutdown()
}

func TestLateApprovalAfterManualRelease(t *testing.T) {
	f := newTestEngine(t)
	hold, intent := f.holdWithIntent(t, "B1")

	require.NoError(t, f.engine.Release(context.Background(), hold.ID))

	err := f.engine.Resolve(context.Background(), intent.Reference, domain.OutcomeApproved)

	var late *domain.LateApprovalError
	require.ErrorAs(t, err, &late)
	assert.Equal(t, domain.HoldReleased, late.HoldStatus)

	f.ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestLedgerAppendIsRetried(t *testing.T) {
	f := newTestEngine(t, WithAppendBackoff(3, time.Millisecond))
	_, intent := f.holdWithIntent(t, "A1")

	f.ledger.On("Append", mock.Anything, mock.Anything).Return(fmt.Errorf("connection reset")).Twice()
	f.ledger.On("Append", mock.Anything, mock.Anything).Return(nil).Once()

	require.NoError(t, f.engine.Resolve(context.Background(), intent.Reference, domain.OutcomeApproved))

	f.ledger.AssertNumberOfCalls(t, "Append", 3)
	f.engine.Shutdown()
}

func TestLedgerAppendExhaustionKeepsCommit(t *testing.T) {
	f := newTestEngine(t, WithAppendBackoff(1, time.Millisecond))
	hold, intent := f.holdWithIntent(t, "A1")

	f.ledger.On("Append", mock.Anything, mock.Anything).Return(fmt.Errorf("ledger down"))

	// The seats stay Reserved even though the ledger never took the record.
	require.NoError(t, f.engine.Resolve(context.Background(), intent.Reference, domain.OutcomeApproved))

	committed, err := f.engine.GetHold(hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldCommitted, committed.Status)

	f.engine.Shutdown()
}

func TestReleaseIsIdempotent(t *testing.T) {
	f := newTestEngine(t)

	hold, err := f.engine.CreateHold(context.Background(), 1, seatList("A1"), "req-1")
	require.NoError(t, err)

	require.NoError(t, f.engine.Release(context.Background(), hold.ID))
	require.NoError(t, f.engine.Release(context.Background(), hold.ID))

	released, err := f.engine.GetHold(hold.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.HoldReleased, released.Status)
}

func TestSweeperStopsOnContextCancel(t *testing.T) {
	f := newTestEngine(t)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.engine.RunSweeper(ctx, time.Millisecond)
		close(done)
	}()

	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
