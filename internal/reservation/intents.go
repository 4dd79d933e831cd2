package reservation

import (
	"fmt"
	"sync"
	"time"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// trackedIntent serializes all resolution work for one intent. Duplicate
// provider deliveries queue up on the mutex; only the first effects the
// Pending to terminal transition, the rest observe the terminal state.
type trackedIntent struct {
	mu     sync.Mutex
	intent domain.PaymentIntent

	// providerResolved records whether the terminal status came from a
	// provider verdict, as opposed to a local hold expiry or release. It
	// separates late approvals from genuine reconciliation conflicts.
	providerResolved bool
}

// intentTracker is the locally-owned, authoritative record of payment
// attempts, keyed by the opaque reference the provider echoes back. It
// replaces any reliance on provider-side metadata.
type intentTracker struct {
	mu     sync.RWMutex
	byRef  map[string]*trackedIntent
	byHold map[uuid.UUID]*trackedIntent
}

func newIntentTracker() *intentTracker {
	return &intentTracker{
		byRef:  make(map[string]*trackedIntent),
		byHold: make(map[uuid.UUID]*trackedIntent),
	}
}

// open creates the single Pending intent for a hold. A second intent for
// the same hold fails with ErrHoldNotActive.
func (t *intentTracker) open(holdID uuid.UUID, amount decimal.Decimal, payerEmail string, now time.Time) (domain.PaymentIntent, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byHold[holdID]; ok {
		return domain.PaymentIntent{}, fmt.Errorf("%w: hold %s already has an intent", domain.ErrHoldNotActive, holdID)
	}

	intent := domain.PaymentIntent{
		ID:         uuid.New(),
		HoldID:     holdID,
		Reference:  uuid.NewString(),
		Amount:     amount,
		PayerEmail: payerEmail,
		Status:     domain.IntentPending,
		CreatedAt:  now,
	}

	tracked := &trackedIntent{intent: intent}
	t.byRef[intent.Reference] = tracked
	t.byHold[holdID] = tracked

	return intent, nil
}

func (t *intentTracker) byReference(reference string) (*trackedIntent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tracked, ok := t.byRef[reference]

	return tracked, ok
}

func (t *intentTracker) byHoldID(holdID uuid.UUID) (*trackedIntent, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	tracked, ok := t.byHold[holdID]

	return tracked, ok
}

// rejectIfPending drives the hold-expiry (or early-release) leg of the
// intent state machine. It reports whether this call made the transition.
func (t *intentTracker) rejectIfPending(holdID uuid.UUID) bool {
	tracked, ok := t.byHoldID(holdID)
	if !ok {
		return false
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	if tracked.intent.Status != domain.IntentPending {
		return false
	}

	tracked.intent.Status = domain.IntentRejected

	return true
}
