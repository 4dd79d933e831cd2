package reservation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultHoldTTL       = 10 * time.Minute
	DefaultSweepInterval = time.Minute

	defaultAppendRetries = 3
	defaultAppendBackoff = 100 * time.Millisecond
	defaultNotifyTimeout = 10 * time.Second
)

// Engine coordinates the seat registry, the payment intent tracker and the
// sales ledger. All collaborators are injected so tests can substitute
// fakes; the engine never reaches for process-wide state.
type Engine struct {
	registry *Registry
	intents  *intentTracker
	catalog  domain.Catalog
	ledger   domain.SalesLedger
	notifier domain.Notifier
	logger   *slog.Logger
	metrics  *engineMetrics

	holdTTL       time.Duration
	appendRetries int
	appendBackoff time.Duration
	notifyTimeout time.Duration
	now           func() time.Time

	wg sync.WaitGroup
}

type Option func(*Engine)

// WithHoldTTL overrides the default time-to-live stamped on new holds.
func WithHoldTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.holdTTL = ttl
		}
	}
}

// WithClock substitutes the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithAppendBackoff tunes the ledger append retry policy.
func WithAppendBackoff(retries int, backoff time.Duration) Option {
	return func(e *Engine) {
		e.appendRetries = retries
		e.appendBackoff = backoff
	}
}

func New(catalog domain.Catalog, ledger domain.SalesLedger, notifier domain.Notifier, logger *slog.Logger, opts ...Option) *Engine {
	engine := &Engine{
		registry:      NewRegistry(catalog, ledger),
		intents:       newIntentTracker(),
		catalog:       catalog,
		ledger:        ledger,
		notifier:      notifier,
		logger:        logger,
		metrics:       newEngineMetrics(),
		holdTTL:       DefaultHoldTTL,
		appendRetries: defaultAppendRetries,
		appendBackoff: defaultAppendBackoff,
		notifyTimeout: defaultNotifyTimeout,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(engine)
	}

	return engine
}

func (e *Engine) HoldTTL() time.Duration {
	return e.holdTTL
}

// CreateHold places a time-bounded exclusive claim on the requested seats.
// The seat set must be non-empty, free of duplicates, and belong to the
// showtime's layout.
func (e *Engine) CreateHold(ctx context.Context, showtimeID int64, seats []domain.SeatID, requesterRef string) (domain.Hold, error) {
	if showtimeID < 1 {
		return domain.Hold{}, fmt.Errorf("%w: showtime id must be positive", domain.ErrInvalidRequest)
	}

	if len(seats) == 0 {
		return domain.Hold{}, fmt.Errorf("%w: no seats selected", domain.ErrInvalidRequest)
	}

	seen := make(map[domain.SeatID]bool, len(seats))
	for _, id := range seats {
		if seen[id] {
			return domain.Hold{}, fmt.Errorf("%w: duplicate seat %s", domain.ErrInvalidRequest, id)
		}
		seen[id] = true
	}

	hold, err := e.registry.TryHold(ctx, showtimeID, seats, requesterRef, e.holdTTL, e.now())
	if err != nil {
		var unavailable *domain.SeatUnavailableError
		if errors.As(err, &unavailable) {
			e.metrics.add(ctx, e.metrics.seatConflicts, 1)
		}
		return domain.Hold{}, err
	}

	e.metrics.add(ctx, e.metrics.holdsCreated, 1)
	e.logger.Info("hold created",
		"hold_id", hold.ID,
		"showtime_id", showtimeID,
		"seats", domain.SeatLabels(hold.Seats),
		"expires_at", hold.ExpiresAt,
	)

	return hold, nil
}

// ListAvailableSeats returns the currently Free seats of a showtime. Each
// call is a fresh read of the registry.
func (e *Engine) ListAvailableSeats(ctx context.Context, showtimeID int64) ([]domain.Seat, error) {
	return e.registry.ListAvailable(ctx, showtimeID)
}

func (e *Engine) GetHold(holdID uuid.UUID) (domain.Hold, error) {
	return e.registry.HoldByID(holdID)
}

// Release frees the seats of a hold ahead of its deadline. It is safe to
// race against an in-flight Resolve: whoever wins the showtime lock
// decides, and the loser observes the terminal state. Releasing a hold
// that is already terminal is a no-op.
func (e *Engine) Release(ctx context.Context, holdID uuid.UUID) error {
	hold, released, err := e.registry.Release(holdID)
	if err != nil {
		return err
	}

	if !released {
		return nil
	}

	e.intents.rejectIfPending(holdID)
	e.logger.Info("hold released", "hold_id", holdID, "showtime_id", hold.ShowtimeID)

	return nil
}

// OpenIntent creates the single Pending payment intent for an Active hold
// and issues the opaque reference the provider must echo back.
func (e *Engine) OpenIntent(ctx context.Context, holdID uuid.UUID, amount decimal.Decimal, payerEmail string) (domain.PaymentIntent, error) {
	if !amount.IsPositive() {
		return domain.PaymentIntent{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidRequest)
	}

	hold, err := e.registry.HoldByID(holdID)
	if err != nil {
		return domain.PaymentIntent{}, err
	}

	if hold.Status != domain.HoldActive {
		return domain.PaymentIntent{}, fmt.Errorf("%w: hold %s is %s", domain.ErrHoldNotActive, holdID, hold.Status)
	}

	intent, err := e.intents.open(holdID, amount.Round(2), payerEmail, e.now())
	if err != nil {
		return domain.PaymentIntent{}, err
	}

	e.logger.Info("payment intent opened",
		"intent_id", intent.ID,
		"hold_id", holdID,
		"reference", intent.Reference,
		"amount", intent.Amount,
	)

	return intent, nil
}

// LookupByReference returns a snapshot of the intent issued under the
// given provider reference.
func (e *Engine) LookupByReference(reference string) (domain.PaymentIntent, error) {
	tracked, ok := e.intents.byReference(reference)
	if !ok {
		return domain.PaymentIntent{}, fmt.Errorf("%w: %q", domain.ErrUnknownReference, reference)
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	return tracked.intent, nil
}

// Resolve consumes one asynchronous payment outcome. The Pending to
// terminal transition happens at most once per intent, under the intent's
// lock, so concurrent duplicate deliveries are harmless: the first one
// effects the transition and the rest observe it.
func (e *Engine) Resolve(ctx context.Context, reference string, outcome domain.Outcome) error {
	if outcome != domain.OutcomeApproved && outcome != domain.OutcomeRejected {
		return fmt.Errorf("%w: unknown outcome %q", domain.ErrInvalidRequest, outcome)
	}

	tracked, ok := e.intents.byReference(reference)
	if !ok {
		// Provider/local desync. Logged here, surfaced to the caller, never
		// retried: retrying cannot make an unknown reference known.
		e.logger.Error("payment outcome for unknown reference", "reference", reference, "outcome", outcome)
		return fmt.Errorf("%w: %q", domain.ErrUnknownReference, reference)
	}

	tracked.mu.Lock()
	defer tracked.mu.Unlock()

	intent := &tracked.intent

	if intent.Status.Terminal() {
		return e.resolveTerminal(ctx, tracked, outcome)
	}

	switch outcome {
	case domain.OutcomeRejected:
		intent.Status = domain.IntentRejected
		tracked.providerResolved = true

		if _, _, err := e.registry.Release(intent.HoldID); err != nil {
			e.logger.Error("failed to release hold after rejection", "hold_id", intent.HoldID, "error", err)
		}

		e.metrics.add(ctx, e.metrics.rejections, 1)
		e.logger.Info("payment rejected, hold released", "reference", reference, "hold_id", intent.HoldID)

		return nil

	default: // approved
		return e.resolveApproved(ctx, tracked)
	}
}

// resolveTerminal handles deliveries for intents that already reached a
// terminal state. Caller must hold tracked.mu.
func (e *Engine) resolveTerminal(ctx context.Context, tracked *trackedIntent, outcome domain.Outcome) error {
	intent := &tracked.intent

	if intentStatusMatches(intent.Status, outcome) {
		e.logger.Debug("duplicate payment outcome ignored", "reference", intent.Reference, "outcome", outcome)
		return nil
	}

	// An approval for an intent that was rejected locally (hold expired or
	// was released, not a provider verdict) means someone paid for seats we
	// no longer hold. Flagged for manual reconciliation, never re-committed.
	if outcome == domain.OutcomeApproved && intent.Status == domain.IntentRejected && !tracked.providerResolved {
		return e.lateApproval(ctx, intent)
	}

	e.metrics.add(ctx, e.metrics.conflicts, 1)
	err := &domain.ReconciliationConflictError{
		Reference: intent.Reference,
		Stored:    intent.Status,
		Outcome:   outcome,
	}
	e.logger.Error("reconciliation conflict, manual review required", "reference", intent.Reference, "error", err)

	return err
}

// resolveApproved drives a Pending intent through the approval leg:
// commit the hold, append the sales record, emit the confirmation. Caller
// must hold tracked.mu.
func (e *Engine) resolveApproved(ctx context.Context, tracked *trackedIntent) error {
	intent := &tracked.intent

	err := e.registry.Commit(intent.HoldID)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidHoldState) {
			// The hold left Active before the approval arrived. Record the
			// rejection so the intent is terminal, then flag the paid order.
			intent.Status = domain.IntentRejected
			return e.lateApproval(ctx, intent)
		}
		return err
	}

	intent.Status = domain.IntentApproved
	tracked.providerResolved = true

	hold, err := e.registry.HoldByID(intent.HoldID)
	if err != nil {
		return err
	}

	record := domain.SalesRecord{
		ID:          intent.ID,
		ShowtimeID:  hold.ShowtimeID,
		Seats:       hold.Seats,
		Amount:      intent.Amount,
		CommittedAt: e.now().UTC(),
	}

	// The seats are irrevocably Reserved at this point; the ledger entry is
	// the recoverable side effect and must not undo the commit.
	if err := e.appendWithRetry(ctx, record); err != nil {
		e.metrics.add(ctx, e.metrics.ledgerFailures, 1)
		e.logger.Error("sales ledger append failed after commit, manual backfill required",
			"record_id", record.ID,
			"showtime_id", record.ShowtimeID,
			"seats", domain.SeatLabels(record.Seats),
			"error", err,
		)
	}

	e.metrics.add(ctx, e.metrics.commits, 1)
	e.logger.Info("payment approved, seats reserved",
		"reference", intent.Reference,
		"hold_id", hold.ID,
		"showtime_id", hold.ShowtimeID,
		"seats", domain.SeatLabels(hold.Seats),
	)

	e.notifyConfirmed(*intent, hold)

	return nil
}

func (e *Engine) lateApproval(ctx context.Context, intent *domain.PaymentIntent) error {
	lateErr := &domain.LateApprovalError{
		Reference: intent.Reference,
		HoldID:    intent.HoldID,
	}

	if hold, err := e.registry.HoldByID(intent.HoldID); err == nil {
		lateErr.HoldStatus = hold.Status
		lateErr.ShowtimeID = hold.ShowtimeID
		lateErr.Seats = hold.Seats
	}

	e.metrics.add(ctx, e.metrics.lateApprovals, 1)
	e.logger.Error("late approval, manual reconciliation required", "reference", intent.Reference, "error", lateErr)

	return lateErr
}

func intentStatusMatches(status domain.IntentStatus, outcome domain.Outcome) bool {
	switch outcome {
	case domain.OutcomeApproved:
		return status == domain.IntentApproved
	case domain.OutcomeRejected:
		return status == domain.IntentRejected
	default:
		return false
	}
}

func (e *Engine) appendWithRetry(ctx context.Context, record domain.SalesRecord) error {
	var err error
	backoff := e.appendBackoff

	for attempt := 0; attempt <= e.appendRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return errors.Join(err, ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}

		if err = e.ledger.Append(ctx, record); err == nil {
			return nil
		}

		e.logger.Warn("sales ledger append failed, retrying", "record_id", record.ID, "attempt", attempt+1, "error", err)
	}

	return err
}

// ExpireOverdue releases every Active hold whose deadline has passed and
// rejects its pending intent, if any. Idempotent: a second run over the
// same holds does nothing.
func (e *Engine) ExpireOverdue(ctx context.Context) int {
	expired := e.registry.ExpireOverdue(e.now())

	for _, hold := range expired {
		e.intents.rejectIfPending(hold.ID)
		e.logger.Info("hold expired, seats freed",
			"hold_id", hold.ID,
			"showtime_id", hold.ShowtimeID,
			"seats", domain.SeatLabels(hold.Seats),
		)
	}

	if len(expired) > 0 {
		e.metrics.add(ctx, e.metrics.holdsExpired, int64(len(expired)))
	}

	return len(expired)
}

// RunSweeper periodically expires overdue holds until ctx is cancelled.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.ExpireOverdue(ctx)
		}
	}
}

func (e *Engine) notifyConfirmed(intent domain.PaymentIntent, hold domain.Hold) {
	if e.notifier == nil || intent.PayerEmail == "" {
		return
	}

	e.wg.Add(1)

	go func() {
		defer e.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				e.logger.Error("panic in confirmation notifier", "error", fmt.Sprintf("%v", r))
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), e.notifyTimeout)
		defer cancel()

		confirmation := domain.ReservationConfirmation{
			Recipient: intent.PayerEmail,
			Seats:     hold.Seats,
			Amount:    intent.Amount,
		}

		show, err := e.catalog.GetShowtime(ctx, hold.ShowtimeID)
		if err != nil {
			e.logger.Warn("failed to load showtime for confirmation", "showtime_id", hold.ShowtimeID, "error", err)
		} else {
			confirmation.MovieTitle = show.MovieTitle
			confirmation.HallName = show.HallName
			confirmation.Format = show.Format
			confirmation.StartsAt = show.StartsAt
		}

		if err := e.notifier.ReservationConfirmed(ctx, confirmation); err != nil {
			e.logger.Error("failed to send reservation confirmation", "recipient", intent.PayerEmail, "error", err)
		}
	}()
}

// Shutdown waits for in-flight background notifications to finish.
func (e *Engine) Shutdown() {
	e.wg.Wait()
}
