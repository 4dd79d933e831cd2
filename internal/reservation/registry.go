package reservation

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/google/uuid"
)

type seatState struct {
	status domain.SeatStatus
	holdID uuid.UUID
}

// showtimeState is the arena for one showtime: every seat of its layout
// plus every hold ever placed against it. All mutations of a showtime's
// seats happen under its mutex, which makes the multi-seat hold, commit
// and release paths atomic with respect to each other.
type showtimeState struct {
	mu    sync.Mutex
	id    int64
	seats map[domain.SeatID]*seatState
	holds map[uuid.UUID]*domain.Hold
}

// Registry owns per-showtime seat inventory and the hold lifecycle. Seat
// state is authoritative in memory; a showtime is seeded lazily from the
// catalog's layout and the ledger's already-sold seats on first use.
type Registry struct {
	catalog domain.Catalog
	ledger  domain.SalesLedger

	mu        sync.Mutex
	showtimes map[int64]*showtimeState
	holdIndex map[uuid.UUID]*showtimeState
}

func NewRegistry(catalog domain.Catalog, ledger domain.SalesLedger) *Registry {
	return &Registry{
		catalog:   catalog,
		ledger:    ledger,
		showtimes: make(map[int64]*showtimeState),
		holdIndex: make(map[uuid.UUID]*showtimeState),
	}
}

func (r *Registry) stateFor(ctx context.Context, showtimeID int64) (*showtimeState, error) {
	r.mu.Lock()
	state, ok := r.showtimes[showtimeID]
	r.mu.Unlock()

	if ok {
		return state, nil
	}

	loaded, err := r.loadShowtime(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// A concurrent caller may have seeded the same showtime while we were
	// reading; the first insert wins.
	if state, ok := r.showtimes[showtimeID]; ok {
		return state, nil
	}

	r.showtimes[showtimeID] = loaded

	return loaded, nil
}

func (r *Registry) loadShowtime(ctx context.Context, showtimeID int64) (*showtimeState, error) {
	layout, err := r.catalog.SeatLayout(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load seat layout for showtime %d: %w", showtimeID, err)
	}

	if len(layout) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	sold, err := r.ledger.ReservedSeats(ctx, showtimeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sold seats for showtime %d: %w", showtimeID, err)
	}

	state := &showtimeState{
		id:    showtimeID,
		seats: make(map[domain.SeatID]*seatState, len(layout)),
		holds: make(map[uuid.UUID]*domain.Hold),
	}

	for _, id := range layout {
		state.seats[id] = &seatState{status: domain.SeatFree}
	}

	for _, id := range sold {
		if seat, ok := state.seats[id]; ok {
			seat.status = domain.SeatReserved
		}
	}

	return state, nil
}

// TryHold atomically claims the full seat set: either every requested seat
// is Free and becomes Held under a new Active hold, or nothing changes and
// the conflicting seats are reported. The first caller to reach the
// showtime's lock wins; for any contested seat all later attempts fail
// until that seat is released or its hold expires.
func (r *Registry) TryHold(
	ctx context.Context,
	showtimeID int64,
	seats []domain.SeatID,
	requesterRef string,
	ttl time.Duration,
	now time.Time) (domain.Hold, error) {

	state, err := r.stateFor(ctx, showtimeID)
	if err != nil {
		return domain.Hold{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	var unknown []domain.SeatID
	for _, id := range seats {
		if _, ok := state.seats[id]; !ok {
			unknown = append(unknown, id)
		}
	}

	if len(unknown) > 0 {
		return domain.Hold{}, fmt.Errorf("%w: seats %s do not belong to showtime %d",
			domain.ErrInvalidRequest, strings.Join(domain.SeatLabels(unknown), ", "), showtimeID)
	}

	var conflicts []domain.SeatID
	for _, id := range seats {
		if state.seats[id].status != domain.SeatFree {
			conflicts = append(conflicts, id)
		}
	}

	if len(conflicts) > 0 {
		domain.SortSeatIDs(conflicts)
		return domain.Hold{}, &domain.SeatUnavailableError{ShowtimeID: showtimeID, Seats: conflicts}
	}

	held := make([]domain.SeatID, len(seats))
	copy(held, seats)
	domain.SortSeatIDs(held)

	hold := &domain.Hold{
		ID:           uuid.New(),
		ShowtimeID:   showtimeID,
		Seats:        held,
		RequesterRef: requesterRef,
		Status:       domain.HoldActive,
		CreatedAt:    now,
		ExpiresAt:    now.Add(ttl),
	}

	for _, id := range held {
		seat := state.seats[id]
		seat.status = domain.SeatHeld
		seat.holdID = hold.ID
	}

	state.holds[hold.ID] = hold

	r.mu.Lock()
	r.holdIndex[hold.ID] = state
	r.mu.Unlock()

	return copyHold(hold), nil
}

// Commit transitions every seat of an Active hold to Reserved. Once a hold
// left the Active state the commit fails, so a commit racing the expiry
// sweep is decided by whichever acquires the showtime lock first.
func (r *Registry) Commit(holdID uuid.UUID) error {
	state, err := r.stateForHold(holdID)
	if err != nil {
		return err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	hold := state.holds[holdID]
	if hold.Status != domain.HoldActive {
		return fmt.Errorf("%w: hold %s is %s", domain.ErrInvalidHoldState, holdID, hold.Status)
	}

	for _, id := range hold.Seats {
		state.seats[id].status = domain.SeatReserved
	}

	hold.Status = domain.HoldCommitted

	return nil
}

// Release frees the seats of an Active hold and marks it Released. Calling
// it on a hold that already reached a terminal state is a no-op; the
// returned flag reports whether this call performed the transition.
func (r *Registry) Release(holdID uuid.UUID) (domain.Hold, bool, error) {
	state, err := r.stateForHold(holdID)
	if err != nil {
		return domain.Hold{}, false, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	hold := state.holds[holdID]
	if hold.Status != domain.HoldActive {
		return copyHold(hold), false, nil
	}

	r.freeSeats(state, hold)
	hold.Status = domain.HoldReleased

	return copyHold(hold), true, nil
}

// ExpireOverdue releases every Active hold whose deadline has passed and
// marks it Expired. It is safe to run concurrently with live traffic: each
// hold is re-checked under its showtime lock, so a hold committed while
// the sweep is underway is left alone.
func (r *Registry) ExpireOverdue(now time.Time) []domain.Hold {
	r.mu.Lock()
	states := make([]*showtimeState, 0, len(r.showtimes))
	for _, state := range r.showtimes {
		states = append(states, state)
	}
	r.mu.Unlock()

	var expired []domain.Hold

	for _, state := range states {
		state.mu.Lock()
		for _, hold := range state.holds {
			if hold.Status != domain.HoldActive || hold.ExpiresAt.After(now) {
				continue
			}

			r.freeSeats(state, hold)
			hold.Status = domain.HoldExpired
			expired = append(expired, copyHold(hold))
		}
		state.mu.Unlock()
	}

	return expired
}

// freeSeats returns the hold's seats to Free. Caller must hold state.mu.
func (r *Registry) freeSeats(state *showtimeState, hold *domain.Hold) {
	for _, id := range hold.Seats {
		seat := state.seats[id]
		seat.status = domain.SeatFree
		seat.holdID = uuid.Nil
	}
}

// ListAvailable returns a fresh snapshot of the Free seats of a showtime,
// ordered by row and number.
func (r *Registry) ListAvailable(ctx context.Context, showtimeID int64) ([]domain.Seat, error) {
	state, err := r.stateFor(ctx, showtimeID)
	if err != nil {
		return nil, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	ids := make([]domain.SeatID, 0, len(state.seats))
	for id, seat := range state.seats {
		if seat.status == domain.SeatFree {
			ids = append(ids, id)
		}
	}

	domain.SortSeatIDs(ids)

	seats := make([]domain.Seat, len(ids))
	for i, id := range ids {
		seats[i] = domain.Seat{ID: id, Status: domain.SeatFree}
	}

	return seats, nil
}

// HoldByID returns a snapshot of a hold.
func (r *Registry) HoldByID(holdID uuid.UUID) (domain.Hold, error) {
	state, err := r.stateForHold(holdID)
	if err != nil {
		return domain.Hold{}, err
	}

	state.mu.Lock()
	defer state.mu.Unlock()

	return copyHold(state.holds[holdID]), nil
}

func (r *Registry) stateForHold(holdID uuid.UUID) (*showtimeState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	state, ok := r.holdIndex[holdID]
	if !ok {
		return nil, fmt.Errorf("hold %s: %w", holdID, domain.ErrRecordNotFound)
	}

	return state, nil
}

func copyHold(hold *domain.Hold) domain.Hold {
	copied := *hold
	copied.Seats = make([]domain.SeatID, len(hold.Seats))
	copy(copied.Seats, hold.Seats)

	return copied
}
