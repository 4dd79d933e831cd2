package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SalesRecord is the immutable proof of a completed, paid reservation.
// Exactly one record exists per approved payment intent; it shares the
// intent's id so that replayed appends are detectable.
type SalesRecord struct {
	ID          uuid.UUID
	ShowtimeID  int64
	Seats       []SeatID
	Amount      decimal.Decimal
	CommittedAt time.Time
}

// SalesLedger is the append-only record of committed reservations. Append
// must be idempotent on the record id; no update or delete is exposed.
type SalesLedger interface {
	Append(ctx context.Context, record SalesRecord) error
	Query(ctx context.Context, from, to time.Time) ([]SalesRecord, error)
	ReservedSeats(ctx context.Context, showtimeID int64) ([]SeatID, error)
}
