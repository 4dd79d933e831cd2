package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ReservationConfirmation is emitted once per sales record. Delivery
// failure never rolls back the commit.
type ReservationConfirmation struct {
	Recipient  string
	MovieTitle string
	HallName   string
	Format     string
	StartsAt   time.Time
	Seats      []SeatID
	Amount     decimal.Decimal
}

type Notifier interface {
	ReservationConfirmed(ctx context.Context, confirmation ReservationConfirmation) error
}
