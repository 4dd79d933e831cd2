package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Showtime carries the catalog metadata the engine needs to validate hold
// requests and to describe a reservation to the payer. The catalog is the
// single source of truth for movie and hall details; the engine never
// stores them alongside payment state.
type Showtime struct {
	ID         int64
	MovieTitle string
	HallName   string
	Format     string
	StartsAt   time.Time
	SeatPrice  decimal.Decimal
}

// Catalog is the read-only showtime lookup collaborator.
type Catalog interface {
	GetShowtime(ctx context.Context, showtimeID int64) (*Showtime, error)
	SeatLayout(ctx context.Context, showtimeID int64) ([]SeatID, error)
}
