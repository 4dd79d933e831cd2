package domain

import (
	"time"

	"github.com/google/uuid"
)

type HoldStatus string

const (
	HoldActive    HoldStatus = "active"
	HoldCommitted HoldStatus = "committed"
	HoldReleased  HoldStatus = "released"
	HoldExpired   HoldStatus = "expired"
)

// Terminal reports whether the status is one of the three end states. A
// hold transitions out of Active exactly once and is never reused.
func (s HoldStatus) Terminal() bool {
	return s == HoldCommitted || s == HoldReleased || s == HoldExpired
}

// Hold is a temporary exclusive claim on a set of seats of one showtime,
// pending payment. A seat belongs to at most one Active hold at a time.
type Hold struct {
	ID           uuid.UUID
	ShowtimeID   int64
	Seats        []SeatID
	RequesterRef string
	Status       HoldStatus
	CreatedAt    time.Time
	ExpiresAt    time.Time
}
