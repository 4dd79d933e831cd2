package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type IntentStatus string

const (
	IntentPending  IntentStatus = "pending"
	IntentApproved IntentStatus = "approved"
	IntentRejected IntentStatus = "rejected"
)

func (s IntentStatus) Terminal() bool {
	return s == IntentApproved || s == IntentRejected
}

// Outcome is what the payment provider reports asynchronously for a
// previously issued reference.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeRejected Outcome = "rejected"
)

// PaymentIntent links one hold to one external payment attempt. The
// reference is opaque to the provider and unique across all intents; it is
// the only correlation key the provider ever echoes back.
type PaymentIntent struct {
	ID         uuid.UUID
	HoldID     uuid.UUID
	Reference  string
	Amount     decimal.Decimal
	PayerEmail string
	Status     IntentStatus
	CreatedAt  time.Time
}
