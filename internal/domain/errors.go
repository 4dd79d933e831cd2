package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInvalidHoldState = errors.New("operation not allowed in the hold's current state")
	ErrHoldNotActive    = errors.New("hold is not active or already has a payment intent")
	ErrUnknownReference = errors.New("no payment intent found for provider reference")
)

// SeatUnavailableError names the exact seats that could not be claimed so
// the caller can re-select. The requested set is left untouched.
type SeatUnavailableError struct {
	ShowtimeID int64
	Seats      []SeatID
}

func (e *SeatUnavailableError) Error() string {
	return fmt.Sprintf("seats unavailable for showtime %d: %s",
		e.ShowtimeID, strings.Join(SeatLabels(e.Seats), ", "))
}

// ReconciliationConflictError signals that a terminal intent received a
// contradicting outcome. It is never auto-resolved; an operator has to
// compare the provider's records against the ledger.
type ReconciliationConflictError struct {
	Reference string
	Stored    IntentStatus
	Outcome   Outcome
}

func (e *ReconciliationConflictError) Error() string {
	return fmt.Sprintf("reconciliation conflict for reference %s: intent is %s, provider reports %s",
		e.Reference, e.Stored, e.Outcome)
}

// LateApprovalError signals an approved outcome for a hold that already
// left the Active state. The seats may have been re-sold in the meantime,
// so the engine refuses to re-commit and leaves the case to an operator.
type LateApprovalError struct {
	Reference  string
	HoldID     uuid.UUID
	HoldStatus HoldStatus
	ShowtimeID int64
	Seats      []SeatID
}

func (e *LateApprovalError) Error() string {
	return fmt.Sprintf("late approval for reference %s: hold %s is %s, seats %s not re-reserved",
		e.Reference, e.HoldID, e.HoldStatus, strings.Join(SeatLabels(e.Seats), ", "))
}
