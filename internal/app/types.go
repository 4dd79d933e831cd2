package app

import (
	"time"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/shopspring/decimal"
)

type ErrorResponse struct {
	Message   string    `json:"message"`
	Seats     []string  `json:"seats,omitempty"`
	RequestId string    `json:"requestId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type ValidationError struct {
	Field string `json:"field"`
	Issue string `json:"issue"`
}

type ValidationErrorResponse struct {
	Message          string            `json:"message"`
	ValidationErrors []ValidationError `json:"validationErrors"`
	RequestId        string            `json:"requestId,omitempty"`
	Timestamp        time.Time         `json:"timestamp"`
}

type CreateHoldRequest struct {
	Seats        []string `json:"seats" validate:"required,min=1,max=10,dive,seat_label"`
	RequesterRef string   `json:"requesterRef" validate:"required,max=120"`
}

type HoldResponse struct {
	HoldId     string    `json:"holdId"`
	ShowtimeId int64     `json:"showtimeId"`
	Seats      []string  `json:"seats"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

type SeatMapResponse struct {
	ShowtimeId int64    `json:"showtimeId"`
	Available  []string `json:"available"`
}

type CheckoutRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type CheckoutResponse struct {
	Reference   string          `json:"reference"`
	RedirectUrl string          `json:"redirectUrl"`
	Amount      decimal.Decimal `json:"amount"`
}

type SalesRecordResponse struct {
	RecordId    string          `json:"recordId"`
	ShowtimeId  int64           `json:"showtimeId"`
	Seats       []string        `json:"seats"`
	Amount      decimal.Decimal `json:"amount"`
	CommittedAt time.Time       `json:"committedAt"`
}

type SalesResponse struct {
	Records []SalesRecordResponse `json:"records"`
	Total   decimal.Decimal       `json:"total"`
}

type HealthcheckResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Environment string `json:"environment"`
}

func toHoldResponse(hold domain.Hold) HoldResponse {
	return HoldResponse{
		HoldId:     hold.ID.String(),
		ShowtimeId: hold.ShowtimeID,
		Seats:      domain.SeatLabels(hold.Seats),
		Status:     string(hold.Status),
		CreatedAt:  hold.CreatedAt,
		ExpiresAt:  hold.ExpiresAt,
	}
}
