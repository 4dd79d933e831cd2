package app

import (
	"errors"
	"net/http"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// CreateCheckoutSessionHandler opens the payment intent for an Active hold
// and hands the payer off to the provider's hosted checkout. The hold's
// amount is a flat per-seat price taken from the showtime.
func (app *Application) CreateCheckoutSessionHandler(w http.ResponseWriter, r *http.Request) {
	holdID, err := app.readHoldID(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input CheckoutRequest

	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.validator.Struct(input)
	if err != nil {
		app.failedValidationResponse(w, r, err)
		return
	}

	hold, err := app.engine.GetHold(holdID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	show, err := app.catalog.GetShowtime(r.Context(), hold.ShowtimeID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	amount := show.SeatPrice.Mul(decimal.NewFromInt(int64(len(hold.Seats))))

	intent, err := app.engine.OpenIntent(r.Context(), holdID, amount, input.Email)
	if err != nil {
		if errors.Is(err, domain.ErrHoldNotActive) {
			app.editConflictResponse(w, r, err)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	// Provider/network failures are surfaced as-is; the caller retries with
	// backoff, the engine does not.
	checkoutSession, err := app.provider.CreateCheckoutSession(r.Context(), intent, *show, hold.Seats)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := CheckoutResponse{
		Reference:   checkoutSession.Reference,
		RedirectUrl: checkoutSession.RedirectURL,
		Amount:      intent.Amount,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
