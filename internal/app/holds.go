package app

import (
	"errors"
	"net/http"

	"github.com/cinearenas/booking-engine/internal/domain"
)

func (app *Application) CreateHoldHandler(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readShowtimeID(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input CreateHoldRequest

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

	seats := make([]domain.SeatID, 0, len(input.Seats))
	for _, label := range input.Seats {
		seat, err := domain.ParseSeatID(label)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		seats = append(seats, seat)
	}

	hold, err := app.engine.CreateHold(r.Context(), showtimeID, seats, input.RequesterRef)
	if err != nil {
		var unavailable *domain.SeatUnavailableError

		switch {
		case errors.As(err, &unavailable):
			app.seatConflictResponse(w, r, unavailable)
		case errors.Is(err, domain.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		case errors.Is(err, domain.ErrInvalidRequest):
			app.badRequestResponse(w, r, err)
		default:
			app.serverErrorResponse(w, r, err)
		}

		return
	}

	err = app.writeJSON(w, http.StatusCreated, toHoldResponse(hold), nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) ReleaseHoldHandler(w http.ResponseWriter, r *http.Request) {
	holdID, err := app.readHoldID(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	err = app.engine.Release(r.Context(), holdID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
