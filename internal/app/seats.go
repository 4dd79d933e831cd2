package app

import (
	"errors"
	"net/http"

	"github.com/cinearenas/booking-engine/internal/domain"
)

func (app *Application) GetAvailableSeatsHandler(w http.ResponseWriter, r *http.Request) {
	showtimeID, err := app.readShowtimeID(r)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	seats, err := app.engine.ListAvailableSeats(r.Context(), showtimeID)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			app.notFoundResponse(w, r)
			return
		}

		app.serverErrorResponse(w, r, err)
		return
	}

	available := make([]string, len(seats))
	for i, seat := range seats {
		available[i] = seat.ID.String()
	}

	resp := SeatMapResponse{
		ShowtimeId: showtimeID,
		Available:  available,
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
