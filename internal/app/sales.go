package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/shopspring/decimal"
)

// GetSalesHandler reports the committed reservations within a date range,
// ordered by commit time. Defaults to the last 30 days.
func (app *Application) GetSalesHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	from, err := app.readTimeQuery(r, "from", now.AddDate(0, 0, -30))
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	to, err := app.readTimeQuery(r, "to", now)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	if to.Before(from) {
		app.badRequestResponse(w, r, errors.New("'to' must not precede 'from'"))
		return
	}

	records, err := app.ledger.Query(r.Context(), from, to)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	resp := SalesResponse{
		Records: make([]SalesRecordResponse, len(records)),
		Total:   decimal.Zero,
	}

	for i, record := range records {
		resp.Records[i] = SalesRecordResponse{
			RecordId:    record.ID.String(),
			ShowtimeId:  record.ShowtimeID,
			Seats:       domain.SeatLabels(record.Seats),
			Amount:      record.Amount,
			CommittedAt: record.CommittedAt,
		}
		resp.Total = resp.Total.Add(record.Amount)
	}

	err = app.writeJSON(w, http.StatusOK, resp, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *Application) readTimeQuery(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback, nil
	}

	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}

	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}

	return time.Time{}, errors.New("'" + key + "' must be an RFC 3339 timestamp or a YYYY-MM-DD date")
}
