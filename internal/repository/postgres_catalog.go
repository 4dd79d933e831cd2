package repository

import (
	"context"
	"errors"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresCatalog is the read-only showtime/seat-layout lookup. Catalog
// writes (scheduling showtimes, uploading movies) belong to the admin
// tooling, not to this engine.
type PostgresCatalog struct {
	db *pgxpool.Pool
}

func NewPostgresCatalog(db *pgxpool.Pool) *PostgresCatalog {
	return &PostgresCatalog{
		db: db,
	}
}

func (p *PostgresCatalog) GetShowtime(ctx context.Context, showtimeID int64) (*domain.Showtime, error) {
	query := `
		SELECT s.id, m.title, s.hall_name, s.format, s.starts_at, s.seat_price
		FROM showtimes s
		JOIN movies m ON s.movie_id = m.id
		WHERE s.id = $1
	`

	var show domain.Showtime

	err := p.db.QueryRow(ctx, query, showtimeID).Scan(
		&show.ID,
		&show.MovieTitle,
		&show.HallName,
		&show.Format,
		&show.StartsAt,
		&show.SeatPrice,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, err
	}

	return &show, nil
}

func (p *PostgresCatalog) SeatLayout(ctx context.Context, showtimeID int64) ([]domain.SeatID, error) {
	query := `
		SELECT seat_row, seat_number
		FROM seats
		WHERE showtime_id = $1
		ORDER BY seat_row, seat_number
	`

	rows, err := p.db.Query(ctx, query, showtimeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	seats := make([]domain.SeatID, 0)

	for rows.Next() {
		var seat domain.SeatID

		err = rows.Scan(&seat.Row, &seat.Number)
		if err != nil {
			return nil, err
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return seats, nil
}
