package repository

import (
	"context"
	"errors"
	"time"

	"github.com/cinearenas/booking-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSalesLedger persists committed reservations. Records are only
// ever inserted; there is no update or delete path.
type PostgresSalesLedger struct {
	db *pgxpool.Pool
}

func NewPostgresSalesLedger(db *pgxpool.Pool) *PostgresSalesLedger {
	return &PostgresSalesLedger{
		db: db,
	}
}

// Append inserts the record and its seats in one transaction. A replayed
// append of the same record id is treated as success, which keeps the
// engine's retry loop idempotent.
func (p *PostgresSalesLedger) Append(ctx context.Context, record domain.SalesRecord) error {
	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO sales_records (id, showtime_id, amount, committed_at)
			VALUES ($1, $2, $3, $4)
		`

		_, err := tx.Exec(ctx, query, record.ID, record.ShowtimeID, record.Amount, record.CommittedAt)
		if err != nil {
			return err
		}

		rows := make([][]any, 0, len(record.Seats))
		for _, seat := range record.Seats {
			rows = append(rows, []any{
				record.ID,
				record.ShowtimeID,
				seat.Row,
				seat.Number,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"sales_record_seats"},
			[]string{"record_id", "showtime_id", "seat_row", "seat_number"},
			pgx.CopyFromRows(rows),
		)

		return err
	})

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return nil
		}

		return err
	}

	return nil
}

// Query returns the records committed within [from, to], ordered by
// committed_at.
func (p *PostgresSalesLedger) Query(ctx context.Context, from, to time.Time) ([]domain.SalesRecord, error) {
	query := `
		SELECT id, showtime_id, amount, committed_at
		FROM sales_records
		WHERE committed_at >= $1 AND committed_at <= $2
		ORDER BY committed_at
	`

	rows, err := p.db.Query(ctx, query, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]domain.SalesRecord, 0)
	index := make(map[uuid.UUID]int)

	for rows.Next() {
		var record domain.SalesRecord

		err = rows.Scan(&record.ID, &record.ShowtimeID, &record.Amount, &record.CommittedAt)
		if err != nil {
			return nil, err
		}

		index[record.ID] = len(records)
		records = append(records, record)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return records, nil
	}

	ids := make([]uuid.UUID, 0, len(records))
	for _, record := range records {
		ids = append(ids, record.ID)
	}

	err = p.attachSeats(ctx, ids, func(recordID uuid.UUID, seat domain.SeatID) {
		i := index[recordID]
		records[i].Seats = append(records[i].Seats, seat)
	})
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (p *PostgresSalesLedger) attachSeats(ctx context.Context, ids []uuid.UUID, visit func(uuid.UUID, domain.SeatID)) error {
	query := `
		SELECT record_id, seat_row, seat_number
		FROM sales_record_seats
		WHERE record_id = ANY($1)
		ORDER BY seat_row, seat_number
	`

	rows, err := p.db.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var recordID uuid.UUID
		var seat domain.SeatID

		err = rows.Scan(&recordID, &seat.Row, &seat.Number)
		if err != nil {
			return err
		}

		visit(recordID, seat)
	}

	return rows.Err()
}

// ReservedSeats returns every seat of a showtime that appears in a
// committed record. The registry uses it to seed seat state.
func (p *PostgresSalesLedger) ReservedSeats(ctx context.Context, showtimeID int64) ([]domain.SeatID, error) {
	query := `
		SELECT seat_row, seat_number
		FROM sales_record_seats
		WHERE showtime_id = $1
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

func runInTx(ctx context.Context, db *pgxpool.Pool, fn func(tx pgx.Tx) error) error {
	var txOptions pgx.TxOptions

	tx, err := db.BeginTx(ctx, txOptions)
	if err != nil {
		return err
	}

	err = fn(tx)
	if err == nil {
		return tx.Commit(ctx)
	}

	rollbackErr := tx.Rollback(ctx)
	if rollbackErr != nil {
		return errors.Join(err, rollbackErr)
	}

	return err
}
