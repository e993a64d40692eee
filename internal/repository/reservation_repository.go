package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// ReservationRepo stores the reservation collection in MySQL.  Each record
// is one row holding its JSON body; position keeps the collection order.
// The reservations table is created by database.Migrate.
type ReservationRepo struct {
	db  *sql.DB
	log *slog.Logger
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB, log *slog.Logger) *ReservationRepo {
	return &ReservationRepo{db: db, log: log}
}

// Load reads every row in collection order.  A row whose body cannot be
// decoded marks the stored collection as corrupt and an empty collection is
// returned.
func (r *ReservationRepo) Load(ctx context.Context) ([]model.Reservation, error) {
	const q = `SELECT id, body FROM reservations ORDER BY position`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query reservations: %w", err)
	}
	defer rows.Close()

	records := []model.Reservation{}
	for rows.Next() {
		var (
			id   uint64
			body []byte
		)
		if err := rows.Scan(&id, &body); err != nil {
			return nil, fmt.Errorf("scan reservation: %w", err)
		}
		var rec model.Reservation
		if err := json.Unmarshal(body, &rec); err != nil {
			r.log.Warn("reservation row unreadable, starting empty", "id", id, "err", err)
			return []model.Reservation{}, nil
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reservations: %w", err)
	}
	return records, nil
}

// Save replaces the table contents inside one transaction.
func (r *ReservationRepo) Save(ctx context.Context, records []model.Reservation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM reservations`); err != nil {
		return fmt.Errorf("clear reservations: %w", err)
	}
	if len(records) > 0 {
		var query strings.Builder
		query.WriteString(`INSERT INTO reservations (id, position, body) VALUES `)
		args := make([]interface{}, 0, len(records)*3)
		for i, rec := range records {
			body, err := json.Marshal(rec)
			if err != nil {
				return fmt.Errorf("encode reservation %d: %w", rec.ID, err)
			}
			if i > 0 {
				query.WriteString(",")
			}
			query.WriteString("(?, ?, ?)")
			args = append(args, rec.ID, i, body)
		}
		if _, err := tx.ExecContext(ctx, query.String(), args...); err != nil {
			return fmt.Errorf("insert reservations: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit reservations: %w", err)
	}
	committed = true
	return nil
}
