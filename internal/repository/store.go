package repository

import (
	"context"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// Store persists the whole reservation collection at once.
//
// Load must tolerate a missing or corrupt store by returning an empty
// collection and a nil error; only genuine I/O failures are reported.
// Save replaces the stored collection with records, all or nothing.
type Store interface {
	Load(ctx context.Context) ([]model.Reservation, error)
	Save(ctx context.Context, records []model.Reservation) error
}
