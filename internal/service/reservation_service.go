// Package service holds the reservation workflow: normalizing and validating
// request bodies, assigning identity, merging updates, persisting the
// collection and publishing lifecycle events.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/resort-reservation/internal/model"
	"github.com/iliyamo/resort-reservation/internal/normalizer"
	q "github.com/iliyamo/resort-reservation/internal/queue"
	"github.com/iliyamo/resort-reservation/internal/repository"
	"github.com/iliyamo/resort-reservation/internal/utils"
)

// ReservationService owns the in-memory reservation collection.  The
// collection is loaded once from the store; every mutation builds a new
// collection, saves it, and only then replaces the in-memory copy.  mu
// serializes these load-modify-persist sequences.
type ReservationService struct {
	mu        sync.Mutex
	records   []model.Reservation
	lastID    uint64 // highest id ever assigned or loaded; ids are never reused
	store     repository.Store
	validator *normalizer.Validator
	publisher Publisher
	log       *slog.Logger
	now       func() time.Time
	newToken  func() string
}

// Option customizes a ReservationService.
type Option func(*ReservationService)

// WithPublisher sets the event publisher.  Events are dropped by default.
func WithPublisher(p Publisher) Option {
	return func(s *ReservationService) { s.publisher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *ReservationService) { s.now = now }
}

// WithTokenSource replaces the booking token generator.
func WithTokenSource(fn func() string) Option {
	return func(s *ReservationService) { s.newToken = fn }
}

// NewReservationService loads the collection from store.
func NewReservationService(ctx context.Context, store repository.Store, log *slog.Logger, opts ...Option) (*ReservationService, error) {
	if store == nil {
		panic("nil store passed to NewReservationService")
	}
	validator, err := normalizer.NewValidator()
	if err != nil {
		return nil, err
	}
	s := &ReservationService{
		store:     store,
		validator: validator,
		publisher: NopPublisher{},
		log:       log,
		now:       time.Now,
		newToken:  utils.NewBookingToken,
	}
	for _, opt := range opts {
		opt(s)
	}

	records, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load reservations: %w", err)
	}
	if records == nil {
		records = []model.Reservation{}
	}
	s.records = records
	for _, r := range records {
		s.lastID = max(s.lastID, r.ID)
	}
	s.log.Info("reservations loaded", "count", len(records), "last_id", s.lastID)
	return s, nil
}

// List returns every reservation in insertion order.
func (s *ReservationService) List(_ context.Context) []model.Reservation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

// Get returns the reservation with the given id or repository.ErrNotFound.
func (s *ReservationService) Get(_ context.Context, id uint64) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.indexOf(id)
	if idx < 0 {
		return model.Reservation{}, repository.ErrNotFound
	}
	return s.records[idx], nil
}

// Create normalizes and validates raw, assigns id, booking token and
// timestamps, and persists the new record.  Client supplied values for
// server owned fields are ignored.
func (s *ReservationService) Create(ctx context.Context, raw normalizer.Document) (model.Reservation, error) {
	doc := normalizer.Normalize(raw)

	rec, err := func() (model.Reservation, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		id := s.lastID + 1
		now := s.timestamp()
		doc["id"] = int(id)
		doc["sms_token"] = s.newToken()
		doc["created_at"] = now
		doc["updated_at"] = now
		if err := s.validator.Validate(doc); err != nil {
			return model.Reservation{}, err
		}
		rec, err := normalizer.ToReservation(doc)
		if err != nil {
			return model.Reservation{}, err
		}

		next := append(slices.Clone(s.records), rec)
		if err := s.store.Save(ctx, next); err != nil {
			return model.Reservation{}, fmt.Errorf("save reservations: %w", err)
		}
		s.records = next
		s.lastID = id
		return rec, nil
	}()
	if err != nil {
		return rec, err
	}

	s.log.Info("reservation created", "id", rec.ID, "sms_token", rec.SMSToken)
	s.publish(ctx, q.EventCreated, rec)
	return rec, nil
}

// Update applies a full update to the reservation with the given id.
func (s *ReservationService) Update(ctx context.Context, id uint64, raw normalizer.Document) (model.Reservation, error) {
	return s.merge(ctx, id, raw)
}

// Patch applies a partial update.  It shares Update's merge: fields the
// client does not send are kept either way.
func (s *ReservationService) Patch(ctx context.Context, id uint64, raw normalizer.Document) (model.Reservation, error) {
	return s.merge(ctx, id, raw)
}

func (s *ReservationService) merge(ctx context.Context, id uint64, raw normalizer.Document) (model.Reservation, error) {
	incoming := normalizer.Normalize(raw)
	supplied := normalizer.Supplied(raw)

	rec, err := func() (model.Reservation, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		idx := s.indexOf(id)
		if idx < 0 {
			return model.Reservation{}, repository.ErrNotFound
		}
		existing := s.records[idx]

		doc := normalizer.Merge(normalizer.FromReservation(existing), incoming, supplied)
		doc["id"] = int(existing.ID)
		doc["sms_token"] = existing.SMSToken
		doc["created_at"] = existing.CreatedAt
		doc["updated_at"] = s.timestamp()
		if err := s.validator.Validate(doc); err != nil {
			return model.Reservation{}, err
		}
		rec, err := normalizer.ToReservation(doc)
		if err != nil {
			return model.Reservation{}, err
		}

		next := slices.Clone(s.records)
		next[idx] = rec
		if err := s.store.Save(ctx, next); err != nil {
			return model.Reservation{}, fmt.Errorf("save reservations: %w", err)
		}
		s.records = next
		return rec, nil
	}()
	if err != nil {
		return rec, err
	}

	s.log.Info("reservation updated", "id", rec.ID)
	s.publish(ctx, q.EventUpdated, rec)
	return rec, nil
}

// Delete removes the reservation with the given id and returns it.
func (s *ReservationService) Delete(ctx context.Context, id uint64) (model.Reservation, error) {
	rec, err := func() (model.Reservation, error) {
		s.mu.Lock()
		defer s.mu.Unlock()

		idx := s.indexOf(id)
		if idx < 0 {
			return model.Reservation{}, repository.ErrNotFound
		}
		removed := s.records[idx]
		next := slices.Delete(slices.Clone(s.records), idx, idx+1)
		if err := s.store.Save(ctx, next); err != nil {
			return model.Reservation{}, fmt.Errorf("save reservations: %w", err)
		}
		s.records = next
		return removed, nil
	}()
	if err != nil {
		return rec, err
	}

	s.log.Info("reservation deleted", "id", rec.ID)
	s.publish(ctx, q.EventDeleted, rec)
	return rec, nil
}

// indexOf must be called with mu held.
func (s *ReservationService) indexOf(id uint64) int {
	return slices.IndexFunc(s.records, func(r model.Reservation) bool { return r.ID == id })
}

func (s *ReservationService) timestamp() string {
	return s.now().UTC().Format(model.TimestampLayout)
}

func (s *ReservationService) publish(ctx context.Context, kind string, rec model.Reservation) {
	event := q.ReservationEvent{
		EventID:       uuid.NewString(),
		Type:          kind,
		ReservationID: rec.ID,
		GuestName:     rec.GuestName,
		Phone:         rec.Contact.Phone,
		SMSToken:      rec.SMSToken,
		CheckinDate:   rec.CheckinDate,
		CheckoutDate:  rec.CheckoutDate,
		OccurredAt:    s.timestamp(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn("reservation event not published", "type", kind, "id", rec.ID, "err", err)
	}
}
