package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/resort-reservation/internal/model"
)

// DefaultRedisKey holds the collection when no key is configured.
const DefaultRedisKey = "reservations:records"

// RedisStore keeps the whole collection as one JSON string.  A single SET
// replaces it, which Redis applies atomically.
type RedisStore struct {
	rdb *redis.Client
	key string
	log *slog.Logger
}

// NewRedisStore returns a store writing to key on rdb.
func NewRedisStore(rdb *redis.Client, key string, log *slog.Logger) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{rdb: rdb, key: key, log: log}
}

// Load fetches the collection.  A missing key or unparsable value yields an
// empty collection.
func (s *RedisStore) Load(ctx context.Context) ([]model.Reservation, error) {
	raw, err := s.rdb.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return []model.Reservation{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s.key, err)
	}
	var records []model.Reservation
	if err := json.Unmarshal(raw, &records); err != nil {
		s.log.Warn("reservation key unreadable, starting empty", "key", s.key, "err", err)
		return []model.Reservation{}, nil
	}
	if records == nil {
		records = []model.Reservation{}
	}
	return records, nil
}

// Save overwrites the collection.
func (s *RedisStore) Save(ctx context.Context, records []model.Reservation) error {
	if records == nil {
		records = []model.Reservation{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode reservations: %w", err)
	}
	if err := s.rdb.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}
