// Package redis provides a Redis-backed statestore.Store implementation for
// deployments where the cached subscription snapshot must survive process
// restarts and be shared across instances.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/billingkit/billingkit/pkg/statestore"
)

// Config controls key layout and retention.
type Config struct {
	KeyPrefix string        `env:"STATESTORE_REDIS_KEY_PREFIX" envDefault:"billingkit:subscription:"` // KeyPrefix namespaces cache keys within a shared Redis.
	TTL       time.Duration `env:"STATESTORE_REDIS_TTL" envDefault:"0"`                               // TTL expires cached records; 0 keeps them until overwritten or cleared.
}

// Store implements statestore.Store on top of go-redis. Records are stored as
// JSON values keyed by user ID.
type Store struct {
	client redis.UniversalClient
	cfg    Config
}

// New creates a Redis-backed store.
func New(client redis.UniversalClient, cfg Config) (*Store, error) {
	if client == nil {
		return nil, errors.New("statestore/redis: client is required")
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "billingkit:subscription:"
	}
	return &Store{client: client, cfg: cfg}, nil
}

func (s *Store) key(userID uuid.UUID) string {
	return s.cfg.KeyPrefix + userID.String()
}

func (s *Store) Read(ctx context.Context, userID uuid.UUID) (*statestore.Record, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, statestore.ErrRecordNotFound
	}
	if err != nil {
		return nil, err
	}

	var record statestore.Record
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, errors.Join(statestore.ErrInvalidRecord, err)
	}
	return &record, nil
}

func (s *Store) Write(ctx context.Context, userID uuid.UUID, record *statestore.Record) error {
	if record == nil {
		return statestore.ErrInvalidRecord
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return errors.Join(statestore.ErrInvalidRecord, err)
	}

	return s.client.Set(ctx, s.key(userID), raw, s.cfg.TTL).Err()
}

func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, s.key(userID)).Err()
}
