// Package memory provides an in-memory statestore.Store implementation,
// intended for tests and single-process deployments.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/billingkit/billingkit/pkg/statestore"
)

// Store implements statestore.Store using a mutex-guarded map.
type Store struct {
	mu      sync.RWMutex
	records map[uuid.UUID]statestore.Record
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		records: make(map[uuid.UUID]statestore.Record),
	}
}

// Read returns a copy of the cached record to prevent external mutations.
func (s *Store) Read(ctx context.Context, userID uuid.UUID) (*statestore.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.records[userID]
	if !ok {
		return nil, statestore.ErrRecordNotFound
	}

	recordCopy := record
	return &recordCopy, nil
}

// Write stores a copy of the record.
func (s *Store) Write(ctx context.Context, userID uuid.UUID, record *statestore.Record) error {
	if record == nil {
		return statestore.ErrInvalidRecord
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[userID] = *record
	return nil
}

// Clear removes the record for a user. Absent records are not an error.
func (s *Store) Clear(ctx context.Context, userID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
	return nil
}
