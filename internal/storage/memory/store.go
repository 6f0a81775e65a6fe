package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"prettify/internal/storage"
)

// Store keeps records in a map. Used when no database is configured.
type Store struct {
	mu   sync.RWMutex
	recs map[string]storage.Record
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{recs: make(map[string]storage.Record)}
}

func (s *Store) Save(_ context.Context, rec storage.Record) error {
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now()
	}
	s.mu.Lock()
	s.recs[rec.ID] = rec
	s.mu.Unlock()
	return nil
}

func (s *Store) Load(_ context.Context, id string) (storage.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.recs[id]
	if !ok {
		return storage.Record{}, storage.ErrNotFound
	}
	return rec, nil
}

func (s *Store) List(context.Context) ([]string, error) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.recs))
	for id := range s.recs {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids, nil
}

func (s *Store) Close() error { return nil }
