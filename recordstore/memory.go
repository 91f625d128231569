/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package recordstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore keeps records in a map. Nothing is persisted across restarts.
type MemoryStore struct {
	latency time.Duration

	mu      sync.RWMutex
	records map[int64]Record
	nextID  int64
}

// NewMemoryStore creates a MemoryStore with seed records and the given simulated latency.
func NewMemoryStore(latency time.Duration) *MemoryStore {
	s := &MemoryStore{latency: latency, records: make(map[int64]Record, len(seedRecords))}
	for _, rec := range seedRecords {
		s.records[rec.ID] = rec
		s.nextID = max(s.nextID, rec.ID+1)
	}
	return s
}

// FetchByID returns the record with the given id after the simulated latency.
func (s *MemoryStore) FetchByID(ctx context.Context, id int64) (Record, error) {
	if err := simulateLatency(ctx, s.latency); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Create inserts a new record with the next id.
func (s *MemoryStore) Create(_ context.Context, name, email string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec := Record{ID: s.nextID, Name: name, Email: email}
	s.records[rec.ID] = rec
	s.nextID++
	return rec, nil
}

// List returns all records ordered by id.
func (s *MemoryStore) List(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
	return records, nil
}
