package backend

import (
	"context"
	"sync"

	"launchpad/internal/accumulator"
	"launchpad/internal/sale"
)

// ResidentStore is the always-addressable strategy: every record is held in
// full and mutated in place under the store lock. Operation-level mutual
// exclusion is structural — the engine serializes units of work per asset, so
// a load/commit pair never observes another writer's partial state.
type ResidentStore struct {
	mu      sync.RWMutex
	records map[string]*sale.Record
}

// NewResidentStore creates an empty resident store.
func NewResidentStore() *ResidentStore {
	return &ResidentStore{
		records: make(map[string]*sale.Record),
	}
}

func (s *ResidentStore) Name() string { return ResidentName }

// Create allocates the record, collision-checked on asset id.
func (s *ResidentStore) Create(_ context.Context, rec *sale.Record, _ accumulator.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.AssetID]; exists {
		return sale.ErrSaleExists
	}
	s.records[rec.AssetID] = rec.Clone()
	return nil
}

// Load returns a copy of the current record. The prior argument is unused:
// residency makes freshness implicit.
func (s *ResidentStore) Load(_ context.Context, assetID string, _ *Prior) (*sale.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[assetID]
	if !ok {
		return nil, sale.ErrSaleNotFound
	}
	return rec.Clone(), nil
}

// Commit writes the record back in place.
func (s *ResidentStore) Commit(_ context.Context, next *sale.Record, _ *Prior, _ accumulator.Proof) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[next.AssetID]; !ok {
		return sale.ErrSaleNotFound
	}
	s.records[next.AssetID] = next.Clone()
	return nil
}

// Snapshot copies out every record, for persistence.
func (s *ResidentStore) Snapshot() []*sale.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*sale.Record, 0, len(s.records))
	for _, rec := range s.records {
		out = append(out, rec.Clone())
	}
	return out
}

// Restore loads records from a persisted snapshot, replacing current state.
func (s *ResidentStore) Restore(records []*sale.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*sale.Record, len(records))
	for _, rec := range records {
		s.records[rec.AssetID] = rec.Clone()
	}
}
