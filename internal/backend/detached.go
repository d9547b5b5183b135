package backend

import (
	"context"
	"fmt"

	"launchpad/internal/accumulator"
	"launchpad/internal/sale"
)

// DetachedStore is the proof-gated strategy: the store retains only the
// authenticated accumulator, never the records themselves. Callers carry the
// record value between operations and must present it with a freshness
// witness; updates are expressed as witnessed leaf swaps, not in-place
// mutation. Serialization across concurrent writers falls out of witness
// staleness instead of locking.
type DetachedStore struct {
	tree *accumulator.Tree
}

// NewDetachedStore wraps an accumulator.
func NewDetachedStore(tree *accumulator.Tree) *DetachedStore {
	return &DetachedStore{tree: tree}
}

func (s *DetachedStore) Name() string { return DetachedName }

// Tree exposes the accumulator so callers can fetch witnesses and build
// proofs for the next operation.
func (s *DetachedStore) Tree() *accumulator.Tree {
	return s.tree
}

// Create appends the record's leaf, collision-checked on asset id.
func (s *DetachedStore) Create(_ context.Context, rec *sale.Record, proof accumulator.Proof) error {
	return s.tree.Append(rec.AssetID, rec.CanonicalBytes(), proof)
}

// Load accepts the caller's prior value only after its witness verifies
// against the current accumulator root.
func (s *DetachedStore) Load(_ context.Context, assetID string, prior *Prior) (*sale.Record, error) {
	if prior == nil || prior.Record == nil || prior.Witness == nil {
		return nil, fmt.Errorf("%w: detached load requires prior value and witness", sale.ErrStaleWitness)
	}
	if prior.Record.AssetID != assetID {
		return nil, sale.ErrAssetMismatch
	}
	if err := s.tree.VerifyWitness(prior.Witness, prior.Record.CanonicalBytes()); err != nil {
		return nil, err
	}
	return prior.Record.Clone(), nil
}

// Commit submits the replacement value together with its validity proof; the
// accumulator re-verifies the prior under its own lock and swaps atomically
// or rejects without touching anything.
func (s *DetachedStore) Commit(_ context.Context, next *sale.Record, prior *Prior, proof accumulator.Proof) error {
	if prior == nil || prior.Record == nil || prior.Witness == nil {
		return fmt.Errorf("%w: detached commit requires prior value and witness", sale.ErrStaleWitness)
	}
	return s.tree.Swap(prior.Witness, prior.Record.CanonicalBytes(), next.CanonicalBytes(), proof)
}
