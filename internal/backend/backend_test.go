package backend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"launchpad/internal/accumulator"
	"launchpad/internal/backend"
	"launchpad/internal/sale"
)

func testRecord(assetID string) *sale.Record {
	return sale.NewRecord(sale.LaunchParams{
		Creator:      uuid.New(),
		AssetID:      assetID,
		Name:         "Token",
		Symbol:       "TKN",
		Capacity:     1_000_000,
		PricePerUnit: 1_000,
		UnitScale:    6,
	})
}

// ============================================================================
// Test: ResidentStore
// ============================================================================

func TestResident_CreateLoadCommit(t *testing.T) {
	ctx := context.Background()
	store := backend.NewResidentStore()
	rec := testRecord("TKN")

	if err := store.Create(ctx, rec, nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, rec, nil); !errors.Is(err, sale.ErrSaleExists) {
		t.Errorf("duplicate create: got %v, want ErrSaleExists", err)
	}

	loaded, err := store.Load(ctx, "TKN", nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	loaded.Sold = 500
	if err := store.Commit(ctx, loaded, nil, nil); err != nil {
		t.Fatalf("commit: %v", err)
	}

	again, _ := store.Load(ctx, "TKN", nil)
	if again.Sold != 500 {
		t.Errorf("sold after commit: got %d, want 500", again.Sold)
	}
}

func TestResident_LoadReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := backend.NewResidentStore()
	if err := store.Create(ctx, testRecord("TKN"), nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	loaded, _ := store.Load(ctx, "TKN", nil)
	loaded.Sold = 999

	fresh, _ := store.Load(ctx, "TKN", nil)
	if fresh.Sold != 0 {
		t.Error("mutating a loaded record leaked into the store")
	}
}

func TestResident_UnknownAsset(t *testing.T) {
	ctx := context.Background()
	store := backend.NewResidentStore()
	if _, err := store.Load(ctx, "NOPE", nil); !errors.Is(err, sale.ErrSaleNotFound) {
		t.Errorf("got %v, want ErrSaleNotFound", err)
	}
}

func TestResident_SnapshotRestore(t *testing.T) {
	ctx := context.Background()
	store := backend.NewResidentStore()
	if err := store.Create(ctx, testRecord("AAA"), nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Create(ctx, testRecord("BBB"), nil); err != nil {
		t.Fatalf("create: %v", err)
	}

	restored := backend.NewResidentStore()
	restored.Restore(store.Snapshot())

	for _, asset := range []string{"AAA", "BBB"} {
		if _, err := restored.Load(ctx, asset, nil); err != nil {
			t.Errorf("load %s after restore: %v", asset, err)
		}
	}
}

// ============================================================================
// Test: DetachedStore
// ============================================================================

func detachedFixture(t *testing.T) (*backend.DetachedStore, *sale.Record) {
	t.Helper()
	tree := accumulator.NewTree(accumulator.CommitmentVerifier{})
	store := backend.NewDetachedStore(tree)
	rec := testRecord("TKN")

	proof := accumulator.BuildCommitment(
		accumulator.EmptyLeaf(),
		accumulator.HashLeaf(rec.CanonicalBytes()),
		tree.Root(),
	)
	if err := store.Create(context.Background(), rec, proof); err != nil {
		t.Fatalf("create: %v", err)
	}
	return store, rec
}

func priorFor(t *testing.T, store *backend.DetachedStore, rec *sale.Record) *backend.Prior {
	t.Helper()
	w, err := store.Tree().WitnessFor(rec.AssetID)
	if err != nil {
		t.Fatalf("witness: %v", err)
	}
	return &backend.Prior{Record: rec.Clone(), Witness: w}
}

func commitProof(store *backend.DetachedStore, prev, next *sale.Record) accumulator.Proof {
	return accumulator.BuildCommitment(
		accumulator.HashLeaf(prev.CanonicalBytes()),
		accumulator.HashLeaf(next.CanonicalBytes()),
		store.Tree().Root(),
	)
}

func TestDetached_LoadRequiresPrior(t *testing.T) {
	store, _ := detachedFixture(t)
	_, err := store.Load(context.Background(), "TKN", nil)
	if !errors.Is(err, sale.ErrStaleWitness) {
		t.Errorf("got %v, want ErrStaleWitness", err)
	}
}

func TestDetached_LoadChecksAsset(t *testing.T) {
	store, rec := detachedFixture(t)
	prior := priorFor(t, store, rec)
	_, err := store.Load(context.Background(), "OTHER", prior)
	if !errors.Is(err, sale.ErrAssetMismatch) {
		t.Errorf("got %v, want ErrAssetMismatch", err)
	}
}

func TestDetached_CommitSwapsLeaf(t *testing.T) {
	ctx := context.Background()
	store, rec := detachedFixture(t)
	prior := priorFor(t, store, rec)

	loaded, err := store.Load(ctx, "TKN", prior)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	next := loaded.Clone()
	next.Sold = 500
	if err := store.Commit(ctx, next, prior, commitProof(store, prior.Record, next)); err != nil {
		t.Fatalf("commit: %v", err)
	}

	// The committed value loads under a fresh witness.
	refreshed := priorFor(t, store, next)
	again, err := store.Load(ctx, "TKN", refreshed)
	if err != nil {
		t.Fatalf("load after commit: %v", err)
	}
	if again.Sold != 500 {
		t.Errorf("sold: got %d, want 500", again.Sold)
	}
}

func TestDetached_SecondCommitOnSamePriorIsStale(t *testing.T) {
	ctx := context.Background()
	store, rec := detachedFixture(t)

	p1 := priorFor(t, store, rec)
	p2 := priorFor(t, store, rec)

	n1 := rec.Clone()
	n1.Sold = 100
	if err := store.Commit(ctx, n1, p1, commitProof(store, rec, n1)); err != nil {
		t.Fatalf("first commit: %v", err)
	}

	n2 := rec.Clone()
	n2.Sold = 200
	err := store.Commit(ctx, n2, p2, commitProof(store, rec, n2))
	if !errors.Is(err, sale.ErrStaleWitness) {
		t.Errorf("got %v, want ErrStaleWitness", err)
	}
}

func TestDetached_StaleRecordValueRejected(t *testing.T) {
	store, rec := detachedFixture(t)

	tampered := priorFor(t, store, rec)
	tampered.Record.Sold = 999

	_, err := store.Load(context.Background(), "TKN", tampered)
	if !errors.Is(err, sale.ErrStaleWitness) {
		t.Errorf("got %v, want ErrStaleWitness", err)
	}
}
