package accumulator_test

import (
	"errors"
	"testing"

	"launchpad/internal/accumulator"
	"launchpad/internal/sale"
)

func newTree() *accumulator.Tree {
	return accumulator.NewTree(accumulator.CommitmentVerifier{})
}

func appendProof(t *accumulator.Tree, value []byte) accumulator.Proof {
	return accumulator.BuildCommitment(accumulator.EmptyLeaf(), accumulator.HashLeaf(value), t.Root())
}

func swapProof(t *accumulator.Tree, prev, next []byte) accumulator.Proof {
	return accumulator.BuildCommitment(accumulator.HashLeaf(prev), accumulator.HashLeaf(next), t.Root())
}

// ============================================================================
// Test: Append
// ============================================================================

func TestAppend_RotatesRoot(t *testing.T) {
	tree := newTree()
	before := tree.Root()

	value := []byte("sale-v0")
	if err := tree.Append("TKN", value, appendProof(tree, value)); err != nil {
		t.Fatalf("append: %v", err)
	}

	if tree.Root() == before {
		t.Error("root did not rotate on append")
	}
	if tree.Len() != 1 {
		t.Errorf("len: got %d, want 1", tree.Len())
	}
	if !tree.Contains("TKN") {
		t.Error("appended key not found")
	}
}

func TestAppend_DuplicateKeyRejected(t *testing.T) {
	tree := newTree()
	value := []byte("sale-v0")
	if err := tree.Append("TKN", value, appendProof(tree, value)); err != nil {
		t.Fatalf("append: %v", err)
	}

	err := tree.Append("TKN", value, appendProof(tree, value))
	if !errors.Is(err, sale.ErrSaleExists) {
		t.Errorf("got %v, want ErrSaleExists", err)
	}
}

func TestAppend_BadProofRejected(t *testing.T) {
	tree := newTree()
	err := tree.Append("TKN", []byte("sale-v0"), accumulator.Proof("garbage"))
	if !errors.Is(err, sale.ErrInvalidProof) {
		t.Errorf("got %v, want ErrInvalidProof", err)
	}
	if tree.Len() != 0 {
		t.Error("rejected append must not mutate the tree")
	}
}

// ============================================================================
// Test: Witness verification
// ============================================================================

func TestWitness_VerifiesCurrentValue(t *testing.T) {
	tree := newTree()
	value := []byte("sale-v0")
	if err := tree.Append("TKN", value, appendProof(tree, value)); err != nil {
		t.Fatalf("append: %v", err)
	}

	w, err := tree.WitnessFor("TKN")
	if err != nil {
		t.Fatalf("witness: %v", err)
	}
	if err := tree.VerifyWitness(w, value); err != nil {
		t.Errorf("fresh witness rejected: %v", err)
	}
}

func TestWitness_UnknownKey(t *testing.T) {
	tree := newTree()
	_, err := tree.WitnessFor("NOPE")
	if !errors.Is(err, sale.ErrSaleNotFound) {
		t.Errorf("got %v, want ErrSaleNotFound", err)
	}
}

func TestWitness_WrongValueIsStale(t *testing.T) {
	tree := newTree()
	value := []byte("sale-v0")
	if err := tree.Append("TKN", value, appendProof(tree, value)); err != nil {
		t.Fatalf("append: %v", err)
	}

	w, _ := tree.WitnessFor("TKN")
	err := tree.VerifyWitness(w, []byte("sale-v1"))
	if !errors.Is(err, sale.ErrStaleWitness) {
		t.Errorf("got %v, want ErrStaleWitness", err)
	}
}

func TestWitness_StaleAfterUnrelatedCommit(t *testing.T) {
	tree := newTree()
	a := []byte("sale-a-v0")
	b := []byte("sale-b-v0")
	if err := tree.Append("AAA", a, appendProof(tree, a)); err != nil {
		t.Fatalf("append a: %v", err)
	}
	if err := tree.Append("BBB", b, appendProof(tree, b)); err != nil {
		t.Fatalf("append b: %v", err)
	}

	wa, _ := tree.WitnessFor("AAA")

	// A commit to another leaf rotates the shared root, invalidating wa.
	wb, _ := tree.WitnessFor("BBB")
	b1 := []byte("sale-b-v1")
	if err := tree.Swap(wb, b, b1, swapProof(tree, b, b1)); err != nil {
		t.Fatalf("swap b: %v", err)
	}

	if err := tree.VerifyWitness(wa, a); !errors.Is(err, sale.ErrStaleWitness) {
		t.Errorf("got %v, want ErrStaleWitness", err)
	}
}

// ============================================================================
// Test: Swap
// ============================================================================

func TestSwap_ReplacesLeaf(t *testing.T) {
	tree := newTree()
	v0 := []byte("sale-v0")
	if err := tree.Append("TKN", v0, appendProof(tree, v0)); err != nil {
		t.Fatalf("append: %v", err)
	}

	w, _ := tree.WitnessFor("TKN")
	v1 := []byte("sale-v1")
	if err := tree.Swap(w, v0, v1, swapProof(tree, v0, v1)); err != nil {
		t.Fatalf("swap: %v", err)
	}

	w1, _ := tree.WitnessFor("TKN")
	if err := tree.VerifyWitness(w1, v1); err != nil {
		t.Errorf("new value rejected after swap: %v", err)
	}
	if err := tree.VerifyWitness(w1, v0); !errors.Is(err, sale.ErrStaleWitness) {
		t.Error("old value should no longer verify")
	}
}

func TestSwap_SecondCommitOnSameWitnessLoses(t *testing.T) {
	tree := newTree()
	v0 := []byte("sale-v0")
	if err := tree.Append("TKN", v0, appendProof(tree, v0)); err != nil {
		t.Fatalf("append: %v", err)
	}

	// Two writers load the same witness.
	w1, _ := tree.WitnessFor("TKN")
	w2, _ := tree.WitnessFor("TKN")

	vA := []byte("sale-vA")
	if err := tree.Swap(w1, v0, vA, swapProof(tree, v0, vA)); err != nil {
		t.Fatalf("first swap: %v", err)
	}

	vB := []byte("sale-vB")
	err := tree.Swap(w2, v0, vB, swapProof(tree, v0, vB))
	if !errors.Is(err, sale.ErrStaleWitness) {
		t.Fatalf("second swap: got %v, want ErrStaleWitness", err)
	}

	// Retry on a re-fetched witness succeeds.
	w3, _ := tree.WitnessFor("TKN")
	if err := tree.Swap(w3, vA, vB, swapProof(tree, vA, vB)); err != nil {
		t.Errorf("retry after refresh: %v", err)
	}
}

func TestSwap_BadProofLeavesTreeUntouched(t *testing.T) {
	tree := newTree()
	v0 := []byte("sale-v0")
	if err := tree.Append("TKN", v0, appendProof(tree, v0)); err != nil {
		t.Fatalf("append: %v", err)
	}
	rootBefore := tree.Root()

	w, _ := tree.WitnessFor("TKN")
	err := tree.Swap(w, v0, []byte("sale-v1"), accumulator.Proof("garbage"))
	if !errors.Is(err, sale.ErrInvalidProof) {
		t.Fatalf("got %v, want ErrInvalidProof", err)
	}
	if tree.Root() != rootBefore {
		t.Error("rejected swap must not rotate the root")
	}
	if err := tree.VerifyWitness(w, v0); err != nil {
		t.Errorf("witness should still verify after rejected swap: %v", err)
	}
}

// ============================================================================
// Test: multi-leaf roots
// ============================================================================

func TestTree_OddLeafCountStillVerifies(t *testing.T) {
	tree := newTree()
	values := [][]byte{[]byte("a"), []byte("b"), []byte("c")}
	keys := []string{"AAA", "BBB", "CCC"}

	for i, v := range values {
		if err := tree.Append(keys[i], v, appendProof(tree, v)); err != nil {
			t.Fatalf("append %s: %v", keys[i], err)
		}
	}

	for i, k := range keys {
		w, err := tree.WitnessFor(k)
		if err != nil {
			t.Fatalf("witness %s: %v", k, err)
		}
		if err := tree.VerifyWitness(w, values[i]); err != nil {
			t.Errorf("witness %s rejected: %v", k, err)
		}
	}
}
