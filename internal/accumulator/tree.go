// Package accumulator implements the authenticated store behind the detached
// sale-record backend: a sha256 Merkle tree whose leaves are canonical record
// encodings. Readers obtain a freshness witness for a leaf; writers present
// the witnessed prior value, the replacement value, and a validity proof, and
// the tree swaps the leaf atomically or rejects — it never partially applies.
package accumulator

import (
	"bytes"
	"crypto/sha256"
	"sync"

	"launchpad/internal/sale"
)

const leafDomainSeed = "launchpad:leaf:v1"

var emptyNode = sha256.Sum256([]byte("launchpad:empty:v1"))

// HashLeaf computes the domain-separated leaf hash for a canonical value.
func HashLeaf(value []byte) [32]byte {
	h := sha256.New()
	h.Write([]byte(leafDomainSeed))
	h.Write(value)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

func hashPair(left, right [32]byte) [32]byte {
	h := sha256.New()
	h.Write(left[:])
	h.Write(right[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Witness proves that a leaf value was current under a specific root. It
// becomes stale the moment any commit rotates the root.
type Witness struct {
	Key      string
	Leaf     [32]byte
	Index    int
	Siblings [][32]byte
	Root     [32]byte
}

// Proof is the caller-supplied validity proof accompanying a swap. The tree
// does not derive it; it only hands it to the configured ProofVerifier.
type Proof []byte

// ProofVerifier is the external authority that accepts or rejects a swap's
// validity proof. A rejection maps to sale.ErrInvalidProof.
type ProofVerifier interface {
	Verify(proof Proof, prevLeaf, nextLeaf, root [32]byte) error
}

// Tree is the accumulator. All exported methods are safe for concurrent use;
// Swap holds the write lock across verify-and-replace so two commits against
// the same witnessed root serialize, with the loser observing staleness.
type Tree struct {
	mu       sync.RWMutex
	leaves   [][32]byte
	index    map[string]int
	root     [32]byte
	verifier ProofVerifier
}

// NewTree creates an empty accumulator using the given proof authority.
func NewTree(verifier ProofVerifier) *Tree {
	return &Tree{
		index:    make(map[string]int),
		root:     emptyNode,
		verifier: verifier,
	}
}

// Root returns the current accumulator root.
func (t *Tree) Root() [32]byte {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root
}

// Len returns the number of leaves.
func (t *Tree) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.leaves)
}

// Contains reports whether a key has a leaf.
func (t *Tree) Contains(key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.index[key]
	return ok
}

// Append allocates a new leaf for key. Allocation is collision-checked: a key
// can be appended exactly once for the lifetime of the tree.
func (t *Tree) Append(key string, value []byte, proof Proof) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.index[key]; exists {
		return sale.ErrSaleExists
	}

	leaf := HashLeaf(value)
	if t.verifier != nil {
		if err := t.verifier.Verify(proof, emptyNode, leaf, t.root); err != nil {
			return sale.ErrInvalidProof
		}
	}

	t.index[key] = len(t.leaves)
	t.leaves = append(t.leaves, leaf)
	t.root = t.computeRoot()
	return nil
}

// WitnessFor returns a freshness witness for key's current leaf.
func (t *Tree) WitnessFor(key string) (*Witness, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.index[key]
	if !ok {
		return nil, sale.ErrSaleNotFound
	}

	return &Witness{
		Key:      key,
		Leaf:     t.leaves[idx],
		Index:    idx,
		Siblings: t.siblingsFor(idx),
		Root:     t.root,
	}, nil
}

// VerifyWitness checks that a witness presents the current value of its leaf:
// the claimed value hashes to the witnessed leaf, the path recomputes to the
// witnessed root, and that root is the tree's current root. Any mismatch is
// reported as staleness.
func (t *Tree) VerifyWitness(w *Witness, value []byte) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.verifyLocked(w, value)
}

func (t *Tree) verifyLocked(w *Witness, value []byte) error {
	if w == nil {
		return sale.ErrStaleWitness
	}
	idx, ok := t.index[w.Key]
	if !ok || idx != w.Index {
		return sale.ErrStaleWitness
	}
	if HashLeaf(value) != w.Leaf {
		return sale.ErrStaleWitness
	}
	if w.Root != t.root {
		return sale.ErrStaleWitness
	}
	if foldPath(w.Leaf, w.Index, w.Siblings) != t.root {
		return sale.ErrStaleWitness
	}
	return nil
}

// Swap atomically replaces the witnessed leaf with the hash of nextValue.
// The witness is re-verified under the write lock, so of two concurrent
// commits built on the same witness the first succeeds and the second fails
// with sale.ErrStaleWitness. The proof is checked before any mutation; on any
// failure the accumulator is untouched.
func (t *Tree) Swap(w *Witness, prevValue, nextValue []byte, proof Proof) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.verifyLocked(w, prevValue); err != nil {
		return err
	}

	nextLeaf := HashLeaf(nextValue)
	if t.verifier != nil {
		if err := t.verifier.Verify(proof, w.Leaf, nextLeaf, t.root); err != nil {
			return sale.ErrInvalidProof
		}
	}

	t.leaves[w.Index] = nextLeaf
	t.root = t.computeRoot()
	return nil
}

// siblingsFor collects the sibling hash at each level for a leaf position.
// Caller must hold at least the read lock.
func (t *Tree) siblingsFor(idx int) [][32]byte {
	level := t.paddedLeaves()
	var siblings [][32]byte

	for len(level) > 1 {
		sibIdx := idx ^ 1
		siblings = append(siblings, level[sibIdx])

		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
		idx /= 2
	}

	return siblings
}

// computeRoot rebuilds the root from the leaf level. Caller must hold the
// write lock.
func (t *Tree) computeRoot() [32]byte {
	level := t.paddedLeaves()
	if len(level) == 0 {
		return emptyNode
	}
	for len(level) > 1 {
		next := make([][32]byte, len(level)/2)
		for i := 0; i < len(next); i++ {
			next[i] = hashPair(level[2*i], level[2*i+1])
		}
		level = next
	}
	return level[0]
}

// paddedLeaves returns the leaves padded with empty nodes to a power of two.
func (t *Tree) paddedLeaves() [][32]byte {
	if len(t.leaves) == 0 {
		return nil
	}
	size := 1
	for size < len(t.leaves) {
		size *= 2
	}
	padded := make([][32]byte, size)
	copy(padded, t.leaves)
	for i := len(t.leaves); i < size; i++ {
		padded[i] = emptyNode
	}
	return padded
}

// foldPath recomputes a root from a leaf, its position, and sibling hashes.
func foldPath(leaf [32]byte, idx int, siblings [][32]byte) [32]byte {
	current := leaf
	for _, sib := range siblings {
		if idx%2 == 0 {
			current = hashPair(current, sib)
		} else {
			current = hashPair(sib, current)
		}
		idx /= 2
	}
	return current
}

// CommitmentVerifier is the default proof authority: the validity proof is a
// binding commitment sha256(prev leaf || next leaf || root) that the caller
// computes over the exact transition it is submitting. Deployments with a
// real proving system replace this via the ProofVerifier interface.
type CommitmentVerifier struct{}

// Verify checks the commitment matches the submitted transition.
func (CommitmentVerifier) Verify(proof Proof, prevLeaf, nextLeaf, root [32]byte) error {
	expected := BuildCommitment(prevLeaf, nextLeaf, root)
	if !bytes.Equal(proof, expected) {
		return sale.ErrInvalidProof
	}
	return nil
}

// BuildCommitment computes the commitment a caller submits as its validity
// proof under the default verifier.
func BuildCommitment(prevLeaf, nextLeaf, root [32]byte) Proof {
	h := sha256.New()
	h.Write(prevLeaf[:])
	h.Write(nextLeaf[:])
	h.Write(root[:])
	return h.Sum(nil)
}

// EmptyLeaf returns the hash that stands in for "no prior value" when
// appending, so creation proofs commit to the same transition shape as swaps.
func EmptyLeaf() [32]byte {
	return emptyNode
}
