package api

import (
	"encoding/hex"
	"fmt"

	"launchpad/internal/accumulator"
	"launchpad/internal/backend"
	"launchpad/internal/sale"
)

// witnessJSON is the wire form of a freshness witness. Hashes travel as hex.
type witnessJSON struct {
	Key      string   `json:"key"`
	Leaf     string   `json:"leaf"`
	Index    int      `json:"index"`
	Siblings []string `json:"siblings"`
	Root     string   `json:"root"`
}

func witnessToJSON(w *accumulator.Witness) witnessJSON {
	siblings := make([]string, len(w.Siblings))
	for i, s := range w.Siblings {
		siblings[i] = hex.EncodeToString(s[:])
	}
	return witnessJSON{
		Key:      w.Key,
		Leaf:     hex.EncodeToString(w.Leaf[:]),
		Index:    w.Index,
		Siblings: siblings,
		Root:     hex.EncodeToString(w.Root[:]),
	}
}

func (w *witnessJSON) toWitness() (*accumulator.Witness, error) {
	leaf, err := parseHash(w.Leaf)
	if err != nil {
		return nil, fmt.Errorf("leaf: %w", err)
	}
	root, err := parseHash(w.Root)
	if err != nil {
		return nil, fmt.Errorf("root: %w", err)
	}
	siblings := make([][32]byte, len(w.Siblings))
	for i, s := range w.Siblings {
		sib, err := parseHash(s)
		if err != nil {
			return nil, fmt.Errorf("sibling %d: %w", i, err)
		}
		siblings[i] = sib
	}
	return &accumulator.Witness{
		Key:      w.Key,
		Leaf:     leaf,
		Index:    w.Index,
		Siblings: siblings,
		Root:     root,
	}, nil
}

// priorJSON is the wire form of the detached backend's prior: the last-known
// record value plus its freshness witness.
type priorJSON struct {
	Record  *sale.Record `json:"record"`
	Witness *witnessJSON `json:"witness"`
}

func (p *priorJSON) toPrior() (*backend.Prior, error) {
	if p == nil {
		return nil, nil
	}
	prior := &backend.Prior{Record: p.Record}
	if p.Witness != nil {
		w, err := p.Witness.toWitness()
		if err != nil {
			return nil, err
		}
		prior.Witness = w
	}
	return prior, nil
}

func parseHash(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(s)
	if err != nil {
		return out, err
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("want 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func parseProof(s string) (accumulator.Proof, error) {
	if s == "" {
		return nil, nil
	}
	raw, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return accumulator.Proof(raw), nil
}
