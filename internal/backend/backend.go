// Package backend presents one load/validate/commit surface over the two
// sale-record storage strategies. The settlement engine is written against
// the Backend interface only; the resident and detached implementations
// differ in how the current value is obtained and how the new value is
// recorded, never in the arithmetic or validation applied to it.
package backend

import (
	"context"

	"launchpad/internal/accumulator"
	"launchpad/internal/sale"
)

// Strategy names, stable across logs, metrics, and the API surface.
const (
	ResidentName = "resident"
	DetachedName = "detached"
)

// Prior carries the caller-supplied freshness material the detached strategy
// requires: the last-known record value and a witness that it is the current
// authenticated value. The resident strategy takes a nil Prior — freshness is
// implicit because the addressable record is the unique source of truth.
type Prior struct {
	Record  *sale.Record
	Witness *accumulator.Witness
}

// Backend is the uniform storage surface.
type Backend interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Create allocates the record for its asset id, failing with
	// sale.ErrSaleExists if one was ever allocated.
	Create(ctx context.Context, rec *sale.Record, proof accumulator.Proof) error

	// Load returns the current record as a commit base. Detached loads
	// validate the prior's witness first and fail with sale.ErrStaleWitness
	// when it does not match the current accumulator root.
	Load(ctx context.Context, assetID string, prior *Prior) (*sale.Record, error)

	// Commit durably records next, replacing the value Load returned.
	// Detached commits re-verify the prior under the authority's lock and
	// atomically swap, so a concurrent commit built on the same prior loses
	// with sale.ErrStaleWitness and must retry on a re-fetched value. Retry
	// is the caller's responsibility.
	Commit(ctx context.Context, next *sale.Record, prior *Prior, proof accumulator.Proof) error
}
