// Package query provides read-only access to the persisted event log and
// sale snapshots, plus the integrity checks an operator runs against them.
package query

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"launchpad/internal/sale"
)

// Service reads from Postgres only; it never touches the live engines.
type Service struct {
	db *sql.DB
}

// NewService wraps a database handle.
func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Events returns persisted envelopes, optionally filtered to one sale asset,
// paginated by sequence.
func (s *Service) Events(ctx context.Context, assetID string, afterSequence int64, limit int) ([]EventRecord, error) {
	if limit <= 0 || limit > 1_000 {
		limit = 100
	}

	query := `
		SELECT sequence, event_type, asset_id, actor, backend, payload, state_hash, prev_hash, timestamp
		FROM launchpad.events
		WHERE sequence > $1
	`
	args := []any{afterSequence}
	argIdx := 2

	if assetID != "" {
		query += fmt.Sprintf(" AND asset_id = $%d", argIdx)
		args = append(args, assetID)
		argIdx++
	}

	query += " ORDER BY sequence ASC"
	query += fmt.Sprintf(" LIMIT $%d", argIdx)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		if err := rows.Scan(
			&e.Sequence, &e.EventType, &e.AssetID, &e.Actor, &e.Backend,
			&e.Payload, &e.StateHash, &e.PrevHash, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Sale returns the last snapshotted state of a sale. Snapshots trail the live
// record by up to one snapshot interval; the settlement API serves the live
// view.
func (s *Service) Sale(ctx context.Context, assetID string) (*sale.Record, error) {
	var (
		rec     sale.Record
		creator string
		price   int64
		cap     int64
		sold    int64
		scale   int16
		limit   int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT asset_id, creator, price_per_unit, capacity, sold, active, unit_scale, per_purchase_limit, name, symbol, metadata_ref
		FROM launchpad.sales
		WHERE asset_id = $1
	`, assetID).Scan(
		&rec.AssetID, &creator, &price, &cap, &sold, &rec.Active,
		&scale, &limit, &rec.Name, &rec.Symbol, &rec.MetadataRef,
	)
	if err == sql.ErrNoRows {
		return nil, sale.ErrSaleNotFound
	}
	if err != nil {
		return nil, err
	}

	rec.Creator, err = uuid.Parse(creator)
	if err != nil {
		return nil, fmt.Errorf("parse creator for sale %s: %w", assetID, err)
	}
	rec.PricePerUnit = uint64(price)
	rec.Capacity = uint64(cap)
	rec.Sold = uint64(sold)
	rec.UnitScale = uint8(scale)
	rec.PerPurchaseLimit = uint64(limit)
	return &rec, nil
}

// VerifyIntegrity checks the hash chain over the persisted event log and the
// supply invariant over the sale snapshots.
func (s *Service) VerifyIntegrity(ctx context.Context) (*IntegrityReport, error) {
	report := &IntegrityReport{}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e1.sequence
		FROM launchpad.events e1
		LEFT JOIN launchpad.events e2 ON e2.sequence = e1.sequence - 1
		WHERE e1.sequence > 0 AND e1.prev_hash != COALESCE(e2.state_hash, e1.prev_hash)
		ORDER BY e1.sequence
		LIMIT 10
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var seq int64
		if err := rows.Scan(&seq); err != nil {
			return nil, err
		}
		report.HashChainBreaks = append(report.HashChainBreaks, seq)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	saleRows, err := s.db.QueryContext(ctx, `
		SELECT asset_id FROM launchpad.sales WHERE sold > capacity ORDER BY asset_id
	`)
	if err != nil {
		return nil, err
	}
	defer saleRows.Close()

	for saleRows.Next() {
		var asset string
		if err := saleRows.Scan(&asset); err != nil {
			return nil, err
		}
		report.OversoldSales = append(report.OversoldSales, asset)
	}
	if err := saleRows.Err(); err != nil {
		return nil, err
	}

	report.IsHealthy = len(report.HashChainBreaks) == 0 && len(report.OversoldSales) == 0
	return report, nil
}
