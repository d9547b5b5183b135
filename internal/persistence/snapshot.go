package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"launchpad/internal/sale"
)

// SaleStore persists resident sale records and the platform configuration so
// a restart restores the resident store instead of cold-starting empty. The
// detached strategy needs none of this: its records live with the callers and
// only leaf hashes are resident.
type SaleStore struct {
	db *sql.DB
}

// NewSaleStore wraps a database handle.
func NewSaleStore(db *sql.DB) *SaleStore {
	return &SaleStore{db: db}
}

// SaveSales upserts a snapshot of sale records.
func (s *SaleStore) SaveSales(ctx context.Context, records []*sale.Record) error {
	if len(records) == 0 {
		return nil
	}

	query := `INSERT INTO launchpad.sales
		(asset_id, creator, price_per_unit, capacity, sold, active, unit_scale, per_purchase_limit, name, symbol, metadata_ref)
		VALUES `

	values := make([]string, 0, len(records))
	args := make([]any, 0, len(records)*11)

	for i, r := range records {
		base := i * 11
		values = append(values, fmt.Sprintf(
			"($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6,
			base+7, base+8, base+9, base+10, base+11,
		))
		args = append(args,
			r.AssetID, r.Creator.String(), int64(r.PricePerUnit), int64(r.Capacity),
			int64(r.Sold), r.Active, int16(r.UnitScale), int64(r.PerPurchaseLimit),
			r.Name, r.Symbol, r.MetadataRef,
		)
	}

	query += strings.Join(values, ", ")
	query += ` ON CONFLICT (asset_id) DO UPDATE SET
		sold = EXCLUDED.sold,
		active = EXCLUDED.active`

	_, err := s.db.ExecContext(ctx, query, args...)
	return err
}

// LoadSales reads every persisted sale record.
func (s *SaleStore) LoadSales(ctx context.Context) ([]*sale.Record, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, creator, price_per_unit, capacity, sold, active, unit_scale, per_purchase_limit, name, symbol, metadata_ref
		FROM launchpad.sales
		ORDER BY asset_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*sale.Record
	for rows.Next() {
		var (
			rec     sale.Record
			creator string
			price   int64
			cap     int64
			sold    int64
			scale   int16
			limit   int64
		)
		if err := rows.Scan(
			&rec.AssetID, &creator, &price, &cap, &sold, &rec.Active,
			&scale, &limit, &rec.Name, &rec.Symbol, &rec.MetadataRef,
		); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(creator)
		if err != nil {
			return nil, fmt.Errorf("parse creator for %s: %w", rec.AssetID, err)
		}
		rec.Creator = id
		rec.PricePerUnit = uint64(price)
		rec.Capacity = uint64(cap)
		rec.Sold = uint64(sold)
		rec.UnitScale = uint8(scale)
		rec.PerPurchaseLimit = uint64(limit)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// SaveConfig upserts the singleton platform configuration.
func (s *SaleStore) SaveConfig(ctx context.Context, cfg sale.PlatformConfig) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO launchpad.platform_config (id, owner, stable_asset, fee_bps)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET fee_bps = EXCLUDED.fee_bps
	`, cfg.Owner.String(), cfg.StableAsset, int32(cfg.FeeBps))
	return err
}

// LoadConfig reads the platform configuration; (nil, nil) means the platform
// was never initialized.
func (s *SaleStore) LoadConfig(ctx context.Context) (*sale.PlatformConfig, error) {
	var (
		owner  string
		asset  string
		feeBps int32
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT owner, stable_asset, fee_bps FROM launchpad.platform_config WHERE id = 1
	`).Scan(&owner, &asset, &feeBps)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	id, err := uuid.Parse(owner)
	if err != nil {
		return nil, fmt.Errorf("parse platform owner: %w", err)
	}
	return &sale.PlatformConfig{
		Owner:       id,
		StableAsset: asset,
		FeeBps:      uint16(feeBps),
	}, nil
}
