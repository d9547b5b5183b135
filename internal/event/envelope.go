package event

import (
	"time"

	"github.com/google/uuid"
)

// Type discriminator for event payloads.
type Type int32

const (
	TypeUnknown Type = iota
	TypePlatformInitialized
	TypeFeeRateUpdated
	TypeSaleLaunched
	TypeUnitsPurchased
	TypeSaleClosed
)

func (t Type) String() string {
	switch t {
	case TypePlatformInitialized:
		return "PlatformInitialized"
	case TypeFeeRateUpdated:
		return "FeeRateUpdated"
	case TypeSaleLaunched:
		return "SaleLaunched"
	case TypeUnitsPurchased:
		return "UnitsPurchased"
	case TypeSaleClosed:
		return "SaleClosed"
	default:
		return "Unknown"
	}
}

// Envelope is the immutable record emitted after every successful operation,
// for external indexing. Emission is best-effort and never gates settlement.
type Envelope struct {
	// Monotonic sequence assigned at emission.
	Sequence int64

	EventType Type

	// Sale asset context; empty for platform-level events.
	AssetID string

	// The actor that drove the operation (creator, buyer, or owner).
	Actor uuid.UUID

	// Storage strategy the operation ran against.
	Backend string

	Timestamp time.Time

	// JSON-encoded payload, one of the structs in events.go.
	Payload []byte

	// SHA-256 chain over emitted envelopes: StateHash covers this envelope's
	// digest, PrevHash is the previous envelope's StateHash.
	StateHash [32]byte
	PrevHash  [32]byte
}

// SaleLaunched is emitted when a sale record is allocated and funded.
type SaleLaunched struct {
	AssetID          string    `json:"asset_id"`
	Creator          uuid.UUID `json:"creator"`
	Name             string    `json:"name"`
	Symbol           string    `json:"symbol"`
	MetadataRef      string    `json:"metadata_ref"`
	PricePerUnit     uint64    `json:"price_per_unit"`
	Capacity         uint64    `json:"capacity"`
	PerPurchaseLimit uint64    `json:"per_purchase_limit"`
	UnitScale        uint8     `json:"unit_scale"`
}

// UnitsPurchased is emitted for every settled purchase, paid or free.
type UnitsPurchased struct {
	AssetID      string    `json:"asset_id"`
	Buyer        uuid.UUID `json:"buyer"`
	Payment      uint64    `json:"payment"`
	Units        uint64    `json:"units"`
	Fee          uint64    `json:"fee"`
	CreatorShare uint64    `json:"creator_share"`
	Sold         uint64    `json:"sold"`
	SoldOut      bool      `json:"sold_out"`
}

// SaleClosed is emitted when a creator closes a sale.
type SaleClosed struct {
	AssetID       string    `json:"asset_id"`
	Creator       uuid.UUID `json:"creator"`
	UnitsReturned uint64    `json:"units_returned"`
	UnitsSold     uint64    `json:"units_sold"`
}

// PlatformInitialized is emitted once at platform setup.
type PlatformInitialized struct {
	Owner       uuid.UUID `json:"owner"`
	StableAsset string    `json:"stable_asset"`
	FeeBps      uint16    `json:"fee_bps"`
}

// FeeRateUpdated is emitted on an owner fee-rate change.
type FeeRateUpdated struct {
	Owner  uuid.UUID `json:"owner"`
	OldBps uint16    `json:"old_bps"`
	NewBps uint16    `json:"new_bps"`
}
