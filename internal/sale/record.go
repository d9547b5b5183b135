package sale

import (
	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// MinPricePerUnit is the anti-dust price floor for paid sales, in stable-asset
// base units (0.001 of a 6-decimal stable asset).
const MinPricePerUnit = 1_000

// MaxFeeBps caps the platform fee at 10%.
const MaxFeeBps = 1_000

// capacityCeilingFactor bounds capacity to 10^unit_scale * 10^9 so downstream
// pricing arithmetic on base units cannot overflow.
const capacityCeilingFactor = 1_000_000_000

// Record is the canonical state of one sale. It exists in two representations
// with identical fields: resident (directly addressable, mutated in place) and
// detached (a leaf in the authenticated accumulator, replaced via witnessed
// swaps). The settlement math never distinguishes the two.
type Record struct {
	Creator uuid.UUID `json:"creator"`
	AssetID string    `json:"asset_id"`

	// PricePerUnit is the payment per whole sale unit in stable-asset base
	// units. Zero means free mint.
	PricePerUnit uint64 `json:"price_per_unit"`

	Capacity uint64 `json:"capacity"` // total base units offered
	Sold     uint64 `json:"sold"`     // cumulative base units distributed
	Active   bool   `json:"active"`

	// UnitScale is the power-of-ten decimal scale of the sale asset.
	UnitScale uint8 `json:"unit_scale"`

	// PerPurchaseLimit caps base units per purchase. Zero means unlimited,
	// except for free mints where a positive limit is mandatory.
	PerPurchaseLimit uint64 `json:"per_purchase_limit"`

	// Descriptive metadata, immutable after launch.
	Name        string `json:"name"`
	Symbol      string `json:"symbol"`
	MetadataRef string `json:"metadata_ref"`
}

// Remaining returns the undistributed capacity.
func (r *Record) Remaining() uint64 {
	return r.Capacity - r.Sold
}

// Clone returns an independent copy.
func (r *Record) Clone() *Record {
	c := *r
	return &c
}

// CheckInvariants validates the record-level invariants that must hold at
// every operation boundary, on either backend.
func (r *Record) CheckInvariants() error {
	if r.Sold > r.Capacity {
		return ErrInsufficientSupply
	}
	if r.Sold == r.Capacity && r.Active {
		return ErrSaleNotActive
	}
	if r.PricePerUnit == 0 && r.PerPurchaseLimit == 0 {
		return ErrFreeMintRequiresLimit
	}
	if r.PricePerUnit != 0 && r.PricePerUnit < MinPricePerUnit {
		return ErrPriceTooLow
	}
	return nil
}

// CanonicalBytes returns a deterministic byte encoding of the record, used
// for accumulator leaves and state hashing. Layout: creator (16 bytes),
// length-prefixed asset id, fixed-width LE integers, flags, then
// length-prefixed metadata strings.
func (r *Record) CanonicalBytes() []byte {
	buf := make([]byte, 0, 128)

	buf = append(buf, r.Creator[:]...)

	buf = append(buf, byte(len(r.AssetID)))
	buf = append(buf, []byte(r.AssetID)...)

	buf = appendUint64LE(buf, r.PricePerUnit)
	buf = appendUint64LE(buf, r.Capacity)
	buf = appendUint64LE(buf, r.Sold)

	if r.Active {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}

	buf = append(buf, r.UnitScale)
	buf = appendUint64LE(buf, r.PerPurchaseLimit)

	buf = append(buf, byte(len(r.Name)))
	buf = append(buf, []byte(r.Name)...)
	buf = append(buf, byte(len(r.Symbol)))
	buf = append(buf, []byte(r.Symbol)...)
	buf = append(buf, byte(len(r.MetadataRef)))
	buf = append(buf, []byte(r.MetadataRef)...)

	return buf
}

func appendUint64LE(buf []byte, v uint64) []byte {
	return append(buf,
		byte(v),
		byte(v>>8),
		byte(v>>16),
		byte(v>>24),
		byte(v>>32),
		byte(v>>40),
		byte(v>>48),
		byte(v>>56),
	)
}

// LaunchParams carries everything a launch operation validates.
type LaunchParams struct {
	Creator          uuid.UUID
	AssetID          string
	Name             string
	Symbol           string
	MetadataRef      string
	Capacity         uint64
	PricePerUnit     uint64
	PerPurchaseLimit uint64
	UnitScale        uint8
}

// Validate applies the launch validation rules. No partial state is committed
// on failure; callers only build a Record from params that passed.
func (p *LaunchParams) Validate() error {
	if len(p.Name) == 0 || len(p.Name) > 32 {
		return ErrInvalidNameLength
	}
	if len(p.Symbol) == 0 || len(p.Symbol) > 10 {
		return ErrInvalidSymbolLength
	}
	if len(p.MetadataRef) > 100 {
		return ErrMetadataTooLong
	}
	if p.Capacity == 0 {
		return ErrInvalidSupply
	}

	ceiling, err := capacityCeiling(p.UnitScale)
	if err != nil {
		return err
	}
	if p.Capacity > ceiling {
		return ErrSupplyTooLarge
	}

	if p.PricePerUnit == 0 {
		if p.PerPurchaseLimit == 0 {
			return ErrFreeMintRequiresLimit
		}
	} else {
		if p.PricePerUnit < MinPricePerUnit {
			return ErrPriceTooLow
		}
		if p.PerPurchaseLimit > 0 && p.PerPurchaseLimit > p.Capacity {
			return ErrLimitExceedsSupply
		}
	}

	return nil
}

// NewRecord builds an Active record with zero progress from validated params.
func NewRecord(p LaunchParams) *Record {
	return &Record{
		Creator:          p.Creator,
		AssetID:          p.AssetID,
		PricePerUnit:     p.PricePerUnit,
		Capacity:         p.Capacity,
		Sold:             0,
		Active:           true,
		UnitScale:        p.UnitScale,
		PerPurchaseLimit: p.PerPurchaseLimit,
		Name:             p.Name,
		Symbol:           p.Symbol,
		MetadataRef:      p.MetadataRef,
	}
}

// capacityCeiling computes 10^scale * 10^9 with the same checked-uint64
// semantics the settlement math uses: a ceiling that does not fit uint64 is an
// arithmetic overflow, not a silently saturated bound.
func capacityCeiling(scale uint8) (uint64, error) {
	// 10^20 already exceeds uint64 before the 10^9 factor; reject early so
	// the 256-bit exponentiation below can never wrap.
	if scale > 19 {
		return 0, ErrArithmeticOverflow
	}
	pow := new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(scale)))
	ceiling := new(uint256.Int).Mul(pow, uint256.NewInt(capacityCeilingFactor))
	if !ceiling.IsUint64() {
		return 0, ErrArithmeticOverflow
	}
	return ceiling.Uint64(), nil
}

// PlatformConfig is the singleton deployment configuration: the platform
// owner, the stable payment asset, and the fee rate applied to paid
// purchases. Created once; only FeeBps is ever mutated, by the owner.
type PlatformConfig struct {
	Owner       uuid.UUID `json:"owner"`
	StableAsset string    `json:"stable_asset"`
	FeeBps      uint16    `json:"fee_bps"`
}

// ValidateFeeBps bounds a fee rate for initialize and fee updates.
func ValidateFeeBps(bps uint16) error {
	if bps > MaxFeeBps {
		return ErrInvalidFee
	}
	return nil
}
