// Package settle holds the pure settlement math: pricing conversion, fee
// split, and supply accounting. Every function is deterministic, has no side
// effects, and surfaces overflow explicitly instead of wrapping. Both storage
// backends route through these same functions, which is what makes the
// resident and detached representations byte-identical.
package settle

import (
	"launchpad/internal/sale"

	"github.com/holiman/uint256"
)

// Quote converts a payment amount into sale-asset base units:
//
//	units = floor(payment * 10^unitScale / pricePerUnit)
//
// Intermediates are 256-bit so the multiplication itself cannot wrap; a
// quotient that does not fit uint64 is reported as overflow. Floor division is
// deliberate: any remainder is a rounding loss retained by the payer, never
// refunded.
//
// Free-mint sales (pricePerUnit == 0) take no payment and always deliver
// exactly the per-purchase limit, which launch validation guarantees is set.
func Quote(payment, pricePerUnit uint64, unitScale uint8, perPurchaseLimit uint64) (uint64, error) {
	if pricePerUnit == 0 {
		if payment != 0 {
			return 0, sale.ErrNonZeroPaymentForFreeMint
		}
		if perPurchaseLimit == 0 {
			return 0, sale.ErrLimitNotSet
		}
		return perPurchaseLimit, nil
	}

	if payment == 0 {
		return 0, sale.ErrZeroPayment
	}

	scaled := new(uint256.Int).Mul(
		uint256.NewInt(payment),
		pow10(unitScale),
	)
	quotient := new(uint256.Int).Div(scaled, uint256.NewInt(pricePerUnit))

	if !quotient.IsUint64() {
		return 0, sale.ErrArithmeticOverflow
	}
	units := quotient.Uint64()

	if units == 0 {
		return 0, sale.ErrPaymentTooSmall
	}
	if perPurchaseLimit > 0 && units > perPurchaseLimit {
		return 0, sale.ErrPurchaseLimitExceeded
	}

	return units, nil
}

// pow10 returns 10^scale as a 256-bit integer. Scales up to 77 are exact;
// launch validation caps unit scales far below that, so callers never reach
// the wrap region.
func pow10(scale uint8) *uint256.Int {
	return new(uint256.Int).Exp(uint256.NewInt(10), uint256.NewInt(uint64(scale)))
}
