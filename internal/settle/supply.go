package settle

import (
	"math/bits"

	"launchpad/internal/sale"
)

// Advance applies a proposed purchase of units against (sold, capacity) and
// returns the new cumulative total plus whether the sale just sold out.
//
// Callers must run Advance — and every other validation — before initiating
// any custody transfer, so a failed or reverted transfer never leaves the
// ledger claiming units that were not actually moved.
func Advance(sold, capacity, units uint64) (newSold uint64, soldOut bool, err error) {
	sum, carry := bits.Add64(sold, units, 0)
	if carry != 0 {
		return 0, false, sale.ErrArithmeticOverflow
	}
	if sum > capacity {
		return 0, false, sale.ErrInsufficientSupply
	}
	return sum, sum == capacity, nil
}
