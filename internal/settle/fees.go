package settle

import (
	"launchpad/internal/sale"

	"github.com/holiman/uint256"
)

const bpsDenominator = 10_000

// Split partitions a gross payment into the platform fee and the creator
// share:
//
//	fee          = floor(payment * feeBps / 10_000)
//	creatorShare = payment - fee
//
// The partition is exact — fee + creatorShare == payment always, with no
// third bucket. feeBps is bounds-checked at configuration time; Split still
// rejects out-of-range rates rather than trusting the caller.
func Split(payment uint64, feeBps uint16) (fee, creatorShare uint64, err error) {
	if feeBps > sale.MaxFeeBps {
		return 0, 0, sale.ErrInvalidFee
	}

	product := new(uint256.Int).Mul(
		uint256.NewInt(payment),
		uint256.NewInt(uint64(feeBps)),
	)
	quotient := new(uint256.Int).Div(product, uint256.NewInt(bpsDenominator))

	if !quotient.IsUint64() {
		return 0, 0, sale.ErrArithmeticOverflow
	}
	fee = quotient.Uint64()

	// feeBps <= 10_000 guarantees fee <= payment, so the subtraction cannot
	// underflow.
	return fee, payment - fee, nil
}
