package settle_test

import (
	"errors"
	"math"
	"testing"

	"launchpad/internal/sale"
	"launchpad/internal/settle"
)

// ============================================================================
// Test: Quote (paid sales)
// ============================================================================

func TestQuote_BaseUnitsFromPayment(t *testing.T) {
	// 2_500 stable base units at price 1_000 per whole unit, 6-decimal asset:
	// 2_500 * 10^6 / 1_000 = 2_500_000 base units.
	units, err := settle.Quote(2_500, 1_000, 6, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if units != 2_500_000 {
		t.Errorf("got %d units, want 2_500_000", units)
	}
}

func TestQuote_NonExactDivisionTruncates(t *testing.T) {
	// 2_501 / 1_000 at scale 0 floors to 2; the remainder is kept by the
	// payer side of the split, never minted.
	units, err := settle.Quote(2_501, 1_000, 0, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if units != 2 {
		t.Errorf("got %d units, want 2", units)
	}
}

func TestQuote_ZeroPaymentRejected(t *testing.T) {
	_, err := settle.Quote(0, 1_000, 6, 0)
	if !errors.Is(err, sale.ErrZeroPayment) {
		t.Errorf("got %v, want ErrZeroPayment", err)
	}
}

func TestQuote_PaymentTooSmall(t *testing.T) {
	// 999 / 1_000 at scale 0 rounds to zero units.
	_, err := settle.Quote(999, 1_000, 0, 0)
	if !errors.Is(err, sale.ErrPaymentTooSmall) {
		t.Errorf("got %v, want ErrPaymentTooSmall", err)
	}
}

func TestQuote_PurchaseLimitEnforced(t *testing.T) {
	_, err := settle.Quote(2_500, 1_000, 6, 1_000_000)
	if !errors.Is(err, sale.ErrPurchaseLimitExceeded) {
		t.Errorf("got %v, want ErrPurchaseLimitExceeded", err)
	}
}

func TestQuote_AtLimitAccepted(t *testing.T) {
	units, err := settle.Quote(2_500, 1_000, 6, 2_500_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if units != 2_500_000 {
		t.Errorf("got %d units, want 2_500_000", units)
	}
}

func TestQuote_OverflowDetected(t *testing.T) {
	// max uint64 payment at scale 6, price 1_000 scales up by 1_000x and
	// cannot fit back into uint64.
	_, err := settle.Quote(math.MaxUint64, 1_000, 6, 0)
	if !errors.Is(err, sale.ErrArithmeticOverflow) {
		t.Errorf("got %v, want ErrArithmeticOverflow", err)
	}
}

// ============================================================================
// Test: Quote (free mints)
// ============================================================================

func TestQuote_FreeMintDeliversLimit(t *testing.T) {
	units, err := settle.Quote(0, 0, 6, 500)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if units != 500 {
		t.Errorf("got %d units, want 500", units)
	}
}

func TestQuote_FreeMintRejectsPayment(t *testing.T) {
	_, err := settle.Quote(1, 0, 6, 500)
	if !errors.Is(err, sale.ErrNonZeroPaymentForFreeMint) {
		t.Errorf("got %v, want ErrNonZeroPaymentForFreeMint", err)
	}
}

func TestQuote_FreeMintWithoutLimitRejected(t *testing.T) {
	_, err := settle.Quote(0, 0, 6, 0)
	if !errors.Is(err, sale.ErrLimitNotSet) {
		t.Errorf("got %v, want ErrLimitNotSet", err)
	}
}

// ============================================================================
// Test: Split
// ============================================================================

func TestSplit_BasisPoints(t *testing.T) {
	// 250 bps of 10_000 is 250.
	fee, share, err := settle.Split(10_000, 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee != 250 {
		t.Errorf("fee: got %d, want 250", fee)
	}
	if share != 9_750 {
		t.Errorf("creator share: got %d, want 9_750", share)
	}
}

func TestSplit_FeeFloors(t *testing.T) {
	// 250 bps of 999 is 24.975, floored to 24.
	fee, share, err := settle.Split(999, 250)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee != 24 {
		t.Errorf("fee: got %d, want 24", fee)
	}
	if share != 975 {
		t.Errorf("creator share: got %d, want 975", share)
	}
}

func TestSplit_ZeroFeeRate(t *testing.T) {
	fee, share, err := settle.Split(10_000, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fee != 0 || share != 10_000 {
		t.Errorf("got fee=%d share=%d, want 0 and 10_000", fee, share)
	}
}

func TestSplit_RateAboveCapRejected(t *testing.T) {
	_, _, err := settle.Split(10_000, 1_001)
	if !errors.Is(err, sale.ErrInvalidFee) {
		t.Errorf("got %v, want ErrInvalidFee", err)
	}
}

func TestSplit_ExactPartition(t *testing.T) {
	// fee + creator share must reassemble the payment exactly for any
	// payment and rate.
	payments := []uint64{1, 3, 999, 10_000, 123_456_789, math.MaxUint64}
	rates := []uint16{0, 1, 97, 250, 500, 999, 1_000}

	for _, p := range payments {
		for _, bps := range rates {
			fee, share, err := settle.Split(p, bps)
			if err != nil {
				t.Fatalf("Split(%d, %d): %v", p, bps, err)
			}
			if fee+share != p {
				t.Errorf("Split(%d, %d): fee %d + share %d != payment", p, bps, fee, share)
			}
		}
	}
}

// ============================================================================
// Test: Advance
// ============================================================================

func TestAdvance_Accumulates(t *testing.T) {
	newSold, soldOut, err := settle.Advance(100, 1_000, 50)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newSold != 150 {
		t.Errorf("got sold=%d, want 150", newSold)
	}
	if soldOut {
		t.Error("should not be sold out")
	}
}

func TestAdvance_ExactSelloutFlips(t *testing.T) {
	newSold, soldOut, err := settle.Advance(900, 1_000, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if newSold != 1_000 {
		t.Errorf("got sold=%d, want 1_000", newSold)
	}
	if !soldOut {
		t.Error("exact sellout should flip sold_out")
	}
}

func TestAdvance_OversellRejected(t *testing.T) {
	_, _, err := settle.Advance(900, 1_000, 101)
	if !errors.Is(err, sale.ErrInsufficientSupply) {
		t.Errorf("got %v, want ErrInsufficientSupply", err)
	}
}

func TestAdvance_CarryOverflowRejected(t *testing.T) {
	_, _, err := settle.Advance(math.MaxUint64, math.MaxUint64, 1)
	if !errors.Is(err, sale.ErrArithmeticOverflow) {
		t.Errorf("got %v, want ErrArithmeticOverflow", err)
	}
}
