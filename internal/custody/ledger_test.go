package custody_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"launchpad/internal/custody"
	"launchpad/internal/sale"
)

// ============================================================================
// Test: Account paths
// ============================================================================

func TestAccountPaths(t *testing.T) {
	user := uuid.MustParse("550e8400-e29b-41d4-a716-446655440000")

	if got := custody.UserAccount(user, "USDC").Path(); got != "user:550e8400-e29b-41d4-a716-446655440000:USDC" {
		t.Errorf("user path: got %q", got)
	}
	if got := custody.SaleAccount("TKN").Path(); got != "sale:TKN:TKN" {
		t.Errorf("sale path: got %q", got)
	}
	if got := custody.PaymentEscrowAccount("USDC").Path(); got != "system:payment_escrow:USDC" {
		t.Errorf("escrow path: got %q", got)
	}
	if got := custody.PlatformRevenueAccount("USDC").Path(); got != "system:platform_revenue:USDC" {
		t.Errorf("revenue path: got %q", got)
	}
	if got := custody.MintReserveAccount("TKN").Path(); got != "external:mint_reserve:TKN" {
		t.Errorf("reserve path: got %q", got)
	}
}

// ============================================================================
// Test: Ledger transfers
// ============================================================================

func TestTransfer_MovesBalance(t *testing.T) {
	ctx := context.Background()
	l := custody.NewLedger()
	buyer := custody.UserAccount(uuid.New(), "USDC")

	if err := l.Deposit(ctx, buyer, 10_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}

	escrow := custody.PaymentEscrowAccount("USDC")
	if err := l.Transfer(ctx, buyer, escrow, 2_500); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	if bal, _ := l.Balance(ctx, buyer); bal != 7_500 {
		t.Errorf("buyer balance: got %d, want 7_500", bal)
	}
	if bal, _ := l.Balance(ctx, escrow); bal != 2_500 {
		t.Errorf("escrow balance: got %d, want 2_500", bal)
	}
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	ctx := context.Background()
	l := custody.NewLedger()
	buyer := custody.UserAccount(uuid.New(), "USDC")
	escrow := custody.PaymentEscrowAccount("USDC")

	err := l.Transfer(ctx, buyer, escrow, 1)
	if !errors.Is(err, sale.ErrInsufficientBalance) {
		t.Errorf("got %v, want ErrInsufficientBalance", err)
	}
}

func TestTransfer_ExternalMayGoNegative(t *testing.T) {
	ctx := context.Background()
	l := custody.NewLedger()
	reserve := custody.MintReserveAccount("TKN")
	saleAcct := custody.SaleAccount("TKN")

	if err := l.Transfer(ctx, reserve, saleAcct, 1_000_000); err != nil {
		t.Fatalf("mint transfer: %v", err)
	}
	if bal, _ := l.Balance(ctx, saleAcct); bal != 1_000_000 {
		t.Errorf("sale balance: got %d, want 1_000_000", bal)
	}
}

func TestTransfer_Rejections(t *testing.T) {
	ctx := context.Background()
	l := custody.NewLedger()
	a := custody.UserAccount(uuid.New(), "USDC")
	b := custody.UserAccount(uuid.New(), "TKN")

	if err := l.Transfer(ctx, a, b, 0); !errors.Is(err, sale.ErrTransferFailed) {
		t.Errorf("zero amount: got %v, want ErrTransferFailed", err)
	}
	if err := l.Transfer(ctx, a, a, 10); !errors.Is(err, sale.ErrTransferFailed) {
		t.Errorf("self transfer: got %v, want ErrTransferFailed", err)
	}
	if err := l.Transfer(ctx, a, b, 10); !errors.Is(err, sale.ErrTransferFailed) {
		t.Errorf("asset mismatch: got %v, want ErrTransferFailed", err)
	}
}

func TestLedger_ZeroSumPerAsset(t *testing.T) {
	ctx := context.Background()
	l := custody.NewLedger()
	buyer := custody.UserAccount(uuid.New(), "USDC")
	creator := custody.UserAccount(uuid.New(), "USDC")

	if err := l.Deposit(ctx, buyer, 50_000); err != nil {
		t.Fatalf("deposit: %v", err)
	}
	escrow := custody.PaymentEscrowAccount("USDC")
	if err := l.Transfer(ctx, buyer, escrow, 10_000); err != nil {
		t.Fatalf("to escrow: %v", err)
	}
	if err := l.Transfer(ctx, escrow, custody.PlatformRevenueAccount("USDC"), 250); err != nil {
		t.Fatalf("fee: %v", err)
	}
	if err := l.Transfer(ctx, escrow, creator, 9_750); err != nil {
		t.Fatalf("creator share: %v", err)
	}

	for asset, total := range l.GlobalBalance() {
		if total != 0 {
			t.Errorf("asset %s: global balance %d, want 0", asset, total)
		}
	}
}
