package custody

import (
	"context"
	"fmt"
	"sync"

	"launchpad/internal/sale"
)

// Service is the transfer capability the settlement engine consumes. A
// failed transfer reports sale.ErrTransferFailed or
// sale.ErrInsufficientBalance; the engine treats either as a collaborator
// error with defined pre/post-conditions, never as something to retry.
type Service interface {
	Transfer(ctx context.Context, from, to Account, amount uint64) error
	Balance(ctx context.Context, acct Account) (uint64, error)
}

// Ledger is the in-process Service implementation: a zero-sum double-entry
// balance map. External-scope accounts may go negative (they are the value
// boundary); every other scope is held non-negative, which is what surfaces
// insufficient-balance failures.
type Ledger struct {
	mu       sync.Mutex
	balances map[Account]int64
}

// NewLedger creates an empty custody ledger.
func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[Account]int64),
	}
}

// Transfer moves amount from one custody to another atomically. Zero-amount
// transfers are rejected; callers skip no-op legs instead.
func (l *Ledger) Transfer(_ context.Context, from, to Account, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: zero amount", sale.ErrTransferFailed)
	}
	if from == to {
		return fmt.Errorf("%w: self transfer %s", sale.ErrTransferFailed, from.Path())
	}
	if from.Asset != to.Asset {
		return fmt.Errorf("%w: asset mismatch %s -> %s", sale.ErrTransferFailed, from.Path(), to.Path())
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if from.Scope != ScopeExternal && l.balances[from] < int64(amount) {
		return fmt.Errorf("%w: %s has %d, need %d",
			sale.ErrInsufficientBalance, from.Path(), l.balances[from], amount)
	}

	l.balances[from] -= int64(amount)
	l.balances[to] += int64(amount)
	return nil
}

// Balance returns the current balance of a non-external account.
func (l *Ledger) Balance(_ context.Context, acct Account) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[acct]
	if bal < 0 {
		return 0, nil
	}
	return uint64(bal), nil
}

// Deposit credits an account from the external boundary. Used to fund buyer
// accounts in tests and single-node deployments.
func (l *Ledger) Deposit(ctx context.Context, to Account, amount uint64) error {
	boundary := Account{Scope: ScopeExternal, Entity: "deposits", Asset: to.Asset}
	return l.Transfer(ctx, boundary, to, amount)
}

// GlobalBalance sums every account per asset. A zero-sum ledger returns zero
// for each asset; tests assert this after every operation sequence.
func (l *Ledger) GlobalBalance() map[string]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	totals := make(map[string]int64)
	for acct, bal := range l.balances {
		totals[acct.Asset] += bal
	}
	return totals
}
