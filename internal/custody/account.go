// Package custody models the holding locations the settlement engine moves
// assets between, and the transfer service it consumes as an opaque
// capability. The engine never manipulates balances directly; it only names
// a source custody, a destination custody, and an amount.
package custody

import (
	"fmt"

	"github.com/google/uuid"
)

// Scope is the top-level custody namespace.
type Scope uint8

const (
	// ScopeUser holds assets owned by an end user (buyer or creator).
	ScopeUser Scope = iota
	// ScopeSale is the per-sale escrow that holds unsold supply.
	ScopeSale
	// ScopeSystem holds platform-operated accounts (payment escrow, revenue).
	ScopeSystem
	// ScopeExternal marks boundary accounts such as mint reserves. External
	// accounts may carry negative balances; they are where value enters and
	// leaves the zero-sum ledger.
	ScopeExternal
)

// Account identifies one custody location for one asset.
type Account struct {
	Scope  Scope
	Entity string
	Asset  string
}

// UserAccount is a user's holding for an asset.
func UserAccount(user uuid.UUID, asset string) Account {
	return Account{Scope: ScopeUser, Entity: user.String(), Asset: asset}
}

// SaleAccount is the sale escrow holding unsold units of the sale asset.
func SaleAccount(saleAsset string) Account {
	return Account{Scope: ScopeSale, Entity: saleAsset, Asset: saleAsset}
}

// PaymentEscrowAccount is the platform's transient payment escrow: buyer
// payments land here before the fee/creator split is paid out.
func PaymentEscrowAccount(stableAsset string) Account {
	return Account{Scope: ScopeSystem, Entity: "payment_escrow", Asset: stableAsset}
}

// PlatformRevenueAccount accumulates skimmed platform fees.
func PlatformRevenueAccount(stableAsset string) Account {
	return Account{Scope: ScopeSystem, Entity: "platform_revenue", Asset: stableAsset}
}

// MintReserveAccount is the external boundary the launch operation draws
// freshly minted supply from.
func MintReserveAccount(saleAsset string) Account {
	return Account{Scope: ScopeExternal, Entity: "mint_reserve", Asset: saleAsset}
}

// Path returns the string form used in logs, events, and persistence.
func (a Account) Path() string {
	return fmt.Sprintf("%s:%s:%s", a.scopeName(), a.Entity, a.Asset)
}

func (a Account) scopeName() string {
	switch a.Scope {
	case ScopeUser:
		return "user"
	case ScopeSale:
		return "sale"
	case ScopeSystem:
		return "system"
	case ScopeExternal:
		return "external"
	}
	return "unknown"
}
