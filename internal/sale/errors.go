package sale

import "errors"

// Every failure the settlement core can produce is one of these sentinel
// values, possibly wrapped with call-site context. Callers branch with
// errors.Is; nothing is retried or downgraded internally.

// Input validation — rejected before any state is touched.
var (
	ErrInvalidNameLength     = errors.New("name must be between 1 and 32 characters")
	ErrInvalidSymbolLength   = errors.New("symbol must be between 1 and 10 characters")
	ErrMetadataTooLong       = errors.New("metadata reference must be <= 100 characters")
	ErrInvalidSupply         = errors.New("supply must be greater than 0")
	ErrSupplyTooLarge        = errors.New("supply exceeds maximum allowed for this unit scale")
	ErrFreeMintRequiresLimit = errors.New("free mints require a positive per-purchase limit")
	ErrPriceTooLow           = errors.New("price must be at least 1000 stable base units")
	ErrLimitExceedsSupply    = errors.New("per-purchase limit cannot exceed total supply")
	ErrInvalidFee            = errors.New("platform fee must be <= 1000 basis points")
	ErrAlreadyInitialized    = errors.New("platform config already initialized")
	ErrNotInitialized        = errors.New("platform config not initialized")
)

// Arithmetic — surfaced explicitly, never wrapped silently.
var ErrArithmeticOverflow = errors.New("arithmetic overflow")

// Business rules — no state mutation, no transfer on failure.
var (
	ErrSaleNotActive             = errors.New("sale is not active")
	ErrZeroPayment               = errors.New("payment must be positive for paid sales")
	ErrNonZeroPaymentForFreeMint = errors.New("free mints must send zero payment")
	ErrPaymentTooSmall           = errors.New("payment too small: rounds to zero units")
	ErrPurchaseLimitExceeded     = errors.New("purchase exceeds per-purchase limit")
	ErrLimitNotSet               = errors.New("per-purchase limit must be set for this sale")
	ErrInsufficientSupply        = errors.New("insufficient units remaining for this purchase")
	ErrAlreadyClosed             = errors.New("sale is already closed")
	ErrAssetMismatch             = errors.New("asset identifier does not match sale record")
	ErrUnauthorized              = errors.New("unauthorized")
	ErrSaleExists                = errors.New("sale already exists for this asset")
	ErrSaleNotFound              = errors.New("sale not found")
)

// Consistency — detached backend only. The accumulator is untouched on failure.
var (
	ErrStaleWitness = errors.New("stale or invalid freshness witness")
	ErrInvalidProof = errors.New("validity proof rejected")
)

// Collaborator failures from the custody transfer service.
var (
	ErrTransferFailed      = errors.New("custody transfer failed")
	ErrInsufficientBalance = errors.New("insufficient custody balance")
)
