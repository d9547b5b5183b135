// Package engine drives the sale lifecycle: launch, purchase, and close,
// plus the platform-level initialize and fee-update operations. Every
// operation follows the same shape — load the current record through the
// storage backend, validate, compute the successor state with checked
// arithmetic, commit it, and only then move custody. No custody transfer
// happens before the state transition is durably recorded.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"launchpad/internal/accumulator"
	"launchpad/internal/backend"
	"launchpad/internal/custody"
	"launchpad/internal/event"
	"launchpad/internal/observability"
	"launchpad/internal/sale"
	"launchpad/internal/settle"
)

// Receipt reports a settled purchase back to the caller.
type Receipt struct {
	AssetID      string       `json:"asset_id"`
	Buyer        uuid.UUID    `json:"buyer"`
	Units        uint64       `json:"units"`
	Payment      uint64       `json:"payment"`
	Fee          uint64       `json:"fee"`
	CreatorShare uint64       `json:"creator_share"`
	SoldOut      bool         `json:"sold_out"`
	Record       *sale.Record `json:"record"`
}

// CloseResult reports a settled close back to the caller.
type CloseResult struct {
	AssetID       string       `json:"asset_id"`
	UnitsReturned uint64       `json:"units_returned"`
	UnitsSold     uint64       `json:"units_sold"`
	Record        *sale.Record `json:"record"`
}

// Engine settles sale operations against one storage backend. Two engines
// over the same Platform, custody service, and recorder give the resident
// and detached strategies identical semantics; only the freshness mechanism
// differs. Resident operations are serialized per asset by the engine
// itself; detached operations rely on witness checking and caller retry,
// so they take no lock here.
type Engine struct {
	platform  *Platform
	store     backend.Backend
	custody   custody.Service
	recorder  *event.Recorder
	metrics   *observability.Metrics
	log       zerolog.Logger
	serialize bool
	locks     *keyedMutex
}

// New creates an engine over the given backend. Resident backends are
// serialized per asset; pass serialize=false for the detached strategy.
func New(
	platform *Platform,
	store backend.Backend,
	custodySvc custody.Service,
	recorder *event.Recorder,
	metrics *observability.Metrics,
	log zerolog.Logger,
	serialize bool,
) *Engine {
	return &Engine{
		platform:  platform,
		store:     store,
		custody:   custodySvc,
		recorder:  recorder,
		metrics:   metrics,
		log:       log,
		serialize: serialize,
		locks:     newKeyedMutex(),
	}
}

// Backend exposes the storage strategy this engine settles against.
func (e *Engine) Backend() backend.Backend {
	return e.store
}

// Platform exposes the shared deployment configuration.
func (e *Engine) Platform() *Platform {
	return e.platform
}

// Initialize performs the one-time platform setup and emits
// PlatformInitialized.
func (e *Engine) Initialize(owner uuid.UUID, stableAsset string, feeBps uint16) error {
	start := time.Now()
	if err := e.platform.Initialize(owner, stableAsset, feeBps); err != nil {
		e.observe("initialize", start, err)
		return err
	}

	e.emit(event.TypePlatformInitialized, "", owner, event.PlatformInitialized{
		Owner:       owner,
		StableAsset: stableAsset,
		FeeBps:      feeBps,
	})
	e.log.Info().
		Str("owner", owner.String()).
		Str("stable_asset", stableAsset).
		Uint16("fee_bps", feeBps).
		Msg("platform initialized")
	e.observe("initialize", start, nil)
	return nil
}

// UpdateFeeRate changes the platform fee rate. Owner only; the new rate
// applies to purchases settled after it, never retroactively.
func (e *Engine) UpdateFeeRate(actor uuid.UUID, newBps uint16) error {
	start := time.Now()
	oldBps, err := e.platform.UpdateFeeRate(actor, newBps)
	if err != nil {
		e.observe("update_fee_rate", start, err)
		return err
	}

	e.emit(event.TypeFeeRateUpdated, "", actor, event.FeeRateUpdated{
		Owner:  actor,
		OldBps: oldBps,
		NewBps: newBps,
	})
	e.log.Info().
		Uint16("old_bps", oldBps).
		Uint16("new_bps", newBps).
		Msg("fee rate updated")
	e.observe("update_fee_rate", start, nil)
	return nil
}

// Launch validates params, allocates the sale record on the backend, and
// funds the sale escrow with the full capacity from the mint reserve. The
// proof is required by the detached backend and ignored by the resident one.
func (e *Engine) Launch(ctx context.Context, params sale.LaunchParams, proof accumulator.Proof) (*sale.Record, error) {
	start := time.Now()
	rec, err := e.launch(ctx, params, proof)
	e.observe("launch", start, err)
	if err != nil {
		return nil, err
	}

	e.metrics.SalesLaunched.Inc()
	e.emit(event.TypeSaleLaunched, rec.AssetID, rec.Creator, event.SaleLaunched{
		AssetID:          rec.AssetID,
		Creator:          rec.Creator,
		Name:             rec.Name,
		Symbol:           rec.Symbol,
		MetadataRef:      rec.MetadataRef,
		PricePerUnit:     rec.PricePerUnit,
		Capacity:         rec.Capacity,
		PerPurchaseLimit: rec.PerPurchaseLimit,
		UnitScale:        rec.UnitScale,
	})
	e.log.Info().
		Str("asset", rec.AssetID).
		Str("creator", rec.Creator.String()).
		Uint64("capacity", rec.Capacity).
		Uint64("price_per_unit", rec.PricePerUnit).
		Str("backend", e.store.Name()).
		Msg("sale launched")
	return rec, nil
}

func (e *Engine) launch(ctx context.Context, params sale.LaunchParams, proof accumulator.Proof) (*sale.Record, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if e.serialize {
		defer e.locks.lock(params.AssetID)()
	}

	rec := sale.NewRecord(params)
	if err := e.store.Create(ctx, rec, proof); err != nil {
		return nil, err
	}

	// The mint reserve is an external boundary account, so this leg cannot
	// fail on funds; any error here is a wiring defect.
	err := e.custody.Transfer(ctx,
		custody.MintReserveAccount(rec.AssetID),
		custody.SaleAccount(rec.AssetID),
		rec.Capacity,
	)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Purchase settles one purchase: quote units from the payment, split the
// fee, advance supply, commit the successor record, then move custody. The
// buyer's stable balance is checked before the commit so the post-commit
// transfer legs cannot fail on funds.
//
// prior is required by the detached backend (last-known record plus
// freshness witness) and must be nil for the resident one. A
// sale.ErrStaleWitness return means another settlement won the race; the
// caller re-fetches and retries.
func (e *Engine) Purchase(ctx context.Context, assetID string, buyer uuid.UUID, payment uint64, prior *backend.Prior, proof accumulator.Proof) (*Receipt, error) {
	start := time.Now()
	receipt, err := e.purchase(ctx, assetID, buyer, payment, prior, proof)
	e.observe("purchase", start, err)
	if err != nil {
		return nil, err
	}

	e.metrics.UnitsSold.WithLabelValues(assetID).Add(float64(receipt.Units))
	if receipt.Payment > 0 {
		e.metrics.PaymentsReceived.WithLabelValues(assetID).Add(float64(receipt.Payment))
		e.metrics.FeesCollected.Add(float64(receipt.Fee))
	}
	if receipt.SoldOut {
		e.metrics.SalesSoldOut.Inc()
	}

	e.emit(event.TypeUnitsPurchased, assetID, buyer, event.UnitsPurchased{
		AssetID:      assetID,
		Buyer:        buyer,
		Payment:      receipt.Payment,
		Units:        receipt.Units,
		Fee:          receipt.Fee,
		CreatorShare: receipt.CreatorShare,
		Sold:         receipt.Record.Sold,
		SoldOut:      receipt.SoldOut,
	})
	e.log.Info().
		Str("asset", assetID).
		Str("buyer", buyer.String()).
		Uint64("payment", receipt.Payment).
		Uint64("units", receipt.Units).
		Bool("sold_out", receipt.SoldOut).
		Str("backend", e.store.Name()).
		Msg("purchase settled")
	return receipt, nil
}

func (e *Engine) purchase(ctx context.Context, assetID string, buyer uuid.UUID, payment uint64, prior *backend.Prior, proof accumulator.Proof) (*Receipt, error) {
	cfg, err := e.platform.Config()
	if err != nil {
		return nil, err
	}
	if e.serialize {
		defer e.locks.lock(assetID)()
	}

	rec, err := e.store.Load(ctx, assetID, prior)
	if err != nil {
		return nil, err
	}
	if !rec.Active {
		return nil, sale.ErrSaleNotActive
	}

	units, err := settle.Quote(payment, rec.PricePerUnit, rec.UnitScale, rec.PerPurchaseLimit)
	if err != nil {
		return nil, err
	}

	var fee, creatorShare uint64
	if rec.PricePerUnit > 0 {
		fee, creatorShare, err = settle.Split(payment, cfg.FeeBps)
		if err != nil {
			return nil, err
		}
	}

	newSold, soldOut, err := settle.Advance(rec.Sold, rec.Capacity, units)
	if err != nil {
		return nil, err
	}

	// Funds preflight: fail before the commit, not between commit and payout.
	if rec.PricePerUnit > 0 {
		bal, err := e.custody.Balance(ctx, custody.UserAccount(buyer, cfg.StableAsset))
		if err != nil {
			return nil, err
		}
		if bal < payment {
			return nil, sale.ErrInsufficientBalance
		}
	}

	next := rec.Clone()
	next.Sold = newSold
	next.Active = !soldOut
	if err := e.store.Commit(ctx, next, prior, proof); err != nil {
		return nil, err
	}
	if e.store.Name() == backend.DetachedName {
		e.metrics.AccumulatorSwaps.Inc()
	}

	if rec.PricePerUnit > 0 {
		escrow := custody.PaymentEscrowAccount(cfg.StableAsset)
		if err := e.custody.Transfer(ctx, custody.UserAccount(buyer, cfg.StableAsset), escrow, payment); err != nil {
			return nil, err
		}
		if fee > 0 {
			if err := e.custody.Transfer(ctx, escrow, custody.PlatformRevenueAccount(cfg.StableAsset), fee); err != nil {
				return nil, err
			}
		}
		if creatorShare > 0 {
			if err := e.custody.Transfer(ctx, escrow, custody.UserAccount(rec.Creator, cfg.StableAsset), creatorShare); err != nil {
				return nil, err
			}
		}
	}
	if err := e.custody.Transfer(ctx, custody.SaleAccount(assetID), custody.UserAccount(buyer, assetID), units); err != nil {
		return nil, err
	}

	return &Receipt{
		AssetID:      assetID,
		Buyer:        buyer,
		Units:        units,
		Payment:      payment,
		Fee:          fee,
		CreatorShare: creatorShare,
		SoldOut:      soldOut,
		Record:       next,
	}, nil
}

// Close deactivates a sale and returns the unsold supply to the creator.
// Creator only; closing an inactive sale fails with sale.ErrAlreadyClosed.
func (e *Engine) Close(ctx context.Context, assetID string, actor uuid.UUID, prior *backend.Prior, proof accumulator.Proof) (*CloseResult, error) {
	start := time.Now()
	res, err := e.close(ctx, assetID, actor, prior, proof)
	e.observe("close", start, err)
	if err != nil {
		return nil, err
	}

	e.metrics.SalesClosed.Inc()
	e.emit(event.TypeSaleClosed, assetID, actor, event.SaleClosed{
		AssetID:       assetID,
		Creator:       actor,
		UnitsReturned: res.UnitsReturned,
		UnitsSold:     res.UnitsSold,
	})
	e.log.Info().
		Str("asset", assetID).
		Uint64("units_returned", res.UnitsReturned).
		Uint64("units_sold", res.UnitsSold).
		Str("backend", e.store.Name()).
		Msg("sale closed")
	return res, nil
}

func (e *Engine) close(ctx context.Context, assetID string, actor uuid.UUID, prior *backend.Prior, proof accumulator.Proof) (*CloseResult, error) {
	if e.serialize {
		defer e.locks.lock(assetID)()
	}

	rec, err := e.store.Load(ctx, assetID, prior)
	if err != nil {
		return nil, err
	}
	if rec.Creator != actor {
		return nil, sale.ErrUnauthorized
	}
	if !rec.Active {
		return nil, sale.ErrAlreadyClosed
	}

	remaining := rec.Remaining()
	next := rec.Clone()
	next.Active = false
	if err := e.store.Commit(ctx, next, prior, proof); err != nil {
		return nil, err
	}
	if e.store.Name() == backend.DetachedName {
		e.metrics.AccumulatorSwaps.Inc()
	}

	if remaining > 0 {
		err := e.custody.Transfer(ctx,
			custody.SaleAccount(assetID),
			custody.UserAccount(rec.Creator, assetID),
			remaining,
		)
		if err != nil {
			return nil, err
		}
	}

	return &CloseResult{
		AssetID:       assetID,
		UnitsReturned: remaining,
		UnitsSold:     next.Sold,
		Record:        next,
	}, nil
}

// Sale returns the current record without settling anything. The detached
// strategy still demands a fresh witness, the same as any settling read.
func (e *Engine) Sale(ctx context.Context, assetID string, prior *backend.Prior) (*sale.Record, error) {
	return e.store.Load(ctx, assetID, prior)
}

func (e *Engine) emit(evtType event.Type, assetID string, actor uuid.UUID, payload any) {
	e.recorder.Emit(evtType, assetID, actor, e.store.Name(), payload)
	e.metrics.EventsEmitted.WithLabelValues(evtType.String()).Inc()
}

func (e *Engine) observe(op string, start time.Time, err error) {
	name := e.store.Name()
	outcome := "ok"
	if err != nil {
		outcome = "error"
		reason := FailureReason(err)
		e.metrics.OperationFailures.WithLabelValues(op, name, reason).Inc()
		switch reason {
		case "stale_witness":
			e.metrics.StaleWitnessRejections.Inc()
		case "invalid_proof":
			e.metrics.InvalidProofRejections.Inc()
		}
	}
	e.metrics.OperationsTotal.WithLabelValues(op, name, outcome).Inc()
	e.metrics.OperationDuration.WithLabelValues(op, name).Observe(time.Since(start).Seconds())
}

// FailureReason maps a settlement error to its stable short name, used as a
// metric label and as the API error code.
func FailureReason(err error) string {
	for _, m := range reasonTable {
		if errors.Is(err, m.err) {
			return m.reason
		}
	}
	return "internal"
}

var reasonTable = []struct {
	err    error
	reason string
}{
	{sale.ErrInvalidNameLength, "invalid_name_length"},
	{sale.ErrInvalidSymbolLength, "invalid_symbol_length"},
	{sale.ErrMetadataTooLong, "metadata_too_long"},
	{sale.ErrInvalidSupply, "invalid_supply"},
	{sale.ErrSupplyTooLarge, "supply_too_large"},
	{sale.ErrPriceTooLow, "price_too_low"},
	{sale.ErrFreeMintRequiresLimit, "free_mint_requires_limit"},
	{sale.ErrLimitExceedsSupply, "limit_exceeds_supply"},
	{sale.ErrInvalidFee, "invalid_fee"},
	{sale.ErrArithmeticOverflow, "arithmetic_overflow"},
	{sale.ErrZeroPayment, "zero_payment"},
	{sale.ErrNonZeroPaymentForFreeMint, "non_zero_payment_for_free_mint"},
	{sale.ErrPaymentTooSmall, "payment_too_small"},
	{sale.ErrPurchaseLimitExceeded, "purchase_limit_exceeded"},
	{sale.ErrLimitNotSet, "limit_not_set"},
	{sale.ErrInsufficientSupply, "insufficient_supply"},
	{sale.ErrSaleNotActive, "sale_not_active"},
	{sale.ErrAlreadyClosed, "already_closed"},
	{sale.ErrSaleExists, "sale_exists"},
	{sale.ErrSaleNotFound, "sale_not_found"},
	{sale.ErrAssetMismatch, "asset_mismatch"},
	{sale.ErrUnauthorized, "unauthorized"},
	{sale.ErrAlreadyInitialized, "already_initialized"},
	{sale.ErrNotInitialized, "not_initialized"},
	{sale.ErrStaleWitness, "stale_witness"},
	{sale.ErrInvalidProof, "invalid_proof"},
	{sale.ErrInsufficientBalance, "insufficient_balance"},
	{sale.ErrTransferFailed, "transfer_failed"},
}
