// Package api is the HTTP surface: gin handlers over the two settlement
// engines. The resident strategy is the default; requests select the
// detached one with "backend": "detached" and must then carry the prior
// record, its freshness witness, and a validity proof.
package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"launchpad/internal/accumulator"
	"launchpad/internal/backend"
	"launchpad/internal/engine"
	"launchpad/internal/sale"
)

type handler struct {
	resident *engine.Engine
	detached *engine.Engine
	tree     *accumulator.Tree
	log      zerolog.Logger
}

// NewHandler creates the HTTP handler set over the two engines.
func NewHandler(resident, detached *engine.Engine, tree *accumulator.Tree, log zerolog.Logger) *handler {
	return &handler{
		resident: resident,
		detached: detached,
		tree:     tree,
		log:      log,
	}
}

func (h *handler) engineFor(name string) (*engine.Engine, error) {
	switch name {
	case "", backend.ResidentName:
		return h.resident, nil
	case backend.DetachedName:
		return h.detached, nil
	default:
		return nil, errors.New("unknown backend: " + name)
	}
}

func (h *handler) handleInitialize(c *gin.Context) {
	var req struct {
		Owner       uuid.UUID `json:"owner"`
		StableAsset string    `json:"stable_asset"`
		FeeBps      uint16    `json:"fee_bps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if req.StableAsset == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "stable_asset is required"})
		return
	}

	if err := h.resident.Initialize(req.Owner, req.StableAsset, req.FeeBps); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"owner":        req.Owner,
		"stable_asset": req.StableAsset,
		"fee_bps":      req.FeeBps,
	})
}

func (h *handler) handleUpdateFee(c *gin.Context) {
	var req struct {
		Actor  uuid.UUID `json:"actor"`
		FeeBps uint16    `json:"fee_bps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	if err := h.resident.UpdateFeeRate(req.Actor, req.FeeBps); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"fee_bps": req.FeeBps})
}

func (h *handler) handleGetPlatform(c *gin.Context) {
	cfg, err := h.resident.Platform().Config()
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

func (h *handler) handleLaunch(c *gin.Context) {
	var req struct {
		Backend          string    `json:"backend"`
		Creator          uuid.UUID `json:"creator"`
		AssetID          string    `json:"asset_id"`
		Name             string    `json:"name"`
		Symbol           string    `json:"symbol"`
		MetadataRef      string    `json:"metadata_ref"`
		Capacity         uint64    `json:"capacity"`
		PricePerUnit     uint64    `json:"price_per_unit"`
		PerPurchaseLimit uint64    `json:"per_purchase_limit"`
		UnitScale        uint8     `json:"unit_scale"`
		Proof            string    `json:"proof,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}
	if req.AssetID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "asset_id is required"})
		return
	}

	eng, err := h.engineFor(req.Backend)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	proof, err := parseProof(req.Proof)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proof encoding"})
		return
	}

	rec, err := eng.Launch(c.Request.Context(), sale.LaunchParams{
		Creator:          req.Creator,
		AssetID:          req.AssetID,
		Name:             req.Name,
		Symbol:           req.Symbol,
		MetadataRef:      req.MetadataRef,
		Capacity:         req.Capacity,
		PricePerUnit:     req.PricePerUnit,
		PerPurchaseLimit: req.PerPurchaseLimit,
		UnitScale:        req.UnitScale,
	}, proof)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (h *handler) handlePurchase(c *gin.Context) {
	assetID := c.Param("asset")
	var req struct {
		Backend string     `json:"backend"`
		Buyer   uuid.UUID  `json:"buyer"`
		Payment uint64     `json:"payment"`
		Prior   *priorJSON `json:"prior,omitempty"`
		Proof   string     `json:"proof,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	eng, err := h.engineFor(req.Backend)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prior, err := req.Prior.toPrior()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid witness encoding"})
		return
	}
	proof, err := parseProof(req.Proof)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proof encoding"})
		return
	}

	receipt, err := eng.Purchase(c.Request.Context(), assetID, req.Buyer, req.Payment, prior, proof)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, receipt)
}

func (h *handler) handleClose(c *gin.Context) {
	assetID := c.Param("asset")
	var req struct {
		Backend string     `json:"backend"`
		Actor   uuid.UUID  `json:"actor"`
		Prior   *priorJSON `json:"prior,omitempty"`
		Proof   string     `json:"proof,omitempty"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	eng, err := h.engineFor(req.Backend)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prior, err := req.Prior.toPrior()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid witness encoding"})
		return
	}
	proof, err := parseProof(req.Proof)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid proof encoding"})
		return
	}

	res, err := eng.Close(c.Request.Context(), assetID, req.Actor, prior, proof)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// handleGetSale serves the resident view of a sale. Detached records are not
// server-resident; their holders read their own copy and verify freshness via
// the witness endpoint.
func (h *handler) handleGetSale(c *gin.Context) {
	rec, err := h.resident.Sale(c.Request.Context(), c.Param("asset"), nil)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// handleGetWitness serves a fresh witness for a detached sale's current leaf.
func (h *handler) handleGetWitness(c *gin.Context) {
	w, err := h.tree.WitnessFor(c.Param("asset"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, witnessToJSON(w))
}

func (h *handler) handleGetRoot(c *gin.Context) {
	root := h.tree.Root()
	c.JSON(http.StatusOK, gin.H{
		"root":   witnessToJSON(&accumulator.Witness{Root: root}).Root,
		"leaves": h.tree.Len(),
	})
}

// respondError maps settlement sentinels onto HTTP statuses. The body always
// carries the stable reason code so clients can branch without parsing
// messages.
func (h *handler) respondError(c *gin.Context, err error) {
	reason := engine.FailureReason(err)
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("operation failed")
	}
	c.JSON(status, gin.H{
		"error":  err.Error(),
		"reason": reason,
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, sale.ErrSaleNotFound):
		return http.StatusNotFound
	case errors.Is(err, sale.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, sale.ErrSaleExists),
		errors.Is(err, sale.ErrAlreadyInitialized),
		errors.Is(err, sale.ErrAlreadyClosed),
		errors.Is(err, sale.ErrStaleWitness):
		return http.StatusConflict
	case errors.Is(err, sale.ErrInvalidProof):
		return http.StatusUnprocessableEntity
	case errors.Is(err, sale.ErrTransferFailed):
		return http.StatusInternalServerError
	case errors.Is(err, sale.ErrNotInitialized),
		errors.Is(err, sale.ErrSaleNotActive),
		errors.Is(err, sale.ErrInsufficientSupply),
		errors.Is(err, sale.ErrInsufficientBalance),
		errors.Is(err, sale.ErrArithmeticOverflow),
		errors.Is(err, sale.ErrZeroPayment),
		errors.Is(err, sale.ErrNonZeroPaymentForFreeMint),
		errors.Is(err, sale.ErrPaymentTooSmall),
		errors.Is(err, sale.ErrPurchaseLimitExceeded),
		errors.Is(err, sale.ErrLimitNotSet),
		errors.Is(err, sale.ErrAssetMismatch):
		return http.StatusBadRequest
	}
	if engine.FailureReason(err) != "internal" {
		// Remaining mapped reasons are launch/config validation failures.
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
