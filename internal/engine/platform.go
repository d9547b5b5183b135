package engine

import (
	"sync"

	"github.com/google/uuid"

	"launchpad/internal/sale"
)

// Platform holds the singleton deployment configuration. It is shared by
// every engine instance in the process so the resident and detached
// strategies settle against the same fee rate. Created once via Initialize;
// only the fee rate is ever mutated, by the owner.
type Platform struct {
	mu  sync.RWMutex
	cfg *sale.PlatformConfig
}

// NewPlatform creates an uninitialized platform.
func NewPlatform() *Platform {
	return &Platform{}
}

// Initialize performs the one-time setup.
func (p *Platform) Initialize(owner uuid.UUID, stableAsset string, feeBps uint16) error {
	if err := sale.ValidateFeeBps(feeBps); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg != nil {
		return sale.ErrAlreadyInitialized
	}
	p.cfg = &sale.PlatformConfig{
		Owner:       owner,
		StableAsset: stableAsset,
		FeeBps:      feeBps,
	}
	return nil
}

// UpdateFeeRate changes the fee rate. Owner only.
func (p *Platform) UpdateFeeRate(actor uuid.UUID, newBps uint16) (oldBps uint16, err error) {
	if err := sale.ValidateFeeBps(newBps); err != nil {
		return 0, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cfg == nil {
		return 0, sale.ErrNotInitialized
	}
	if p.cfg.Owner != actor {
		return 0, sale.ErrUnauthorized
	}
	oldBps = p.cfg.FeeBps
	p.cfg.FeeBps = newBps
	return oldBps, nil
}

// Restore installs a persisted configuration at startup, bypassing the
// one-time-initialize guard.
func (p *Platform) Restore(cfg sale.PlatformConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg = &cfg
}

// Config returns a copy of the current configuration.
func (p *Platform) Config() (sale.PlatformConfig, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.cfg == nil {
		return sale.PlatformConfig{}, sale.ErrNotInitialized
	}
	return *p.cfg, nil
}
