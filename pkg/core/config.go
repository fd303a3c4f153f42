package core

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/pkg/core/domain"
)

// MaxFeeBps caps the platform fee at 10%. The bps encoding allows up to
// 10000 but anything near that would confiscate the pool.
const MaxFeeBps = 1000

// Config is the platform configuration: who administers the platform, who
// may resolve markets, and the staking economics. It is set at
// initialization and mutable only through the engine's admin-guarded
// setters.
type Config struct {
	Admin    common.Address // capability allowed to create markets and change config
	Oracle   common.Address // capability allowed to resolve markets
	FeeBps   uint64         // platform fee in basis points, 0..MaxFeeBps
	MinStake uint64         // smallest accepted position stake, > 0
}

// Validate checks the configuration invariants.
func (c Config) Validate() error {
	if c.Admin == (common.Address{}) {
		return fmt.Errorf("%w: admin address unset", domain.ErrInvalidParameters)
	}
	if c.Oracle == (common.Address{}) {
		return fmt.Errorf("%w: oracle address unset", domain.ErrInvalidParameters)
	}
	if c.FeeBps > MaxFeeBps {
		return fmt.Errorf("%w: fee %d bps exceeds cap %d", domain.ErrInvalidParameters, c.FeeBps, MaxFeeBps)
	}
	if c.MinStake == 0 {
		return fmt.Errorf("%w: minimum stake must be positive", domain.ErrInvalidParameters)
	}
	return nil
}
