package position

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/pkg/core/market"
)

// Position is one participant's directional stake within one market.
// Direction, Stake and PlacedAt are immutable after creation; Claimed flips
// false -> true exactly once.
type Position struct {
	MarketID uint64           `json:"marketId"`
	Owner    common.Address   `json:"owner"`
	Dir      market.Direction `json:"direction"`
	Stake    uint64           `json:"stake"`
	Claimed  bool             `json:"claimed"`
	PlacedAt int64            `json:"placedAt"`
}

// Clone returns a copy safe to hand outside the ledger lock.
func (p *Position) Clone() *Position {
	cp := *p
	return &cp
}
