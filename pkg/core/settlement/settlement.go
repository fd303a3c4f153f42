// Package settlement holds the pure reward arithmetic for resolved markets.
// Nothing here mutates state: the engine decides when to call these and the
// ledger applies the claim transition.
package settlement

import (
	"fmt"
	"math/big"

	"github.com/updownlabs/updown/pkg/core/domain"
	"github.com/updownlabs/updown/pkg/core/market"
)

// TieBreakDirection is the side that wins when the settlement price exactly
// equals the reference price. The market pays Up only on a strict rise;
// flat resolves Down.
const TieBreakDirection = market.Down

// WinningDirection returns the side a resolved market pays out to:
// Up iff settlementPrice > referencePrice, otherwise Down (including the
// exact-tie case, see TieBreakDirection). Total over all price pairs.
func WinningDirection(m *market.Market) market.Direction {
	if m.SettlementPrice == m.ReferencePrice {
		return TieBreakDirection
	}
	if m.SettlementPrice > m.ReferencePrice {
		return market.Up
	}
	return market.Down
}

// GrossShare computes floor(stake * totalPool / winningPool).
// Truncation is always toward zero so the sum of all winners' shares never
// exceeds the pool. The multiply is done in big.Int: stake and pool are
// full-range uint64 and their product overflows 64 bits.
func GrossShare(stake, totalPool, winningPool uint64) (uint64, error) {
	if winningPool == 0 {
		return 0, fmt.Errorf("%w: winning pool is empty", domain.ErrInvalidState)
	}

	num := new(big.Int).Mul(new(big.Int).SetUint64(stake), new(big.Int).SetUint64(totalPool))
	num.Quo(num, new(big.Int).SetUint64(winningPool))
	return num.Uint64(), nil
}

// Fee computes floor(gross * feeBps / 10000).
func Fee(gross, feeBps uint64) uint64 {
	f := new(big.Int).Mul(new(big.Int).SetUint64(gross), new(big.Int).SetUint64(feeBps))
	f.Quo(f, big.NewInt(10000))
	return f.Uint64()
}

// Payout computes the net amount owed to a winning stake on a resolved
// market: proportional share of the combined pool, minus the platform fee.
//
// Callers must have already checked that the market is resolved and that
// the stake sits on the winning side; Payout only guards the arithmetic
// preconditions it can see.
func Payout(m *market.Market, stake uint64, feeBps uint64) (uint64, error) {
	if !m.Resolved {
		return 0, fmt.Errorf("%w: market %d", domain.ErrMarketUnresolved, m.ID)
	}

	winning := WinningDirection(m)
	gross, err := GrossShare(stake, m.TotalPool(), m.StakeOn(winning))
	if err != nil {
		return 0, err
	}
	return gross - Fee(gross, feeBps), nil
}
