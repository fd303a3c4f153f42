package account

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Account tracks one participant's escrow balance.
// Balances are unsigned fixed-point integers in the platform's stake unit.
type Account struct {
	Address common.Address `json:"address"`
	Balance uint64         `json:"balance"` // funds available for staking or withdrawal

	// Cumulative statistics, informational only.
	TotalStaked uint64 `json:"totalStaked"` // lifetime amount moved into market escrow
	TotalWon    uint64 `json:"totalWon"`    // lifetime rewards credited
	StakeCount  uint64 `json:"stakeCount"`  // number of positions funded
}

// NewAccount creates an account with zero balance.
func NewAccount(addr common.Address) *Account {
	return &Account{Address: addr}
}

// Validate checks account invariants.
func (a *Account) Validate() error {
	if a.TotalWon > 0 && a.StakeCount == 0 {
		return fmt.Errorf("account %s won %d without ever staking", a.Address.Hex(), a.TotalWon)
	}
	return nil
}

// Clone returns a copy safe to hand outside the vault lock.
func (a *Account) Clone() *Account {
	cp := *a
	return &cp
}
