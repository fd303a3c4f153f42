package account

import (
	"fmt"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/pkg/core/domain"
)

// Store is the persistence surface the vault needs. A nil Store keeps
// balances purely in memory.
type Store interface {
	SaveAccount(a *Account) error
	LoadAccounts() ([]*Account, error)
}

// Vault is the custody collaborator: it holds participant balances and
// moves stake into and out of escrow. Debit and Credit are the two calls
// the market core makes; Deposit and Withdraw are the external bridge
// surface.
type Vault struct {
	mu       sync.RWMutex
	accounts map[common.Address]*Account
	store    Store
}

// NewVault creates a vault, recovering persisted accounts when a store is
// supplied.
func NewVault(store Store) (*Vault, error) {
	v := &Vault{
		accounts: make(map[common.Address]*Account),
		store:    store,
	}
	if store == nil {
		return v, nil
	}

	accounts, err := store.LoadAccounts()
	if err != nil {
		return nil, fmt.Errorf("load accounts: %w", err)
	}
	for _, a := range accounts {
		v.accounts[a.Address] = a
	}
	return v, nil
}

// getLocked fetches or creates an account. Caller holds the write lock.
func (v *Vault) getLocked(addr common.Address) *Account {
	a, ok := v.accounts[addr]
	if !ok {
		a = NewAccount(addr)
		v.accounts[addr] = a
	}
	return a
}

func (v *Vault) persistLocked(a *Account) error {
	if v.store == nil {
		return nil
	}
	return v.store.SaveAccount(a)
}

// Deposit adds funds to an account, creating it if absent.
func (v *Vault) Deposit(addr common.Address, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: deposit amount must be positive", domain.ErrInvalidParameters)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	a := v.getLocked(addr)
	if amount > math.MaxUint64-a.Balance {
		return fmt.Errorf("%w: deposit overflows balance", domain.ErrInvalidParameters)
	}
	a.Balance += amount
	if err := v.persistLocked(a); err != nil {
		a.Balance -= amount
		return fmt.Errorf("persist deposit: %w", err)
	}
	return nil
}

// Withdraw removes funds from an account.
func (v *Vault) Withdraw(addr common.Address, amount uint64) error {
	if amount == 0 {
		return fmt.Errorf("%w: withdraw amount must be positive", domain.ErrInvalidParameters)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	a, ok := v.accounts[addr]
	if !ok || a.Balance < amount {
		return fmt.Errorf("%w: withdraw %d from %s", domain.ErrInsufficientFunds, amount, addr.Hex())
	}
	a.Balance -= amount
	if err := v.persistLocked(a); err != nil {
		a.Balance += amount
		return fmt.Errorf("persist withdrawal: %w", err)
	}
	return nil
}

// Debit moves stake out of a participant's balance into market escrow.
// Fails with ErrInsufficientFunds when the balance cannot cover amount;
// on any failure the balance is unchanged.
func (v *Vault) Debit(addr common.Address, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	a, ok := v.accounts[addr]
	if !ok || a.Balance < amount {
		have := uint64(0)
		if ok {
			have = a.Balance
		}
		return fmt.Errorf("%w: have %d, need %d", domain.ErrInsufficientFunds, have, amount)
	}

	a.Balance -= amount
	a.TotalStaked += amount
	a.StakeCount++
	if err := v.persistLocked(a); err != nil {
		a.Balance += amount
		a.TotalStaked -= amount
		a.StakeCount--
		return fmt.Errorf("persist debit: %w", err)
	}
	return nil
}

// Credit pays a settled reward back into a participant's balance.
func (v *Vault) Credit(addr common.Address, amount uint64) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	a := v.getLocked(addr)
	if amount > math.MaxUint64-a.Balance {
		return fmt.Errorf("%w: credit overflows balance", domain.ErrInvalidParameters)
	}
	a.Balance += amount
	a.TotalWon += amount
	if err := v.persistLocked(a); err != nil {
		a.Balance -= amount
		a.TotalWon -= amount
		return fmt.Errorf("persist credit: %w", err)
	}
	return nil
}

// Balance returns the available balance, zero for unknown accounts.
func (v *Vault) Balance(addr common.Address) uint64 {
	v.mu.RLock()
	defer v.mu.RUnlock()

	a, ok := v.accounts[addr]
	if !ok {
		return 0
	}
	return a.Balance
}

// Get returns a copy of the account, or ErrNotFound.
func (v *Vault) Get(addr common.Address) (*Account, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	a, ok := v.accounts[addr]
	if !ok {
		return nil, fmt.Errorf("%w: account %s", domain.ErrNotFound, addr.Hex())
	}
	return a.Clone(), nil
}

// List returns copies of all accounts, unordered.
func (v *Vault) List() []*Account {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]*Account, 0, len(v.accounts))
	for _, a := range v.accounts {
		out = append(out, a.Clone())
	}
	return out
}

// Count returns the number of accounts.
func (v *Vault) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.accounts)
}
