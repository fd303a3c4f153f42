package market

import (
	"fmt"
	"sync"

	"github.com/updownlabs/updown/pkg/core/domain"
)

// Store is the persistence surface the registry needs. A nil Store keeps
// the registry purely in memory (tests, ephemeral devnets).
type Store interface {
	SaveMarket(m *Market) error
	LoadMarkets() ([]*Market, error)
	SaveNextMarketID(id uint64) error
	LoadNextMarketID() (uint64, error)
}

// Registry owns the set of markets and the monotonic identifier counter.
// Markets are never deleted: resolved markets stay queryable.
type Registry struct {
	mu      sync.RWMutex
	markets map[uint64]*Market
	nextID  uint64 // next identifier to allocate, starts at 1
	store   Store
}

// NewRegistry creates a registry, recovering persisted markets and the
// identifier counter when a store is supplied.
func NewRegistry(store Store) (*Registry, error) {
	r := &Registry{
		markets: make(map[uint64]*Market),
		nextID:  1,
		store:   store,
	}
	if store == nil {
		return r, nil
	}

	markets, err := store.LoadMarkets()
	if err != nil {
		return nil, fmt.Errorf("load markets: %w", err)
	}
	for _, m := range markets {
		r.markets[m.ID] = m
	}

	next, err := store.LoadNextMarketID()
	if err != nil {
		return nil, fmt.Errorf("load market counter: %w", err)
	}
	if next > r.nextID {
		r.nextID = next
	}
	// Counter can never lag behind a persisted market.
	for id := range r.markets {
		if id >= r.nextID {
			r.nextID = id + 1
		}
	}
	return r, nil
}

// Create validates parameters, allocates the next sequential identifier and
// persists the new market. Authorization is the caller's concern.
func (r *Registry) Create(referencePrice uint64, openAt, closeAt, now int64) (*Market, error) {
	m, err := New(referencePrice, openAt, closeAt, now)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m.ID = r.nextID

	if r.store != nil {
		if err := r.store.SaveMarket(m); err != nil {
			return nil, fmt.Errorf("persist market: %w", err)
		}
		if err := r.store.SaveNextMarketID(r.nextID + 1); err != nil {
			return nil, fmt.Errorf("persist market counter: %w", err)
		}
	}

	r.markets[m.ID] = m
	r.nextID++
	return m.Clone(), nil
}

// Resolve sets the settlement price and flips the resolved flag, exactly
// once. The market must be past its close and not yet resolved.
func (r *Registry) Resolve(id uint64, settlementPrice uint64, now int64) (*Market, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.markets[id]
	if !ok {
		return nil, fmt.Errorf("%w: market %d", domain.ErrNotFound, id)
	}
	if m.Resolved {
		return nil, fmt.Errorf("%w: market %d already resolved", domain.ErrMarketInactive, id)
	}
	if now < m.CloseAt {
		return nil, fmt.Errorf("%w: market %d closes at %d (now %d)", domain.ErrMarketInactive, id, m.CloseAt, now)
	}
	if settlementPrice == 0 {
		return nil, fmt.Errorf("%w: settlement price must be positive", domain.ErrInvalidParameters)
	}

	// Persist the resolved image before mutating the in-memory record so a
	// storage failure leaves the market unresolved.
	resolved := m.Clone()
	resolved.SettlementPrice = settlementPrice
	resolved.Resolved = true
	if r.store != nil {
		if err := r.store.SaveMarket(resolved); err != nil {
			return nil, fmt.Errorf("persist resolution: %w", err)
		}
	}

	m.SettlementPrice = settlementPrice
	m.Resolved = true
	return m.Clone(), nil
}

// Get returns a copy of the market, or ErrNotFound.
func (r *Registry) Get(id uint64) (*Market, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.markets[id]
	if !ok {
		return nil, fmt.Errorf("%w: market %d", domain.ErrNotFound, id)
	}
	return m.Clone(), nil
}

// AddStake bumps a side's accumulator on a stored market and persists the
// change. The engine calls this under its per-market lock after the escrow
// debit succeeds.
func (r *Registry) AddStake(id uint64, d Direction, amount uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.markets[id]
	if !ok {
		return fmt.Errorf("%w: market %d", domain.ErrNotFound, id)
	}

	staked := m.Clone()
	staked.AddStake(d, amount)
	if r.store != nil {
		if err := r.store.SaveMarket(staked); err != nil {
			return fmt.Errorf("persist stake: %w", err)
		}
	}

	m.AddStake(d, amount)
	return nil
}

// List returns copies of all markets, unordered.
func (r *Registry) List() []*Market {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Market, 0, len(r.markets))
	for _, m := range r.markets {
		out = append(out, m.Clone())
	}
	return out
}

// Count returns the number of markets ever created.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.markets)
}
