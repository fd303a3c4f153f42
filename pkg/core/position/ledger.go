package position

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/pkg/core/domain"
	"github.com/updownlabs/updown/pkg/core/market"
)

// Store is the persistence surface the ledger needs. A nil Store keeps the
// ledger purely in memory.
type Store interface {
	SavePosition(p *Position) error
	DeletePosition(marketID uint64, owner common.Address) error
	LoadPositions() ([]*Position, error)
}

type key struct {
	marketID uint64
	owner    common.Address
}

// Ledger owns all position records, keyed by (market, owner) with at most
// one position per pair. A second placement for the same pair is rejected,
// never overwritten: overwrite would silently orphan the first stake from
// the market accumulators.
type Ledger struct {
	mu        sync.RWMutex
	positions map[key]*Position
	store     Store
}

// NewLedger creates a ledger, recovering persisted positions when a store
// is supplied.
func NewLedger(store Store) (*Ledger, error) {
	l := &Ledger{
		positions: make(map[key]*Position),
		store:     store,
	}
	if store == nil {
		return l, nil
	}

	positions, err := store.LoadPositions()
	if err != nil {
		return nil, fmt.Errorf("load positions: %w", err)
	}
	for _, p := range positions {
		l.positions[key{p.MarketID, p.Owner}] = p
	}
	return l, nil
}

// Record creates the position for (marketID, owner). Validation of the
// market window, direction and minimum stake happens upstream; the ledger
// only enforces the one-position-per-pair invariant.
func (l *Ledger) Record(marketID uint64, owner common.Address, dir market.Direction, stake uint64, now int64) (*Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{marketID, owner}
	if _, exists := l.positions[k]; exists {
		return nil, fmt.Errorf("%w: %s on market %d", domain.ErrPositionExists, owner.Hex(), marketID)
	}

	p := &Position{
		MarketID: marketID,
		Owner:    owner,
		Dir:      dir,
		Stake:    stake,
		PlacedAt: now,
	}
	if l.store != nil {
		if err := l.store.SavePosition(p); err != nil {
			return nil, fmt.Errorf("persist position: %w", err)
		}
	}

	l.positions[k] = p
	return p.Clone(), nil
}

// Get returns a copy of the position, or ErrNotFound.
func (l *Ledger) Get(marketID uint64, owner common.Address) (*Position, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	p, ok := l.positions[key{marketID, owner}]
	if !ok {
		return nil, fmt.Errorf("%w: no position for %s on market %d", domain.ErrNotFound, owner.Hex(), marketID)
	}
	return p.Clone(), nil
}

// Has reports whether (marketID, owner) already holds a position.
func (l *Ledger) Has(marketID uint64, owner common.Address) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.positions[key{marketID, owner}]
	return ok
}

// MarkClaimed flips the claimed flag exactly once.
// Returns ErrAlreadyClaimed on repeat attempts so a retried claim can never
// pay out twice.
func (l *Ledger) MarkClaimed(marketID uint64, owner common.Address) (*Position, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[key{marketID, owner}]
	if !ok {
		return nil, fmt.Errorf("%w: no position for %s on market %d", domain.ErrNotFound, owner.Hex(), marketID)
	}
	if p.Claimed {
		return nil, fmt.Errorf("%w: %s on market %d", domain.ErrAlreadyClaimed, owner.Hex(), marketID)
	}

	claimed := p.Clone()
	claimed.Claimed = true
	if l.store != nil {
		if err := l.store.SavePosition(claimed); err != nil {
			return nil, fmt.Errorf("persist claim: %w", err)
		}
	}

	p.Claimed = true
	return p.Clone(), nil
}

// Remove discards a position. Compensation hook: the engine calls this only
// to unwind a placement whose later bookkeeping step failed, so the debit
// can be refunded without leaving an orphan position.
func (l *Ledger) Remove(marketID uint64, owner common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	k := key{marketID, owner}
	if _, ok := l.positions[k]; !ok {
		return fmt.Errorf("%w: no position for %s on market %d", domain.ErrNotFound, owner.Hex(), marketID)
	}
	if l.store != nil {
		if err := l.store.DeletePosition(marketID, owner); err != nil {
			return fmt.Errorf("delete position: %w", err)
		}
	}
	delete(l.positions, k)
	return nil
}

// UnmarkClaimed reverts a claim mark. Compensation hook for a failed escrow
// credit; never part of the normal claim path.
func (l *Ledger) UnmarkClaimed(marketID uint64, owner common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	p, ok := l.positions[key{marketID, owner}]
	if !ok {
		return fmt.Errorf("%w: no position for %s on market %d", domain.ErrNotFound, owner.Hex(), marketID)
	}
	if !p.Claimed {
		return nil
	}

	unclaimed := p.Clone()
	unclaimed.Claimed = false
	if l.store != nil {
		if err := l.store.SavePosition(unclaimed); err != nil {
			return fmt.Errorf("persist claim revert: %w", err)
		}
	}
	p.Claimed = false
	return nil
}

// ByOwner returns copies of all positions held by owner, unordered.
func (l *Ledger) ByOwner(owner common.Address) []*Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Position, 0)
	for k, p := range l.positions {
		if k.owner == owner {
			out = append(out, p.Clone())
		}
	}
	return out
}

// ByMarket returns copies of all positions on a market, unordered.
func (l *Ledger) ByMarket(marketID uint64) []*Position {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Position, 0)
	for k, p := range l.positions {
		if k.marketID == marketID {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Count returns the total number of positions.
func (l *Ledger) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.positions)
}
