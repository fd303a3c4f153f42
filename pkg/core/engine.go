// Package core wires the market registry, position ledger and settlement
// arithmetic into the four externally visible operations: create, place,
// resolve, claim. The engine owns authorization and temporal gating; the
// subpackages own their records.
package core

import (
	"fmt"
	"math"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/updownlabs/updown/pkg/core/domain"
	"github.com/updownlabs/updown/pkg/core/market"
	"github.com/updownlabs/updown/pkg/core/position"
	"github.com/updownlabs/updown/pkg/core/settlement"
	"github.com/updownlabs/updown/pkg/util"
)

// Escrow is the custody collaborator: it moves stake into and out of the
// platform's holding. Both calls are synchronous and either fully apply or
// leave the balance untouched.
type Escrow interface {
	Debit(addr common.Address, amount uint64) error
	Credit(addr common.Address, amount uint64) error
}

// EventSink receives lifecycle events for broadcast. Nil means no events.
type EventSink func(event string, data any)

// Event names published to the sink.
const (
	EventMarketCreated  = "market_created"
	EventPositionPlaced = "position_placed"
	EventMarketResolved = "market_resolved"
	EventRewardClaimed  = "reward_claimed"
)

// marketStripes is the size of the per-market lock array. Operations on
// distinct markets proceed concurrently; operations on one market (or two
// markets sharing a stripe) serialize.
const marketStripes = 64

// Engine executes the market lifecycle: admin creates, participants stake
// during the open window, the oracle resolves after close, winners claim
// once. Every operation validates fully before mutating, so a failed call
// leaves no observable state change.
type Engine struct {
	cfgMu sync.RWMutex
	cfg   Config

	registry *market.Registry
	ledger   *position.Ledger
	escrow   Escrow
	clock    util.Clock
	log      *zap.SugaredLogger
	events   EventSink

	locks [marketStripes]sync.Mutex
}

// NewEngine builds an engine over the given collaborators.
// registry and ledger must already be recovered from storage by the caller.
func NewEngine(cfg Config, registry *market.Registry, ledger *position.Ledger, escrow Escrow, clock util.Clock, log *zap.SugaredLogger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{
		cfg:      cfg,
		registry: registry,
		ledger:   ledger,
		escrow:   escrow,
		clock:    clock,
		log:      log,
	}, nil
}

// SetEventSink installs the broadcast sink. Call before serving traffic.
func (e *Engine) SetEventSink(sink EventSink) { e.events = sink }

func (e *Engine) publish(event string, data any) {
	if e.events != nil {
		e.events(event, data)
	}
}

func (e *Engine) lockMarket(id uint64) *sync.Mutex {
	return &e.locks[id%marketStripes]
}

// Config returns a snapshot of the platform configuration.
func (e *Engine) Config() Config {
	e.cfgMu.RLock()
	defer e.cfgMu.RUnlock()
	return e.cfg
}

// SetOracle changes the resolve capability. Admin only.
func (e *Engine) SetOracle(caller, oracle common.Address) error {
	return e.updateConfig(caller, func(c *Config) { c.Oracle = oracle })
}

// SetFeeBps changes the platform fee. Admin only.
func (e *Engine) SetFeeBps(caller common.Address, feeBps uint64) error {
	return e.updateConfig(caller, func(c *Config) { c.FeeBps = feeBps })
}

// SetMinStake changes the minimum accepted stake. Admin only.
func (e *Engine) SetMinStake(caller common.Address, minStake uint64) error {
	return e.updateConfig(caller, func(c *Config) { c.MinStake = minStake })
}

func (e *Engine) updateConfig(caller common.Address, mutate func(*Config)) error {
	e.cfgMu.Lock()
	defer e.cfgMu.Unlock()

	if caller != e.cfg.Admin {
		return fmt.Errorf("%w: %s is not the administrator", domain.ErrUnauthorized, caller.Hex())
	}
	next := e.cfg
	mutate(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	e.cfg = next
	return nil
}

// CreateMarket opens a new market. Administrator only. The reference price
// must be positive and the close strictly in the clock's future.
func (e *Engine) CreateMarket(caller common.Address, referencePrice uint64, openAt, closeAt int64) (*market.Market, error) {
	cfg := e.Config()
	if caller != cfg.Admin {
		return nil, fmt.Errorf("%w: %s is not the administrator", domain.ErrUnauthorized, caller.Hex())
	}

	m, err := e.registry.Create(referencePrice, openAt, closeAt, e.clock.Now())
	if err != nil {
		return nil, err
	}

	e.log.Infow("market_created",
		"market_id", m.ID,
		"reference_price", m.ReferencePrice,
		"open_at", m.OpenAt,
		"close_at", m.CloseAt,
	)
	e.publish(EventMarketCreated, m)
	return m, nil
}

// PlacePosition stakes on one side of an open market. The escrow debit
// happens before any bookkeeping, and later bookkeeping failures unwind the
// debit, so a position is never recorded without backing stake.
func (e *Engine) PlacePosition(caller common.Address, marketID uint64, dir market.Direction, stake uint64) (*position.Position, error) {
	lock := e.lockMarket(marketID)
	lock.Lock()
	defer lock.Unlock()

	m, err := e.registry.Get(marketID)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	if phase := m.PhaseAt(now); phase != market.Open {
		return nil, fmt.Errorf("%w: market %d is %s", domain.ErrMarketInactive, marketID, phase)
	}
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: direction %d", domain.ErrInvalidPrediction, dir)
	}

	cfg := e.Config()
	if stake < cfg.MinStake {
		return nil, fmt.Errorf("%w: stake %d below minimum %d", domain.ErrInvalidParameters, stake, cfg.MinStake)
	}
	if stake > math.MaxUint64-m.TotalPool() {
		return nil, fmt.Errorf("%w: stake overflows market pool", domain.ErrInvalidParameters)
	}
	if e.ledger.Has(marketID, caller) {
		return nil, fmt.Errorf("%w: %s on market %d", domain.ErrPositionExists, caller.Hex(), marketID)
	}

	// Secure the stake first.
	if err := e.escrow.Debit(caller, stake); err != nil {
		return nil, err
	}

	p, err := e.ledger.Record(marketID, caller, dir, stake, now)
	if err != nil {
		e.refund(caller, stake)
		return nil, err
	}
	if err := e.registry.AddStake(marketID, dir, stake); err != nil {
		if rmErr := e.ledger.Remove(marketID, caller); rmErr != nil {
			e.log.Errorw("placement_unwind_failed", "market_id", marketID, "owner", caller.Hex(), "err", rmErr)
		}
		e.refund(caller, stake)
		return nil, err
	}

	e.log.Infow("position_placed",
		"market_id", marketID,
		"owner", caller.Hex(),
		"direction", dir.String(),
		"stake", stake,
	)
	e.publish(EventPositionPlaced, p)
	return p, nil
}

func (e *Engine) refund(addr common.Address, amount uint64) {
	if err := e.escrow.Credit(addr, amount); err != nil {
		e.log.Errorw("refund_failed", "owner", addr.Hex(), "amount", amount, "err", err)
	}
}

// ResolveMarket reports the settlement price. Oracle only, after the close,
// exactly once. Irreversible.
func (e *Engine) ResolveMarket(caller common.Address, marketID uint64, settlementPrice uint64) (*market.Market, error) {
	lock := e.lockMarket(marketID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := e.registry.Get(marketID); err != nil {
		return nil, err
	}
	cfg := e.Config()
	if caller != cfg.Oracle {
		return nil, fmt.Errorf("%w: %s is not the oracle", domain.ErrUnauthorized, caller.Hex())
	}

	m, err := e.registry.Resolve(marketID, settlementPrice, e.clock.Now())
	if err != nil {
		return nil, err
	}

	e.log.Infow("market_resolved",
		"market_id", m.ID,
		"reference_price", m.ReferencePrice,
		"settlement_price", m.SettlementPrice,
		"winning_direction", settlement.WinningDirection(m).String(),
	)
	e.publish(EventMarketResolved, m)
	return m, nil
}

// ClaimRewards pays out a winning position, once. The position is marked
// claimed before the escrow credit, so a retried claim can never collect
// twice.
func (e *Engine) ClaimRewards(caller common.Address, marketID uint64) (uint64, error) {
	lock := e.lockMarket(marketID)
	lock.Lock()
	defer lock.Unlock()

	m, err := e.registry.Get(marketID)
	if err != nil {
		return 0, err
	}
	if !m.Resolved {
		return 0, fmt.Errorf("%w: market %d", domain.ErrMarketUnresolved, marketID)
	}

	p, err := e.ledger.Get(marketID, caller)
	if err != nil {
		return 0, err
	}
	if p.Claimed {
		return 0, fmt.Errorf("%w: %s on market %d", domain.ErrAlreadyClaimed, caller.Hex(), marketID)
	}

	winning := settlement.WinningDirection(m)
	if p.Dir != winning {
		return 0, fmt.Errorf("%w: staked %s, market settled %s", domain.ErrInvalidPrediction, p.Dir, winning)
	}

	cfg := e.Config()
	net, err := settlement.Payout(m, p.Stake, cfg.FeeBps)
	if err != nil {
		return 0, err
	}

	if _, err := e.ledger.MarkClaimed(marketID, caller); err != nil {
		return 0, err
	}
	if err := e.escrow.Credit(caller, net); err != nil {
		if revErr := e.ledger.UnmarkClaimed(marketID, caller); revErr != nil {
			e.log.Errorw("claim_unwind_failed", "market_id", marketID, "owner", caller.Hex(), "err", revErr)
		}
		return 0, fmt.Errorf("credit reward: %w", err)
	}

	e.log.Infow("reward_claimed",
		"market_id", marketID,
		"owner", caller.Hex(),
		"net_payout", net,
	)
	e.publish(EventRewardClaimed, map[string]any{
		"marketId": marketID,
		"owner":    caller.Hex(),
		"payout":   net,
	})
	return net, nil
}

// GetMarket returns the market, or ErrNotFound. Pure lookup.
func (e *Engine) GetMarket(marketID uint64) (*market.Market, error) {
	return e.registry.Get(marketID)
}

// GetPosition returns the position, or ErrNotFound. Pure lookup.
func (e *Engine) GetPosition(marketID uint64, owner common.Address) (*position.Position, error) {
	return e.ledger.Get(marketID, owner)
}

// MarketPhase derives the market's current lifecycle phase.
func (e *Engine) MarketPhase(marketID uint64) (market.Phase, error) {
	m, err := e.registry.Get(marketID)
	if err != nil {
		return 0, err
	}
	return m.PhaseAt(e.clock.Now()), nil
}

// ListMarkets returns all markets, unordered.
func (e *Engine) ListMarkets() []*market.Market {
	return e.registry.List()
}

// PositionsByOwner returns all positions held by owner.
func (e *Engine) PositionsByOwner(owner common.Address) []*position.Position {
	return e.ledger.ByOwner(owner)
}

// Now exposes the engine's clock reading, mainly for the API layer.
func (e *Engine) Now() int64 {
	return e.clock.Now()
}
