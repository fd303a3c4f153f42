package market

import (
	"fmt"

	"github.com/updownlabs/updown/pkg/core/domain"
)

// Direction is the side of a binary market a participant stakes on.
// The zero value is deliberately invalid so unset directions are rejected.
type Direction uint8

const (
	Up Direction = iota + 1 // settlement price rises above reference
	Down                    // settlement price falls to or below reference
)

func (d Direction) Valid() bool {
	return d == Up || d == Down
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	default:
		return "unknown"
	}
}

// ParseDirection maps the wire representation back to a Direction.
// Unrecognized strings return the invalid zero value.
func ParseDirection(s string) Direction {
	switch s {
	case "up":
		return Up
	case "down":
		return Down
	default:
		return 0
	}
}

// Phase is the derived lifecycle state of a market.
// There is no stored state field: Pending/Open/Closed are derived from the
// external clock against OpenAt/CloseAt, Resolved from the resolved flag.
type Phase int8

const (
	Pending  Phase = iota // before OpenAt
	Open                  // OpenAt <= now < CloseAt, predictions accepted
	Closed                // CloseAt <= now, awaiting resolution
	Resolved              // terminal, settlement price set
)

func (p Phase) String() string {
	switch p {
	case Pending:
		return "pending"
	case Open:
		return "open"
	case Closed:
		return "closed"
	case Resolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Market is a time-bounded contract on whether a reference price rises or
// falls. All prices and stakes are unsigned fixed-point integers; the unit
// convention is external to the core.
type Market struct {
	ID uint64 `json:"id"` // sequential from 1, never reused

	ReferencePrice  uint64 `json:"referencePrice"`  // price at creation, > 0
	SettlementPrice uint64 `json:"settlementPrice"` // 0 until resolved, then > 0

	// Stake accumulators, monotonically non-decreasing until resolution.
	// Their sum equals the sum of all position stakes on this market.
	TotalUpStake   uint64 `json:"totalUpStake"`
	TotalDownStake uint64 `json:"totalDownStake"`

	OpenAt  int64 `json:"openAt"`  // clock value predictions open
	CloseAt int64 `json:"closeAt"` // clock value predictions close, CloseAt > OpenAt

	Resolved  bool  `json:"resolved"` // false -> true exactly once
	CreatedAt int64 `json:"createdAt"`
}

// New validates parameters and builds an unresolved market.
// The ID is assigned by the registry, not here.
func New(referencePrice uint64, openAt, closeAt, now int64) (*Market, error) {
	if referencePrice == 0 {
		return nil, fmt.Errorf("%w: reference price must be positive", domain.ErrInvalidParameters)
	}
	if closeAt <= openAt {
		return nil, fmt.Errorf("%w: closeAt %d must be after openAt %d", domain.ErrInvalidParameters, closeAt, openAt)
	}
	if closeAt <= now {
		return nil, fmt.Errorf("%w: closeAt %d is not in the future (now %d)", domain.ErrInvalidParameters, closeAt, now)
	}

	return &Market{
		ReferencePrice: referencePrice,
		OpenAt:         openAt,
		CloseAt:        closeAt,
		CreatedAt:      now,
	}, nil
}

// PhaseAt derives the lifecycle phase at clock value now.
// Resolution dominates the clock: a resolved market is Resolved even though
// the clock comparison alone would say Closed.
func (m *Market) PhaseAt(now int64) Phase {
	if m.Resolved {
		return Resolved
	}
	if now < m.OpenAt {
		return Pending
	}
	if now < m.CloseAt {
		return Open
	}
	return Closed
}

// TotalPool is the combined stake across both sides.
func (m *Market) TotalPool() uint64 {
	return m.TotalUpStake + m.TotalDownStake
}

// StakeOn returns the accumulated stake on one side.
func (m *Market) StakeOn(d Direction) uint64 {
	if d == Up {
		return m.TotalUpStake
	}
	return m.TotalDownStake
}

// AddStake bumps the accumulator for one side. Callers must have already
// validated the direction and the open window.
func (m *Market) AddStake(d Direction, amount uint64) {
	if d == Up {
		m.TotalUpStake += amount
	} else {
		m.TotalDownStake += amount
	}
}

// Clone returns a copy safe to hand outside the registry lock.
func (m *Market) Clone() *Market {
	cp := *m
	return &cp
}
