package settlement

import (
	"errors"
	"testing"

	"github.com/updownlabs/updown/pkg/core/domain"
	"github.com/updownlabs/updown/pkg/core/market"
)

func resolvedMarket(reference, settlement, upStake, downStake uint64) *market.Market {
	return &market.Market{
		ID:              1,
		ReferencePrice:  reference,
		SettlementPrice: settlement,
		TotalUpStake:    upStake,
		TotalDownStake:  downStake,
		OpenAt:          1000,
		CloseAt:         2000,
		Resolved:        true,
	}
}

// TestWinningDirection covers the rise/fall rule, including the exact-tie
// case: a settlement price equal to the reference resolves Down.
func TestWinningDirection(t *testing.T) {
	tests := []struct {
		name       string
		reference  uint64
		settlement uint64
		want       market.Direction
	}{
		{"price rose", 45000, 47000, market.Up},
		{"price fell", 45000, 44000, market.Down},
		{"minimal rise", 45000, 45001, market.Up},
		{"minimal fall", 45000, 44999, market.Down},
		{"exact tie resolves down", 45000, 45000, market.Down},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := resolvedMarket(tt.reference, tt.settlement, 100, 100)
			if got := WinningDirection(m); got != tt.want {
				t.Errorf("WinningDirection = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestTieBreakDirectionConstant(t *testing.T) {
	if TieBreakDirection != market.Down {
		t.Fatalf("tie-break direction = %s, want down", TieBreakDirection)
	}
}

func TestGrossShare(t *testing.T) {
	tests := []struct {
		name        string
		stake       uint64
		totalPool   uint64
		winningPool uint64
		want        uint64
	}{
		{"sole winner takes whole pool", 10000000, 30000000, 10000000, 30000000},
		{"even split", 500, 2000, 1000, 1000},
		{"floor truncates toward zero", 1, 10, 3, 3}, // 10/3 = 3.33...
		{"winner-only pool pays stake back", 700, 700, 700, 700},
		{"huge values do not overflow", 1 << 62, 1 << 63, 1 << 62, 1 << 63},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := GrossShare(tt.stake, tt.totalPool, tt.winningPool)
			if err != nil {
				t.Fatalf("GrossShare: %v", err)
			}
			if got != tt.want {
				t.Errorf("GrossShare = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestGrossShareEmptyWinningPool(t *testing.T) {
	_, err := GrossShare(100, 1000, 0)
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestFee(t *testing.T) {
	tests := []struct {
		gross  uint64
		feeBps uint64
		want   uint64
	}{
		{30000000, 200, 600000}, // 2% of 30M
		{10000, 0, 0},
		{10000, 1000, 1000}, // 10% cap
		{99, 200, 1},        // floor(99*200/10000) = floor(1.98)
		{49, 200, 0},        // fee rounds down to zero on dust
	}

	for _, tt := range tests {
		if got := Fee(tt.gross, tt.feeBps); got != tt.want {
			t.Errorf("Fee(%d, %d) = %d, want %d", tt.gross, tt.feeBps, got, tt.want)
		}
	}
}

// TestPayoutScenario replays the reference scenario: up 10M vs down 20M,
// price rises, 2% fee. The sole up winner collects the whole 30M pool less
// the 600k fee.
func TestPayoutScenario(t *testing.T) {
	m := resolvedMarket(45000000000, 47000000000, 10000000, 20000000)

	net, err := Payout(m, 10000000, 200)
	if err != nil {
		t.Fatalf("Payout: %v", err)
	}
	if net != 29400000 {
		t.Errorf("net payout = %d, want 29400000", net)
	}
}

func TestPayoutUnresolvedMarket(t *testing.T) {
	m := resolvedMarket(45000, 47000, 100, 100)
	m.Resolved = false
	m.SettlementPrice = 0

	_, err := Payout(m, 100, 200)
	if !errors.Is(err, domain.ErrMarketUnresolved) {
		t.Fatalf("err = %v, want ErrMarketUnresolved", err)
	}
}

// TestPayoutSumNeverExceedsPool checks the overdraw property: summing the
// payouts of every winning stake never exceeds the total pool, regardless
// of how the winning side splits.
func TestPayoutSumNeverExceedsPool(t *testing.T) {
	winningStakes := [][]uint64{
		{1},
		{3, 3, 3},         // pool not divisible by winners
		{1, 2, 4, 8, 16},  // uneven split
		{999999, 1},       // dominant winner plus dust
		{7, 11, 13, 17, 19},
	}
	losingStake := uint64(1000003) // prime, maximizes truncation effects

	for _, stakes := range winningStakes {
		var winningPool uint64
		for _, s := range stakes {
			winningPool += s
		}
		m := resolvedMarket(45000, 47000, winningPool, losingStake)

		var total uint64
		for _, s := range stakes {
			net, err := Payout(m, s, 200)
			if err != nil {
				t.Fatalf("Payout(%d): %v", s, err)
			}
			total += net
		}

		if total > m.TotalPool() {
			t.Errorf("stakes %v: payouts %d exceed pool %d", stakes, total, m.TotalPool())
		}
		// With a 2% fee the aggregate stays under 98% of the pool, up to
		// one unit of fee truncation per winner.
		feeBound := m.TotalPool() - Fee(m.TotalPool(), 200) + uint64(len(stakes))
		if total > feeBound {
			t.Errorf("stakes %v: payouts %d exceed fee-adjusted bound %d", stakes, total, feeBound)
		}
	}
}
