package market

import (
	"errors"
	"testing"

	"github.com/updownlabs/updown/pkg/core/domain"
)

func newTestRegistry(t *testing.T) *Registry {
	r, err := NewRegistry(nil)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return r
}

func TestRegistrySequentialIDs(t *testing.T) {
	r := newTestRegistry(t)

	for want := uint64(1); want <= 5; want++ {
		m, err := r.Create(45000, 1000, 2000, 500)
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if m.ID != want {
			t.Errorf("market id = %d, want %d", m.ID, want)
		}
	}
	if r.Count() != 5 {
		t.Errorf("count = %d, want 5", r.Count())
	}
}

func TestRegistryCreateRejectsBadParams(t *testing.T) {
	r := newTestRegistry(t)

	if _, err := r.Create(0, 1000, 2000, 500); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Errorf("zero reference: err = %v, want ErrInvalidParameters", err)
	}
	if r.Count() != 0 {
		t.Errorf("failed create must not allocate: count = %d", r.Count())
	}

	// The identifier sequence must not burn ids on failed creates.
	m, err := r.Create(45000, 1000, 2000, 500)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if m.ID != 1 {
		t.Errorf("first market id = %d, want 1", m.ID)
	}
}

func TestRegistryGet(t *testing.T) {
	r := newTestRegistry(t)
	created, err := r.Create(45000, 1000, 2000, 500)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := r.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ReferencePrice != 45000 {
		t.Errorf("reference price = %d, want 45000", got.ReferencePrice)
	}

	if _, err := r.Get(99); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("absent market: err = %v, want ErrNotFound", err)
	}
}

func TestRegistryResolve(t *testing.T) {
	r := newTestRegistry(t)
	m, err := r.Create(45000, 1000, 2000, 500)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Before close.
	if _, err := r.Resolve(m.ID, 47000, 1999); !errors.Is(err, domain.ErrMarketInactive) {
		t.Errorf("early resolve: err = %v, want ErrMarketInactive", err)
	}
	// Unknown market.
	if _, err := r.Resolve(99, 47000, 2000); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("absent market: err = %v, want ErrNotFound", err)
	}
	// Zero settlement price.
	if _, err := r.Resolve(m.ID, 0, 2000); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Errorf("zero settlement: err = %v, want ErrInvalidParameters", err)
	}

	resolved, err := r.Resolve(m.ID, 47000, 2000)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !resolved.Resolved || resolved.SettlementPrice != 47000 {
		t.Errorf("resolution not applied: %+v", resolved)
	}

	// Second resolution must fail and must not disturb the first.
	if _, err := r.Resolve(m.ID, 50000, 3000); !errors.Is(err, domain.ErrMarketInactive) {
		t.Errorf("double resolve: err = %v, want ErrMarketInactive", err)
	}
	again, err := r.Get(m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.SettlementPrice != 47000 || !again.Resolved {
		t.Errorf("resolution mutated after the fact: %+v", again)
	}
}

func TestRegistryAddStake(t *testing.T) {
	r := newTestRegistry(t)
	m, err := r.Create(45000, 1000, 2000, 500)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if err := r.AddStake(m.ID, Up, 10000000); err != nil {
		t.Fatalf("AddStake: %v", err)
	}
	if err := r.AddStake(m.ID, Down, 20000000); err != nil {
		t.Fatalf("AddStake: %v", err)
	}
	if err := r.AddStake(99, Up, 1); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("absent market: err = %v, want ErrNotFound", err)
	}

	got, err := r.Get(m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.TotalUpStake != 10000000 || got.TotalDownStake != 20000000 {
		t.Errorf("accumulators = %d/%d, want 10000000/20000000", got.TotalUpStake, got.TotalDownStake)
	}
}

func TestRegistryGetReturnsCopy(t *testing.T) {
	r := newTestRegistry(t)
	m, err := r.Create(45000, 1000, 2000, 500)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, _ := r.Get(m.ID)
	got.TotalUpStake = 999999
	got.Resolved = true

	fresh, _ := r.Get(m.ID)
	if fresh.TotalUpStake != 0 || fresh.Resolved {
		t.Errorf("registry state mutated through a returned copy")
	}
}
