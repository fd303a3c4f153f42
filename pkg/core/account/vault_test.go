package account

import (
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/updownlabs/updown/pkg/core/domain"
)

var (
	alice = common.HexToAddress("0xAA00000000000000000000000000000000000000")
	bob   = common.HexToAddress("0xBB00000000000000000000000000000000000000")
)

func newTestVault(t *testing.T) *Vault {
	v, err := NewVault(nil)
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	return v
}

func TestVaultDeposit(t *testing.T) {
	v := newTestVault(t)

	if err := v.Deposit(alice, 100000000); err != nil {
		t.Fatalf("Deposit: %v", err)
	}
	if got := v.Balance(alice); got != 100000000 {
		t.Errorf("balance = %d, want 100000000", got)
	}
	if err := v.Deposit(alice, 0); !errors.Is(err, domain.ErrInvalidParameters) {
		t.Errorf("zero deposit: err = %v, want ErrInvalidParameters", err)
	}
}

func TestVaultWithdraw(t *testing.T) {
	v := newTestVault(t)
	v.Deposit(alice, 1000)

	if err := v.Withdraw(alice, 400); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if got := v.Balance(alice); got != 600 {
		t.Errorf("balance = %d, want 600", got)
	}
	if err := v.Withdraw(alice, 601); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("overdraw: err = %v, want ErrInsufficientFunds", err)
	}
	if err := v.Withdraw(bob, 1); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("unknown account: err = %v, want ErrInsufficientFunds", err)
	}
}

func TestVaultDebitCredit(t *testing.T) {
	v := newTestVault(t)
	v.Deposit(alice, 30000000)

	if err := v.Debit(alice, 10000000); err != nil {
		t.Fatalf("Debit: %v", err)
	}
	if got := v.Balance(alice); got != 20000000 {
		t.Errorf("balance after debit = %d, want 20000000", got)
	}

	if err := v.Debit(alice, 20000001); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("overdraw debit: err = %v, want ErrInsufficientFunds", err)
	}
	if got := v.Balance(alice); got != 20000000 {
		t.Errorf("failed debit changed balance: %d", got)
	}

	if err := v.Credit(alice, 29400000); err != nil {
		t.Fatalf("Credit: %v", err)
	}
	if got := v.Balance(alice); got != 49400000 {
		t.Errorf("balance after credit = %d, want 49400000", got)
	}

	acc, err := v.Get(alice)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if acc.TotalStaked != 10000000 || acc.TotalWon != 29400000 || acc.StakeCount != 1 {
		t.Errorf("stats mismatch: %+v", acc)
	}
}

func TestVaultDebitUnknownAccount(t *testing.T) {
	v := newTestVault(t)
	if err := v.Debit(bob, 1); !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Errorf("err = %v, want ErrInsufficientFunds", err)
	}
}

func TestVaultGetUnknownAccount(t *testing.T) {
	v := newTestVault(t)
	if _, err := v.Get(bob); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if got := v.Balance(bob); got != 0 {
		t.Errorf("unknown balance = %d, want 0", got)
	}
}

func TestVaultList(t *testing.T) {
	v := newTestVault(t)
	v.Deposit(alice, 100)
	v.Deposit(bob, 200)

	if v.Count() != 2 {
		t.Errorf("count = %d, want 2", v.Count())
	}
	if got := len(v.List()); got != 2 {
		t.Errorf("list = %d accounts, want 2", got)
	}
}
