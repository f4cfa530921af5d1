// Package ledger is the fund-custody collaborator. The oracle and its
// consumers only compute amounts; every movement of funds goes through a
// Ledger.
package ledger

//go:generate mockgen -destination=mocks/mock_ledger.go -package=mocks priceoracle/internal/ledger Ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"priceoracle/internal/apperr"
)

var ErrInsufficientFunds = errors.New("insufficient funds in vault")

// Funds is an amount of a single asset kind.
type Funds struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
}

// CheckAsset fails with apperr.ErrWrongAssetKind unless f is denominated in asset.
func (f Funds) CheckAsset(asset string) error {
	if f.Asset != asset {
		return fmt.Errorf("%w: expected %s, got %q", apperr.ErrWrongAssetKind, asset, f.Asset)
	}
	return nil
}

// Split takes amount out of f. kept holds exactly amount, remainder the rest.
func (f Funds) Split(amount decimal.Decimal) (kept, remainder Funds, err error) {
	if amount.IsNegative() {
		return Funds{}, Funds{}, fmt.Errorf("cannot take a negative amount %s", amount)
	}
	if f.Amount.LessThan(amount) {
		return Funds{}, Funds{}, fmt.Errorf("%w: need %s %s, have %s",
			apperr.ErrInsufficientPayment, amount, f.Asset, f.Amount)
	}
	return Funds{Asset: f.Asset, Amount: amount},
		Funds{Asset: f.Asset, Amount: f.Amount.Sub(amount)}, nil
}

// Ledger holds the funds of one account.
type Ledger interface {
	Deposit(ctx context.Context, funds Funds) error
	Withdraw(ctx context.Context, amount decimal.Decimal) (Funds, error)
	WithdrawAll(ctx context.Context) (Funds, error)
	Balance(ctx context.Context) (Funds, error)
}

// Vault is an in-memory single-asset Ledger.
type Vault struct {
	mu      sync.Mutex
	asset   string
	balance decimal.Decimal
}

func NewVault(asset string) *Vault {
	return &Vault{asset: asset}
}

func (v *Vault) Deposit(_ context.Context, funds Funds) error {
	if err := funds.CheckAsset(v.asset); err != nil {
		return err
	}
	if funds.Amount.IsNegative() {
		return fmt.Errorf("cannot deposit a negative amount %s", funds.Amount)
	}

	v.mu.Lock()
	v.balance = v.balance.Add(funds.Amount)
	v.mu.Unlock()
	return nil
}

func (v *Vault) Withdraw(_ context.Context, amount decimal.Decimal) (Funds, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if amount.IsNegative() {
		return Funds{}, fmt.Errorf("cannot withdraw a negative amount %s", amount)
	}
	if v.balance.LessThan(amount) {
		return Funds{}, fmt.Errorf("%w: requested %s, balance %s", ErrInsufficientFunds, amount, v.balance)
	}
	v.balance = v.balance.Sub(amount)
	return Funds{Asset: v.asset, Amount: amount}, nil
}

func (v *Vault) WithdrawAll(_ context.Context) (Funds, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	out := Funds{Asset: v.asset, Amount: v.balance}
	v.balance = decimal.Zero
	return out, nil
}

func (v *Vault) Balance(_ context.Context) (Funds, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return Funds{Asset: v.asset, Amount: v.balance}, nil
}
