package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"priceoracle/internal/apperr"
	"priceoracle/internal/ledger"
	"priceoracle/internal/ledger/mocks"
)

func xrd(v int64) ledger.Funds {
	return ledger.Funds{Asset: "XRD", Amount: decimal.NewFromInt(v)}
}

func TestSplit(t *testing.T) {
	kept, rest, err := xrd(190).Split(decimal.NewFromInt(180))
	require.NoError(t, err)
	require.True(t, kept.Amount.Equal(decimal.NewFromInt(180)))
	require.True(t, rest.Amount.Equal(decimal.NewFromInt(10)))
	require.Equal(t, "XRD", rest.Asset)

	_, _, err = xrd(170).Split(decimal.NewFromInt(180))
	require.ErrorIs(t, err, apperr.ErrInsufficientPayment)

	_, _, err = xrd(1).Split(decimal.NewFromInt(-1))
	require.Error(t, err)
}

func TestCheckAsset(t *testing.T) {
	require.NoError(t, xrd(1).CheckAsset("XRD"))
	require.ErrorIs(t, xrd(1).CheckAsset("USD"), apperr.ErrWrongAssetKind)
}

func TestVault(t *testing.T) {
	ctx := context.Background()
	v := ledger.NewVault("XRD")

	require.NoError(t, v.Deposit(ctx, xrd(30)))
	require.ErrorIs(t, v.Deposit(ctx, ledger.Funds{Asset: "BTC", Amount: decimal.NewFromInt(1)}), apperr.ErrWrongAssetKind)

	out, err := v.Withdraw(ctx, decimal.NewFromInt(10))
	require.NoError(t, err)
	require.True(t, out.Amount.Equal(decimal.NewFromInt(10)))

	_, err = v.Withdraw(ctx, decimal.NewFromInt(100))
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	all, err := v.WithdrawAll(ctx)
	require.NoError(t, err)
	require.True(t, all.Amount.Equal(decimal.NewFromInt(20)))

	bal, err := v.Balance(ctx)
	require.NoError(t, err)
	require.True(t, bal.Amount.IsZero())
}

func TestVaultConcurrentDeposits(t *testing.T) {
	ctx := context.Background()
	v := ledger.NewVault("XRD")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = v.Deposit(ctx, xrd(2))
		}()
	}
	wg.Wait()

	bal, err := v.Balance(ctx)
	require.NoError(t, err)
	require.True(t, bal.Amount.Equal(decimal.NewFromInt(100)), "balance %s", bal.Amount)
}

func TestBreakerPassesThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockLedger(ctrl)

	backend.EXPECT().Deposit(gomock.Any(), xrd(5)).Return(nil).Times(1)
	backend.EXPECT().Balance(gomock.Any()).Return(xrd(5), nil).Times(1)

	b := ledger.NewBreaker("test-pass", backend, nil)
	require.NoError(t, b.Deposit(context.Background(), xrd(5)))

	bal, err := b.Balance(context.Background())
	require.NoError(t, err)
	require.True(t, bal.Amount.Equal(decimal.NewFromInt(5)))
}

func TestBreakerOpensOnBackendFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockLedger(ctrl)

	down := errors.New("connection refused")
	backend.EXPECT().WithdrawAll(gomock.Any()).Return(ledger.Funds{}, down).Times(3)

	b := ledger.NewBreaker("test-open", backend, nil)
	for i := 0; i < 3; i++ {
		_, err := b.WithdrawAll(context.Background())
		require.ErrorIs(t, err, down)
	}
	require.Equal(t, gobreaker.StateOpen, b.State())

	// The backend is not called while open.
	_, err := b.WithdrawAll(context.Background())
	require.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestBreakerIgnoresCallerErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	backend := mocks.NewMockLedger(ctrl)

	backend.EXPECT().Deposit(gomock.Any(), gomock.Any()).Return(apperr.ErrWrongAssetKind).Times(5)

	b := ledger.NewBreaker("test-caller", backend, nil)
	for i := 0; i < 5; i++ {
		require.ErrorIs(t, b.Deposit(context.Background(), xrd(1)), apperr.ErrWrongAssetKind)
	}
	require.Equal(t, gobreaker.StateClosed, b.State())
}
