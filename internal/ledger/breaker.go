package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"

	"priceoracle/internal/apperr"
	"priceoracle/internal/metrics"
	"priceoracle/pkg/logger"
)

// Breaker guards a remote Ledger with a circuit breaker. Caller mistakes
// (wrong asset, overdraw) count as successes; only backend failures trip it.
type Breaker struct {
	next Ledger
	cb   *gobreaker.CircuitBreaker
}

func NewBreaker(name string, next Ledger, log *logger.Logger) *Breaker {
	if log == nil {
		log = logger.NewDefault("ledger")
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    5 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			metrics.LedgerBreakerState.WithLabelValues(name).Set(float64(to))
			log.WithField("breaker", name).Warnf("circuit breaker changed from %s to %s", from, to)
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, apperr.ErrWrongAssetKind) ||
				errors.Is(err, ErrInsufficientFunds)
		},
	})
	metrics.LedgerBreakerState.WithLabelValues(name).Set(float64(gobreaker.StateClosed))
	return &Breaker{next: next, cb: cb}
}

// State reports the breaker state.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

func (b *Breaker) Deposit(ctx context.Context, funds Funds) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Deposit(ctx, funds)
	})
	return err
}

func (b *Breaker) Withdraw(ctx context.Context, amount decimal.Decimal) (Funds, error) {
	return b.funds(func() (Funds, error) { return b.next.Withdraw(ctx, amount) })
}

func (b *Breaker) WithdrawAll(ctx context.Context) (Funds, error) {
	return b.funds(func() (Funds, error) { return b.next.WithdrawAll(ctx) })
}

func (b *Breaker) Balance(ctx context.Context) (Funds, error) {
	return b.funds(func() (Funds, error) { return b.next.Balance(ctx) })
}

func (b *Breaker) funds(call func() (Funds, error)) (Funds, error) {
	result, err := b.cb.Execute(func() (interface{}, error) {
		return call()
	})
	if err != nil {
		return Funds{}, err
	}
	return result.(Funds), nil
}
