// Package gumball is a small shop priced through the oracle: each gumball
// costs one USD, paid in the fee asset at the rate of a signed, fresh quote.
package gumball

import (
	"context"
	"crypto/subtle"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"priceoracle/internal/apperr"
	"priceoracle/internal/freshness"
	"priceoracle/internal/ledger"
	"priceoracle/internal/message"
	"priceoracle/internal/metrics"
	"priceoracle/pkg/logger"
)

const Capacity = 100

// PriceVerifier authenticates quotes and consumes their nonces as separate
// steps, so a sale that fails leaves the quote usable.
type PriceVerifier interface {
	VerifyPrice(msg, sig string) (message.PriceQuote, error)
	ConsumeNonce(ctx context.Context, nonce uint64) error
}

type Status struct {
	Stock int `json:"stock"`
}

// Sale is one dispensed gumball with its price and the change.
type Sale struct {
	Gumballs int                `json:"gumballs"`
	Cost     ledger.Funds       `json:"cost"`
	Change   ledger.Funds       `json:"change"`
	Quote    message.PriceQuote `json:"quote"`
}

type Machine struct {
	mu       sync.Mutex
	stock    int
	asset    string
	owner    string
	oracle   PriceVerifier
	gate     *freshness.Gate
	earnings ledger.Ledger
	now      func() time.Time
	log      *logger.Logger
}

// NewMachine returns a full machine. ownerToken guards WithdrawEarnings and
// Refill; an empty token disables both.
func NewMachine(oracle PriceVerifier, gate *freshness.Gate, earnings ledger.Ledger, asset, ownerToken string, log *logger.Logger) *Machine {
	if log == nil {
		log = logger.NewDefault("gumball")
	}
	return &Machine{
		stock:    Capacity,
		asset:    asset,
		owner:    ownerToken,
		oracle:   oracle,
		gate:     gate,
		earnings: earnings,
		now:      time.Now,
		log:      log,
	}
}

// Buy sells one gumball. The quote's nonce is consumed only once the quote is
// fresh and the payment covers the cost; a rejected sale can be retried with
// the same quote.
func (m *Machine) Buy(ctx context.Context, payment ledger.Funds, msg, sig string) (sale Sale, err error) {
	defer func() {
		metrics.GumballSalesTotal.WithLabelValues(metrics.Result(err)).Inc()
	}()

	if err := payment.CheckAsset(m.asset); err != nil {
		return Sale{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.stock < 1 {
		return Sale{}, apperr.ErrSoldOut
	}

	quote, err := m.oracle.VerifyPrice(msg, sig)
	if err != nil {
		return Sale{}, err
	}
	if err := m.gate.Check(quote, m.now()); err != nil {
		return Sale{}, err
	}
	if !quote.Price.IsPositive() {
		return Sale{}, fmt.Errorf("%w: price must be positive, got %s", apperr.ErrMalformedMessage, quote.Price)
	}

	cost := decimal.NewFromInt(1).Div(quote.Price)
	kept, change, err := payment.Split(cost)
	if err != nil {
		return Sale{}, err
	}
	if err := m.oracle.ConsumeNonce(ctx, quote.Nonce); err != nil {
		return Sale{}, err
	}
	if err := m.earnings.Deposit(ctx, kept); err != nil {
		return Sale{}, fmt.Errorf("deposit earnings: %w", err)
	}
	m.stock--

	m.log.WithField("market", quote.MarketID).WithField("cost", cost.String()).Info("gumball sold")
	return Sale{Gumballs: 1, Cost: kept, Change: change, Quote: quote}, nil
}

func (m *Machine) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{Stock: m.stock}
}

func (m *Machine) WithdrawEarnings(ctx context.Context, ownerToken string) (ledger.Funds, error) {
	if err := m.checkOwner(ownerToken); err != nil {
		return ledger.Funds{}, err
	}
	funds, err := m.earnings.WithdrawAll(ctx)
	if err != nil {
		return ledger.Funds{}, err
	}
	m.log.WithField("amount", funds.Amount.String()).Info("earnings withdrawn")
	return funds, nil
}

// Refill restocks the machine to Capacity and returns how many were added.
func (m *Machine) Refill(ownerToken string) (int, error) {
	if err := m.checkOwner(ownerToken); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	added := Capacity - m.stock
	m.stock = Capacity
	return added, nil
}

func (m *Machine) checkOwner(token string) error {
	if m.owner == "" || subtle.ConstantTimeCompare([]byte(token), []byte(m.owner)) != 1 {
		return fmt.Errorf("%w: owner token required", apperr.ErrUnauthorized)
	}
	return nil
}
