package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"

	"priceoracle/internal/apperr"
	"priceoracle/internal/ledger"
	"priceoracle/internal/message"
	"priceoracle/internal/metrics"
	"priceoracle/internal/subscription"
	"priceoracle/pkg/hash"
	"priceoracle/pkg/logger"
	"priceoracle/pkg/signature"
)

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *subscription.Subscription) error
	GetByID(ctx context.Context, id string) (*subscription.Subscription, error)
	Update(ctx context.Context, id string, fn func(*subscription.Subscription) error) (*subscription.Subscription, error)
	CountByState(ctx context.Context, now uint64) (map[subscription.State]int, error)
}

// AccessVerifier checks access requests signed by the oracle.
type AccessVerifier interface {
	VerifyAccessRequest(msg, sig string) (message.AccessRequest, error)
}

// AdminAuthorizer validates the capability passed to administrative operations.
type AdminAuthorizer interface {
	Authorize(token string) (string, error)
}

// EventSink receives expiration changes after they are stored.
type EventSink interface {
	Publish(ctx context.Context, update subscription.Update)
}

type EventSinkFunc func(ctx context.Context, update subscription.Update)

func (f EventSinkFunc) Publish(ctx context.Context, update subscription.Update) { f(ctx, update) }

type Config struct {
	MonthlyFee decimal.Decimal
	FeeAsset   string
}

type Service struct {
	repo   SubscriptionRepository
	fees   ledger.Ledger
	oracle AccessVerifier
	admin  AdminAuthorizer
	cfg    Config
	sink   EventSink
	now    func() time.Time
	log    *logger.Logger
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithEventSink(sink EventSink) Option {
	return func(s *Service) { s.sink = sink }
}

func WithLogger(log *logger.Logger) Option {
	return func(s *Service) { s.log = log }
}

func NewService(repo SubscriptionRepository, fees ledger.Ledger, oracle AccessVerifier, admin AdminAuthorizer, cfg Config, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		fees:   fees,
		oracle: oracle,
		admin:  admin,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.log == nil {
		s.log = logger.NewDefault("subscription")
	}
	return s
}

// PurchaseResult is what a buyer gets back. OwnerToken is shown once; it is
// the proof of ownership for UpdateAuthorizedKey.
type PurchaseResult struct {
	Change       ledger.Funds
	Subscription *subscription.Subscription
	OwnerToken   string
}

// Purchase creates a credential valid for months and funded with
// months*CallsPerMonth calls. Payment beyond the fee comes back as change.
func (s *Service) Purchase(ctx context.Context, months uint64, payment ledger.Funds) (res *PurchaseResult, err error) {
	defer s.record("purchase", &err)

	fee, change, err := s.checkPayment(months, payment)
	if err != nil {
		return nil, err
	}

	now := s.unixNow()
	expiration, err := subscription.AddMonths(now, months, subscription.SecondsPerMonth)
	if err != nil {
		return nil, err
	}
	maxNonce, err := subscription.AddMonths(0, months, subscription.CallsPerMonth)
	if err != nil {
		return nil, err
	}

	token, err := hash.NewToken()
	if err != nil {
		return nil, fmt.Errorf("generate owner token: %w", err)
	}
	ownerHash, err := hash.HashToken(token)
	if err != nil {
		return nil, fmt.Errorf("hash owner token: %w", err)
	}

	if err := s.fees.Deposit(ctx, fee); err != nil {
		return nil, fmt.Errorf("deposit fee: %w", err)
	}

	sub := &subscription.Subscription{
		ExpirationTime: expiration,
		CurNonce:       0,
		MaxNonce:       maxNonce,
		OwnerHash:      ownerHash,
	}
	if err := s.repo.Create(ctx, sub); err != nil {
		s.refund(ctx, fee)
		return nil, err
	}

	metrics.SubscriptionFeesCollected.Add(fee.Amount.InexactFloat64())
	s.emit(ctx, sub)
	return &PurchaseResult{Change: change, Subscription: sub, OwnerToken: token}, nil
}

// Renew extends a credential by months, counted from now if it has already
// expired, and adds months*CallsPerMonth to its quota.
func (s *Service) Renew(ctx context.Context, id string, months uint64, payment ledger.Funds) (change ledger.Funds, sub *subscription.Subscription, err error) {
	defer s.record("renew", &err)

	fee, change, err := s.checkPayment(months, payment)
	if err != nil {
		return ledger.Funds{}, nil, err
	}

	now := s.unixNow()
	deposited := false
	sub, err = s.repo.Update(ctx, id, func(cur *subscription.Subscription) error {
		start := cur.ExpirationTime
		if now > start {
			start = now
		}
		expiration, err := subscription.AddMonths(start, months, subscription.SecondsPerMonth)
		if err != nil {
			return err
		}
		maxNonce, err := subscription.AddMonths(cur.MaxNonce, months, subscription.CallsPerMonth)
		if err != nil {
			return err
		}

		if !deposited {
			if err := s.fees.Deposit(ctx, fee); err != nil {
				return fmt.Errorf("deposit fee: %w", err)
			}
			deposited = true
		}
		cur.ExpirationTime = expiration
		cur.MaxNonce = maxNonce
		return nil
	})
	if err != nil {
		if deposited {
			s.refund(ctx, fee)
		}
		return ledger.Funds{}, nil, err
	}

	metrics.SubscriptionFeesCollected.Add(fee.Amount.InexactFloat64())
	s.emit(ctx, sub)
	return change, sub, nil
}

// AdvanceNonce stores the nonce of an oracle-signed access request as the
// credential's current nonce. Equal nonces are accepted.
func (s *Service) AdvanceNonce(ctx context.Context, adminToken, id, msg, sig string) (sub *subscription.Subscription, err error) {
	defer s.record("advance_nonce", &err)

	if _, err := s.admin.Authorize(adminToken); err != nil {
		return nil, err
	}

	req, err := s.oracle.VerifyAccessRequest(msg, sig)
	if err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, func(cur *subscription.Subscription) error {
		if req.Nonce < cur.CurNonce {
			return fmt.Errorf("%w: %d < %d", apperr.ErrNonceNotMonotonic, req.Nonce, cur.CurNonce)
		}
		cur.CurNonce = req.Nonce
		return nil
	})
}

// UpdateAuthorizedKey enrols the key the credential holder signs access
// requests with. proof is the owner token returned by Purchase.
func (s *Service) UpdateAuthorizedKey(ctx context.Context, id, newKey, proof string) (sub *subscription.Subscription, err error) {
	defer s.record("update_key", &err)

	key, err := signature.ParsePublicKey(newKey)
	if err != nil {
		return nil, err
	}

	return s.repo.Update(ctx, id, func(cur *subscription.Subscription) error {
		if !hash.CheckToken(cur.OwnerHash, proof) {
			return fmt.Errorf("%w: not the owner of this subscription", apperr.ErrUnauthorized)
		}
		cur.AuthorizedPubKey = key.Hex()
		return nil
	})
}

// CollectFees empties the fee account.
func (s *Service) CollectFees(ctx context.Context, adminToken string) (funds ledger.Funds, err error) {
	defer s.record("collect_fees", &err)

	admin, err := s.admin.Authorize(adminToken)
	if err != nil {
		return ledger.Funds{}, err
	}

	funds, err = s.fees.WithdrawAll(ctx)
	if err != nil {
		return ledger.Funds{}, fmt.Errorf("withdraw fees: %w", err)
	}
	s.log.WithField("admin", admin).WithField("amount", funds.Amount.String()).Info("fees collected")
	return funds, nil
}

// Get returns the credential and its state.
func (s *Service) Get(ctx context.Context, id string) (*subscription.Subscription, subscription.State, error) {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, "", err
	}
	return sub, sub.State(s.unixNow()), nil
}

// Authorize checks an access request signed with the credential's own key
// before a quote is served under it. It changes nothing.
func (s *Service) Authorize(ctx context.Context, id, msg, sig string) (req message.AccessRequest, err error) {
	defer s.record("authorize", &err)

	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return message.AccessRequest{}, err
	}
	if sub.AuthorizedPubKey == "" {
		return message.AccessRequest{}, fmt.Errorf("%w: no key enrolled for this subscription", apperr.ErrUnauthorized)
	}

	ok, err := signature.Verify([]byte(msg), sig, sub.AuthorizedPubKey)
	if err != nil {
		return message.AccessRequest{}, err
	}
	if !ok {
		return message.AccessRequest{}, fmt.Errorf("%w: not signed by the enrolled key", apperr.ErrInvalidSignature)
	}

	req, err = message.ParseAccessRequest(msg)
	if err != nil {
		return message.AccessRequest{}, err
	}

	if sub.State(s.unixNow()) == subscription.StateExpired {
		return message.AccessRequest{}, fmt.Errorf("%w: expired at %d", apperr.ErrSubscriptionExpired, sub.ExpirationTime)
	}
	if req.Nonce <= sub.CurNonce {
		return message.AccessRequest{}, fmt.Errorf("%w: %d <= %d", apperr.ErrNonceNotMonotonic, req.Nonce, sub.CurNonce)
	}
	if req.Nonce > sub.MaxNonce {
		return message.AccessRequest{}, fmt.Errorf("%w: nonce %d above %d", apperr.ErrQuotaExhausted, req.Nonce, sub.MaxNonce)
	}
	return req, nil
}

// checkPayment validates a payment for months and splits it into the fee
// and the change.
func (s *Service) checkPayment(months uint64, payment ledger.Funds) (fee, change ledger.Funds, err error) {
	if months == 0 {
		return ledger.Funds{}, ledger.Funds{}, apperr.ErrZeroDuration
	}
	if err := payment.CheckAsset(s.cfg.FeeAsset); err != nil {
		return ledger.Funds{}, ledger.Funds{}, err
	}

	expected := s.cfg.MonthlyFee.Mul(decimal.NewFromBigInt(new(big.Int).SetUint64(months), 0))
	if payment.Amount.LessThan(expected) {
		return ledger.Funds{}, ledger.Funds{}, fmt.Errorf("%w: for %d months, the expected payment is %s %s (only supplied %s)",
			apperr.ErrInsufficientPayment, months, expected, s.cfg.FeeAsset, payment.Amount)
	}
	return payment.Split(expected)
}

func (s *Service) refund(ctx context.Context, fee ledger.Funds) {
	if _, err := s.fees.Withdraw(ctx, fee.Amount); err != nil {
		s.log.WithError(err).WithField("amount", fee.Amount.String()).Error("failed to reverse fee deposit")
	}
}

func (s *Service) emit(ctx context.Context, sub *subscription.Subscription) {
	update := subscription.Update{CredentialID: sub.ID, NewExpirationTime: sub.ExpirationTime}
	s.log.WithField("credential_id", update.CredentialID).
		WithField("new_expiration_time", update.NewExpirationTime).
		Info("subscription updated")
	if s.sink != nil {
		s.sink.Publish(ctx, update)
	}
}

func (s *Service) record(op string, errp *error) {
	metrics.SubscriptionOperationsTotal.WithLabelValues(op, metrics.Result(*errp)).Inc()
	if *errp != nil {
		s.log.WithError(*errp).WithField("op", op).Info("subscription operation rejected")
	}
}

func (s *Service) unixNow() uint64 {
	return uint64(s.now().Unix())
}
