// Package service verifies signed oracle messages and keeps price quotes
// from being replayed.
package service

import (
	"context"
	"errors"
	"fmt"

	"priceoracle/internal/apperr"
	"priceoracle/internal/message"
	"priceoracle/internal/metrics"
	"priceoracle/internal/replay"
	"priceoracle/pkg/logger"
	"priceoracle/pkg/signature"
)

var ErrInvalidPublicKey = errors.New("the given public key is not valid")

type Service struct {
	key   *signature.PublicKey
	guard replay.Guard
	log   *logger.Logger
}

// NewService registers the publisher key every message must be signed with.
func NewService(publicKey string, guard replay.Guard, log *logger.Logger) (*Service, error) {
	key, err := signature.ParsePublicKey(publicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	if guard == nil {
		guard = replay.NewMemoryGuard()
	}
	if log == nil {
		log = logger.NewDefault("oracle")
	}
	return &Service{key: key, guard: guard, log: log}, nil
}

// PublicKey returns the registered publisher key.
func (s *Service) PublicKey() string {
	return s.key.Hex()
}

// Verify checks that msg was signed by the publisher.
func (s *Service) Verify(msg, sig string) error {
	ok, err := s.key.Verify([]byte(msg), sig)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: message was not signed by the oracle", apperr.ErrInvalidSignature)
	}
	return nil
}

// CheckPrice authenticates and decodes a price quote and consumes its nonce.
// The nonce is only recorded once the quote is known to be signed and
// well-formed.
func (s *Service) CheckPrice(ctx context.Context, msg, sig string) (message.PriceQuote, error) {
	quote, err := s.checkPrice(ctx, msg, sig)
	metrics.PriceChecksTotal.WithLabelValues(priceResult(err)).Inc()
	if err != nil {
		s.log.WithError(err).Info("price quote rejected")
		return message.PriceQuote{}, err
	}
	s.log.WithField("market", quote.MarketID).WithField("nonce", quote.Nonce).Debug("price quote accepted")
	return quote, nil
}

func (s *Service) checkPrice(ctx context.Context, msg, sig string) (message.PriceQuote, error) {
	quote, err := s.VerifyPrice(msg, sig)
	if err != nil {
		return message.PriceQuote{}, err
	}
	if err := s.ConsumeNonce(ctx, quote.Nonce); err != nil {
		return message.PriceQuote{}, err
	}
	return quote, nil
}

// VerifyPrice authenticates and decodes a price quote without consuming its
// nonce. Callers that can still reject the quote afterwards pair it with
// ConsumeNonce once nothing else can fail.
func (s *Service) VerifyPrice(msg, sig string) (message.PriceQuote, error) {
	if err := s.Verify(msg, sig); err != nil {
		return message.PriceQuote{}, err
	}
	return message.ParsePriceQuote(msg)
}

// ConsumeNonce marks nonce as used, failing with apperr.ErrNonceReused if it
// already was.
func (s *Service) ConsumeNonce(ctx context.Context, nonce uint64) error {
	fresh, err := s.guard.TryConsume(ctx, nonce)
	if err != nil {
		return fmt.Errorf("consume nonce %d: %w", nonce, err)
	}
	if !fresh {
		return fmt.Errorf("%w: %d", apperr.ErrNonceReused, nonce)
	}
	return nil
}

// VerifyAccessRequest authenticates an access request signed by the oracle
// and decodes it. It consumes nothing.
func (s *Service) VerifyAccessRequest(msg, sig string) (message.AccessRequest, error) {
	if err := s.Verify(msg, sig); err != nil {
		return message.AccessRequest{}, err
	}
	return message.ParseAccessRequest(msg)
}

func priceResult(err error) string {
	switch {
	case err == nil:
		return "accepted"
	case errors.Is(err, apperr.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, apperr.ErrMalformedMessage):
		return "malformed"
	case errors.Is(err, apperr.ErrNonceReused):
		return "replayed"
	default:
		return "error"
	}
}
