// Package apperr holds the error kinds shared by the oracle, the credential
// ledger and the consumers built on top of them.
package apperr

import (
	"errors"
	"net/http"
)

var (
	ErrMalformedMessage    = errors.New("malformed message")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrNonceReused         = errors.New("this nonce has already been used")
	ErrNonceNotMonotonic   = errors.New("the new nonce must be bigger than the previous nonce")
	ErrSubscriptionExpired = errors.New("subscription expired")
	ErrQuotaExhausted      = errors.New("subscription call quota exhausted")
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrZeroDuration        = errors.New("cannot add 0 months to the subscription")
	ErrDurationOverflow    = errors.New("subscription duration too long")
	ErrWrongAssetKind      = errors.New("wrong asset kind")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrStalePrice          = errors.New("this price is out of date")
	ErrNotFound            = errors.New("not found")
	ErrSoldOut             = errors.New("sold out")
)

// HTTPStatus maps an error kind to the status code the transport layer answers with.
func HTTPStatus(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrMalformedMessage),
		errors.Is(err, ErrInvalidSignature),
		errors.Is(err, ErrZeroDuration),
		errors.Is(err, ErrDurationOverflow),
		errors.Is(err, ErrWrongAssetKind):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientPayment):
		return http.StatusPaymentRequired
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrSubscriptionExpired), errors.Is(err, ErrQuotaExhausted):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrNonceReused),
		errors.Is(err, ErrNonceNotMonotonic),
		errors.Is(err, ErrSoldOut):
		return http.StatusConflict
	case errors.Is(err, ErrStalePrice):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
