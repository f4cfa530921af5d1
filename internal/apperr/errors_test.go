package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHTTPStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w: could not parse the nonce", ErrMalformedMessage), http.StatusBadRequest},
		{ErrInvalidSignature, http.StatusBadRequest},
		{fmt.Errorf("%w: for 6 months, the expected payment is 180 XRD (only supplied 170)", ErrInsufficientPayment), http.StatusPaymentRequired},
		{ErrUnauthorized, http.StatusUnauthorized},
		{ErrSubscriptionExpired, http.StatusForbidden},
		{ErrNotFound, http.StatusNotFound},
		{ErrNonceReused, http.StatusConflict},
		{ErrStalePrice, http.StatusUnprocessableEntity},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		require.Equalf(t, tc.want, HTTPStatus(tc.err), "error: %v", tc.err)
	}
}
