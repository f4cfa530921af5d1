package subscription

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"priceoracle/internal/apperr"
)

func TestState(t *testing.T) {
	s := &Subscription{ExpirationTime: 100}
	require.Equal(t, StateActive, s.State(99))
	require.Equal(t, StateActive, s.State(100))
	require.Equal(t, StateExpired, s.State(101))
}

func TestAddMonths(t *testing.T) {
	v, err := AddMonths(0, 6, SecondsPerMonth)
	require.NoError(t, err)
	require.EqualValues(t, 15_552_000, v)

	_, err = AddMonths(0, math.MaxUint64/SecondsPerMonth+1, SecondsPerMonth)
	require.ErrorIs(t, err, apperr.ErrDurationOverflow)

	_, err = AddMonths(math.MaxUint64-1, 1, SecondsPerMonth)
	require.ErrorIs(t, err, apperr.ErrDurationOverflow)
}
