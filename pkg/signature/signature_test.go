package signature

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"priceoracle/internal/apperr"
)

const testPrivHex = "289c2857d4598e37fb9647507e47a309d6133539bf21a8b9cb6df88fd5232032"

func TestSignAndVerify(t *testing.T) {
	key, err := ParsePrivateKey(testPrivHex)
	require.NoError(t, err)

	msg := []byte("GATEIO:XRD_USDT-0.0123-1-1230")
	sig := key.Sign(msg)

	ok, err := Verify(msg, sig, key.Public().Hex())
	require.NoError(t, err)
	require.True(t, ok)

	// Any change to the wire string breaks the signature.
	ok, err = Verify([]byte("GATEIO:XRD_USDT-0.0123-2-1230"), sig, key.Public().Hex())
	require.NoError(t, err)
	require.False(t, ok)
}

func TestVerifyRejectsOtherKey(t *testing.T) {
	k1, err := GenerateKey()
	require.NoError(t, err)
	k2, err := GenerateKey()
	require.NoError(t, err)

	msg := []byte("TEST:MARKET-1000.234-1-1230")
	ok, err := k1.Public().Verify(msg, k2.Sign(msg))
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = k1.Public().Verify(msg, k1.Sign(msg))
	require.NoError(t, err)
	require.True(t, ok)
}

func TestMalformedEncodings(t *testing.T) {
	key, err := ParsePrivateKey(testPrivHex)
	require.NoError(t, err)
	msg := []byte("m")

	cases := map[string]struct{ sig, pub string }{
		"signature not hex": {"zz", key.Public().Hex()},
		"signature not DER": {"deadbeef", key.Public().Hex()},
		"key not hex":       {key.Sign(msg), "not-a-key"},
		"key not a point":   {key.Sign(msg), "02" + "00"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Verify(msg, tc.sig, tc.pub)
			require.True(t, errors.Is(err, apperr.ErrInvalidSignature), "got %v", err)
		})
	}
}

func TestParsePrivateKeyLength(t *testing.T) {
	_, err := ParsePrivateKey("abcd")
	require.Error(t, err)

	key, err := ParsePrivateKey(testPrivHex)
	require.NoError(t, err)
	require.Equal(t, testPrivHex, key.Hex())
}
