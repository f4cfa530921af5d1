package dto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateSignedMessage(t *testing.T) {
	require.NoError(t, Validate.Struct(SignedMessage{Message: "M-1-1-1", Signature: "3045abcd"}))
	require.Error(t, Validate.Struct(SignedMessage{Message: "", Signature: "3045"}))
	require.Error(t, Validate.Struct(SignedMessage{Message: "M-1-1-1", Signature: "xyz"}))
}

func TestValidatePurchase(t *testing.T) {
	ok := PurchaseRequest{Months: 6, Payment: Payment{Asset: "XRD", Amount: "190"}}
	require.NoError(t, Validate.Struct(ok))

	bad := PurchaseRequest{Months: 6, Payment: Payment{Asset: "XRD", Amount: "lots"}}
	require.Error(t, Validate.Struct(bad))

	f, err := ok.Payment.Funds()
	require.NoError(t, err)
	require.Equal(t, "XRD", f.Asset)
	require.Equal(t, "190", f.Amount.String())
}
