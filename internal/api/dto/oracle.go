package dto

import (
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"priceoracle/internal/ledger"
	"priceoracle/internal/message"
)

// SignedMessage is a wire message together with its hex DER signature.
type SignedMessage struct {
	Message   string `json:"message" validate:"required,max=1024"`
	Signature string `json:"signature" validate:"required,hexadecimal,max=200"`
}

type Payment struct {
	Asset  string `json:"asset" validate:"required,max=64"`
	Amount string `json:"amount" validate:"required,numeric"`
}

// Funds converts the validated payment.
func (p Payment) Funds() (ledger.Funds, error) {
	amount, err := decimal.NewFromString(p.Amount)
	if err != nil {
		return ledger.Funds{}, err
	}
	return ledger.Funds{Asset: p.Asset, Amount: amount}, nil
}

type PurchaseRequest struct {
	Months  uint64  `json:"months"`
	Payment Payment `json:"payment"`
}

type RenewRequest struct {
	Months  uint64  `json:"months"`
	Payment Payment `json:"payment"`
}

type UpdateKeyRequest struct {
	PublicKey  string `json:"public_key" validate:"required,hexadecimal,max=130"`
	OwnerToken string `json:"owner_token" validate:"required,max=72"`
}

type GumballBuyRequest struct {
	Payment Payment       `json:"payment"`
	Price   SignedMessage `json:"price"`
}

type FundsResponse struct {
	Asset  string          `json:"asset"`
	Amount decimal.Decimal `json:"amount"`
}

func NewFundsResponse(f ledger.Funds) FundsResponse {
	return FundsResponse{Asset: f.Asset, Amount: f.Amount}
}

type PriceResponse struct {
	Quote message.PriceQuote `json:"quote"`
}

var Validate = validator.New()
