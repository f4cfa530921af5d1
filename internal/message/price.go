package message

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"priceoracle/internal/apperr"
)

// PriceDelimiter separates the fields of a signed price quote.
const PriceDelimiter = "-"

// PriceQuote is one attestation of a market price at a point in time.
type PriceQuote struct {
	MarketID  string          `json:"market_id"`
	Price     decimal.Decimal `json:"price"`
	Nonce     uint64          `json:"nonce"`
	CreatedAt uint64          `json:"created_at"`
}

var priceFields = []string{"market id", "price", "nonce", "creation date"}

// String renders the quote in its signed wire form
// "<market_id>-<price>-<nonce>-<created_at>".
func (q PriceQuote) String() string {
	return strings.Join([]string{
		q.MarketID,
		q.Price.String(),
		strconv.FormatUint(q.Nonce, 10),
		strconv.FormatUint(q.CreatedAt, 10),
	}, PriceDelimiter)
}

// ParsePriceQuote decodes the wire form produced by PriceQuote.String.
func ParsePriceQuote(s string) (PriceQuote, error) {
	parts, err := split(s, PriceDelimiter, priceFields)
	if err != nil {
		return PriceQuote{}, err
	}

	price, err := decimal.NewFromString(parts[1])
	if err != nil {
		return PriceQuote{}, fieldError(priceFields[1], err)
	}
	nonce, err := strconv.ParseUint(parts[2], 10, 64)
	if err != nil {
		return PriceQuote{}, fieldError(priceFields[2], err)
	}
	createdAt, err := strconv.ParseUint(parts[3], 10, 64)
	if err != nil {
		return PriceQuote{}, fieldError(priceFields[3], err)
	}

	return PriceQuote{
		MarketID:  parts[0],
		Price:     price,
		Nonce:     nonce,
		CreatedAt: createdAt,
	}, nil
}

// split cuts s on delim and requires exactly one part per named field.
func split(s, delim string, fields []string) ([]string, error) {
	parts := strings.Split(s, delim)
	if len(parts) != len(fields) {
		return nil, fmt.Errorf("%w: expected %d fields separated by %q, got %d",
			apperr.ErrMalformedMessage, len(fields), delim, len(parts))
	}
	return parts, nil
}

func fieldError(field string, err error) error {
	return fmt.Errorf("%w: could not parse the %s: %v", apperr.ErrMalformedMessage, field, err)
}
