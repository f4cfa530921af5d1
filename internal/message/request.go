package message

import (
	"strconv"
	"strings"
)

// RequestDelimiter separates the fields of a signed access request.
const RequestDelimiter = "##"

// AccessRequest is what an application signs to ask for (or account for) a
// quote under its subscription.
type AccessRequest struct {
	MarketID  string `json:"market_id"`
	Nonce     uint64 `json:"nonce"`
	PublicKey string `json:"public_key"`
	Address   string `json:"address"`
}

// Four fields, three delimiters. The part count is derived from this list.
var requestFields = []string{"market id", "nonce", "public key", "address"}

// String renders "<market_id>##<nonce>##<public_key>##<address>".
func (r AccessRequest) String() string {
	return strings.Join([]string{
		r.MarketID,
		strconv.FormatUint(r.Nonce, 10),
		r.PublicKey,
		r.Address,
	}, RequestDelimiter)
}

// ParseAccessRequest decodes the wire form produced by AccessRequest.String.
func ParseAccessRequest(s string) (AccessRequest, error) {
	parts, err := split(s, RequestDelimiter, requestFields)
	if err != nil {
		return AccessRequest{}, err
	}

	nonce, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return AccessRequest{}, fieldError(requestFields[1], err)
	}

	return AccessRequest{
		MarketID:  parts[0],
		Nonce:     nonce,
		PublicKey: parts[2],
		Address:   parts[3],
	}, nil
}
