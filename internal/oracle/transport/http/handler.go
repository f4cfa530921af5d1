package http

import (
	"context"
	"encoding/json"
	"net/http"

	"priceoracle/internal/api/dto"
	"priceoracle/internal/message"
	"priceoracle/pkg/middleware"
)

type PriceChecker interface {
	CheckPrice(ctx context.Context, msg, sig string) (message.PriceQuote, error)
	PublicKey() string
}

type Handler struct {
	OracleService PriceChecker
}

func NewOracleHandler(os PriceChecker) *Handler {
	return &Handler{OracleService: os}
}

// VerifyPrice consumes the quote's nonce; a second submission is rejected.
func (h *Handler) VerifyPrice(w http.ResponseWriter, r *http.Request) {
	var req dto.SignedMessage
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.HandleDecodeError(w, err)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err, "", "")
		return
	}

	quote, err := h.OracleService.CheckPrice(r.Context(), req.Message, req.Signature)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, dto.PriceResponse{Quote: quote})
}

func (h *Handler) PublicKey(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"public_key": h.OracleService.PublicKey()})
}
