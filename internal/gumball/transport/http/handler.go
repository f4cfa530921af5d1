package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"priceoracle/internal/api/dto"
	"priceoracle/internal/gumball"
	"priceoracle/pkg/middleware"
)

type Handler struct {
	Machine *gumball.Machine
}

func NewGumballHandler(m *gumball.Machine) *Handler {
	return &Handler{Machine: m}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/buy", h.Buy)
	r.Get("/status", h.Status)
	r.Post("/withdraw", h.Withdraw)
	r.Post("/refill", h.Refill)
}

func (h *Handler) Buy(w http.ResponseWriter, r *http.Request) {
	var req dto.GumballBuyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.HandleDecodeError(w, err)
		return
	}
	if err := dto.Validate.Struct(req); err != nil {
		middleware.HandleValidationError(w, err, "", "")
		return
	}
	payment, err := req.Payment.Funds()
	if err != nil {
		middleware.HandleValidationError(w, err, "payment.amount", req.Payment.Amount)
		return
	}

	sale, err := h.Machine.Buy(r.Context(), payment, req.Price.Message, req.Price.Signature)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, sale)
}

func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.Machine.Status())
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	funds, err := h.Machine.WithdrawEarnings(r.Context(), middleware.BearerToken(r))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.NewFundsResponse(funds))
}

func (h *Handler) Refill(w http.ResponseWriter, r *http.Request) {
	added, err := h.Machine.Refill(middleware.BearerToken(r))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]int{"added": added, "stock": h.Machine.Status().Stock})
}
