package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"priceoracle/internal/api/dto"
	"priceoracle/internal/message"
	"priceoracle/internal/subscription"
	"priceoracle/internal/subscription/service"
	"priceoracle/pkg/middleware"
)

type Handler struct {
	SubscriptionService *service.Service
}

func NewSubscriptionHandler(ss *service.Service) *Handler {
	return &Handler{SubscriptionService: ss}
}

// Routes mounts the public credential endpoints.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.Purchase)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/renew", h.Renew)
	r.Put("/{id}/key", h.UpdateKey)
	r.Post("/{id}/authorize", h.Authorize)
}

// AdminRoutes mounts the endpoints that require an admin bearer token.
func (h *Handler) AdminRoutes(r chi.Router) {
	r.Post("/fees/collect", h.CollectFees)
	r.Post("/subscriptions/{id}/nonce", h.AdvanceNonce)
}

type subscriptionResponse struct {
	Subscription *subscription.Subscription `json:"subscription"`
	State        subscription.State         `json:"state,omitempty"`
}

type purchaseResponse struct {
	Subscription *subscription.Subscription `json:"subscription"`
	OwnerToken   string                     `json:"owner_token"`
	Change       dto.FundsResponse          `json:"change"`
}

type renewResponse struct {
	Subscription *subscription.Subscription `json:"subscription"`
	Change       dto.FundsResponse          `json:"change"`
}

func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		middleware.HandleDecodeError(w, err)
		return false
	}
	if err := dto.Validate.Struct(v); err != nil {
		middleware.HandleValidationError(w, err, "", "")
		return false
	}
	return true
}

func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	var req dto.PurchaseRequest
	if !decode(w, r, &req) {
		return
	}
	payment, err := req.Payment.Funds()
	if err != nil {
		middleware.HandleValidationError(w, err, "payment.amount", req.Payment.Amount)
		return
	}

	res, err := h.SubscriptionService.Purchase(r.Context(), req.Months, payment)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	middleware.WriteJSON(w, http.StatusCreated, purchaseResponse{
		Subscription: res.Subscription,
		OwnerToken:   res.OwnerToken,
		Change:       dto.NewFundsResponse(res.Change),
	})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sub, state, err := h.SubscriptionService.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, subscriptionResponse{Subscription: sub, State: state})
}

func (h *Handler) Renew(w http.ResponseWriter, r *http.Request) {
	var req dto.RenewRequest
	if !decode(w, r, &req) {
		return
	}
	payment, err := req.Payment.Funds()
	if err != nil {
		middleware.HandleValidationError(w, err, "payment.amount", req.Payment.Amount)
		return
	}

	change, sub, err := h.SubscriptionService.Renew(r.Context(), chi.URLParam(r, "id"), req.Months, payment)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, renewResponse{Subscription: sub, Change: dto.NewFundsResponse(change)})
}

func (h *Handler) UpdateKey(w http.ResponseWriter, r *http.Request) {
	var req dto.UpdateKeyRequest
	if !decode(w, r, &req) {
		return
	}

	sub, err := h.SubscriptionService.UpdateAuthorizedKey(r.Context(), chi.URLParam(r, "id"), req.PublicKey, req.OwnerToken)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, subscriptionResponse{Subscription: sub})
}

func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	var req dto.SignedMessage
	if !decode(w, r, &req) {
		return
	}

	access, err := h.SubscriptionService.Authorize(r.Context(), chi.URLParam(r, "id"), req.Message, req.Signature)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, struct {
		Request message.AccessRequest `json:"request"`
	}{access})
}

func (h *Handler) CollectFees(w http.ResponseWriter, r *http.Request) {
	funds, err := h.SubscriptionService.CollectFees(r.Context(), middleware.BearerToken(r))
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, dto.NewFundsResponse(funds))
}

func (h *Handler) AdvanceNonce(w http.ResponseWriter, r *http.Request) {
	var req dto.SignedMessage
	if !decode(w, r, &req) {
		return
	}

	sub, err := h.SubscriptionService.AdvanceNonce(r.Context(), middleware.BearerToken(r), chi.URLParam(r, "id"), req.Message, req.Signature)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, subscriptionResponse{Subscription: sub})
}
