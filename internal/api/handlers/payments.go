package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/redirex/shipglobal-backend/internal/api/httpx"
	"github.com/redirex/shipglobal-backend/internal/middleware"
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/redirex/shipglobal-backend/internal/services"
	"github.com/shopspring/decimal"
)

type PaymentHandler struct {
	Payments *services.PaymentService
}

func NewPaymentHandler(p *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{Payments: p}
}

func (h *PaymentHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	var req struct {
		Amount   decimal.Decimal `json:"amount"`
		Currency string          `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	intent, err := h.Payments.CreateIntent(r.Context(), id.UserID, req.Amount,
		models.Currency(req.Currency), r.Header.Get("Idempotency-Key"))
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"clientSecret": intent.ClientSecret})
}

func (h *PaymentHandler) CreatePayout(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Currency    string          `json:"currency"`
		Destination string          `json:"destination"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	payout, err := h.Payments.CreatePayout(r.Context(), id.UserID, req.Destination,
		req.Amount, models.Currency(req.Currency), r.Header.Get("Idempotency-Key"))
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"payoutId": payout.ID, "status": payout.Status})
}

func (h *PaymentHandler) CreateRefund(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentRef string          `json:"payment_ref"`
		Amount     decimal.Decimal `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	refund, err := h.Payments.CreateRefund(r.Context(), req.PaymentRef, req.Amount, r.Header.Get("Idempotency-Key"))
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"refundId": refund.ID})
}
