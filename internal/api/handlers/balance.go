package handlers

import (
	"encoding/json"
	"net"
	"net/http"

	"github.com/redirex/shipglobal-backend/internal/api/httpx"
	"github.com/redirex/shipglobal-backend/internal/api/validate"
	"github.com/redirex/shipglobal-backend/internal/ledger"
	"github.com/redirex/shipglobal-backend/internal/middleware"
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/redirex/shipglobal-backend/internal/services"
	"github.com/shopspring/decimal"
)

type BalanceHandler struct {
	Ledger   *ledger.Service
	Payments *services.PaymentService
}

func NewBalanceHandler(l *ledger.Service, p *services.PaymentService) *BalanceHandler {
	return &BalanceHandler{Ledger: l, Payments: p}
}

type balanceMutation struct {
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	PaymentRef  string          `json:"payment_ref,omitempty"`
	Destination string          `json:"destination,omitempty"`
}

func requestMeta(r *http.Request) ledger.Meta {
	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip, _, _ = net.SplitHostPort(r.RemoteAddr)
	}
	return ledger.Meta{
		IP:        ip,
		UserAgent: r.UserAgent(),
		Device:    r.Header.Get("X-Device-Id"),
	}
}

// Overview serves GET /api/balance.
func (h *BalanceHandler) Overview(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	ov, err := h.Ledger.Overview(r.Context(), id.UserID)
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, ov)
}

func (h *BalanceHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	h.credit(w, r, models.TxnDeposit)
}

func (h *BalanceHandler) Refund(w http.ResponseWriter, r *http.Request) {
	h.credit(w, r, models.TxnRefund)
}

func (h *BalanceHandler) credit(w http.ResponseWriter, r *http.Request, typ models.TransactionType) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	var req balanceMutation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	if err := validate.Collect(
		validate.Currency("currency", req.Currency),
		validate.PositiveAmount("amount", req.Amount),
	); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), err)
		return
	}

	res, err := h.Ledger.Apply(r.Context(), ledger.ApplyInput{
		UserID:         id.UserID,
		Currency:       models.Currency(req.Currency),
		Amount:         req.Amount,
		Type:           typ,
		ExternalRef:    req.PaymentRef,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
		Meta:           requestMeta(r),
	})
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// Withdrawal debits the balance and requests an external payout.
func (h *BalanceHandler) Withdrawal(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	var req balanceMutation
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	if err := validate.Collect(
		validate.Currency("currency", req.Currency),
		validate.PositiveAmount("amount", req.Amount),
		validate.Required("destination", req.Destination),
	); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), err)
		return
	}

	res, payout, err := h.Payments.Withdraw(r.Context(), id.UserID, req.Destination,
		req.Amount, models.Currency(req.Currency), r.Header.Get("Idempotency-Key"), requestMeta(r))
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"balance":     res.Balance,
		"transaction": res.Transaction,
		"payoutId":    payout.ID,
	})
}

// Reconcile serves GET /api/balance/reconcile?currency=USD.
func (h *BalanceHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	rec, err := h.Ledger.Reconcile(r.Context(), id.UserID, models.Currency(r.URL.Query().Get("currency")))
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, rec)
}
