package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/redirex/shipglobal-backend/internal/api/httpx"
	"github.com/redirex/shipglobal-backend/internal/api/validate"
	"github.com/redirex/shipglobal-backend/internal/services"
)

type AuthHandler struct {
	Accounts *services.AccountService
}

func NewAuthHandler(a *services.AccountService) *AuthHandler {
	return &AuthHandler{Accounts: a}
}

func (h *AuthHandler) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username  string  `json:"username"`
		Email     string  `json:"email"`
		Password  string  `json:"password"`
		CompanyID *string `json:"company_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	if err := validate.Collect(
		validate.Required("username", req.Username),
		validate.Required("email", req.Email),
		validate.Required("password", req.Password),
	); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "validation_error", err.Error(), err)
		return
	}
	u, err := h.Accounts.RegisterUser(r.Context(), req.Username, req.Email, req.Password, req.CompanyID)
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "user": u})
}

func (h *AuthHandler) RegisterCompany(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string `json:"name"`
		TaxID   string `json:"tax_id"`
		Country string `json:"country"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	c, err := h.Accounts.RegisterCompany(r.Context(), req.Name, req.TaxID, req.Country)
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{"success": true, "company": c})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	pair, err := h.Accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "refresh_token required", nil)
		return
	}
	pair, err := h.Accounts.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, pair)
}
