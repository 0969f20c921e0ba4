package handlers

import (
	"net/http"
	"strconv"

	"github.com/redirex/shipglobal-backend/internal/api/httpx"
	"github.com/redirex/shipglobal-backend/internal/docstore"
	"github.com/redirex/shipglobal-backend/internal/models"
)

// AuditHandler serves the operator-facing audit trail from the document
// store. The route is admin-only.
type AuditHandler struct {
	Store *docstore.Store
}

func NewAuditHandler(s *docstore.Store) *AuditHandler {
	return &AuditHandler{Store: s}
}

func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	entity := r.URL.Query().Get("entity")
	if entity == "" {
		entity = "transaction"
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	logs, err := h.Store.ListAudit(r.Context(), entity, limit)
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	httpx.WriteJSON(w, http.StatusOK, logs)
}
