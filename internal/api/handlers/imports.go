package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redirex/shipglobal-backend/internal/api/httpx"
	"github.com/redirex/shipglobal-backend/internal/middleware"
	"github.com/redirex/shipglobal-backend/internal/models"
	"github.com/redirex/shipglobal-backend/internal/services"
)

type ImportHandler struct {
	Imports *services.ImportService
}

func NewImportHandler(s *services.ImportService) *ImportHandler {
	return &ImportHandler{Imports: s}
}

func (h *ImportHandler) List(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	imports, err := h.Imports.List(r.Context(), id.OwnerID(), limit, offset)
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	if imports == nil {
		imports = []models.Import{}
	}
	httpx.WriteJSON(w, http.StatusOK, imports)
}

func (h *ImportHandler) Create(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	var req struct {
		Title       string     `json:"title"`
		Origin      string     `json:"origin"`
		Destination string     `json:"destination"`
		ETA         *time.Time `json:"eta,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	imp, err := h.Imports.Create(r.Context(), services.CreateImportInput{
		OwnerID:     id.OwnerID(),
		OwnerType:   id.OwnerType(),
		Title:       req.Title,
		Origin:      req.Origin,
		Destination: req.Destination,
		ETA:         req.ETA,
	})
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, imp)
}

func (h *ImportHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	imp, err := h.Imports.Get(r.Context(), chi.URLParam(r, "id"), id.OwnerID())
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, imp)
}

func (h *ImportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	var req struct {
		Status   string `json:"status"`
		Progress int    `json:"progress"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", nil)
		return
	}
	imp, err := h.Imports.UpdateStatus(r.Context(), chi.URLParam(r, "id"), id.OwnerID(),
		models.ImportStatus(req.Status), req.Progress)
	if err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, imp)
}

func (h *ImportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized", nil)
		return
	}
	if err := h.Imports.Delete(r.Context(), chi.URLParam(r, "id"), id.OwnerID()); err != nil {
		httpx.WriteAppErr(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
