package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medical-records-api/internal/application/export"
	"github.com/medical-records-api/internal/transport/http/middleware"
)

// ExportHandler handles full-record data export endpoints.
type ExportHandler struct {
	svc export.Service
}

func NewExportHandler(svc export.Service) *ExportHandler {
	return &ExportHandler{svc: svc}
}

func (h *ExportHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	exp, err := h.svc.Create(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, exp)
}

func (h *ExportHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	exports, err := h.svc.List(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exports)
}

func (h *ExportHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	url, err := h.svc.DownloadURL(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": url})
}
