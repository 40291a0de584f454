package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medical-records-api/internal/application/result"
	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/pkg/validate"
	"github.com/medical-records-api/internal/transport/http/middleware"
)

// ResultHandler handles test result endpoints. Uploading is restricted to
// clinical roles by the router; patients read their own results only.
type ResultHandler struct {
	svc result.Service
}

func NewResultHandler(svc result.Service) *ResultHandler {
	return &ResultHandler{svc: svc}
}

func (h *ResultHandler) Upload(w http.ResponseWriter, r *http.Request) {
	var req domain.AddTestResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	res, err := h.svc.Add(r.Context(), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *ResultHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	results, err := h.svc.List(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

func (h *ResultHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	res, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
