package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/medical-records-api/internal/application/support"
	"github.com/medical-records-api/internal/application/user"
	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/pkg/validate"
	"github.com/medical-records-api/internal/transport/http/middleware"
)

// SupportHandler handles support ticket endpoints. Ticket creation works for
// guests too: without a bearer token the contact name and email come from the
// request body.
type SupportHandler struct {
	svc   support.Service
	users user.Service
}

func NewSupportHandler(svc support.Service, users user.Service) *SupportHandler {
	return &SupportHandler{svc: svc, users: users}
}

// CreateTicketBody wraps the ticket fields with the guest contact details.
type CreateTicketBody struct {
	Name  string `json:"name"`
	Email string `json:"email" validate:"omitempty,email"`
	domain.CreateTicketRequest
}

func (h *SupportHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body CreateTicketBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&body); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	userID, name, email := "", body.Name, body.Email
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		u, err := h.users.Get(r.Context(), claims.UserID)
		if err != nil {
			httpError(w, err)
			return
		}
		userID, name, email = u.UserID, u.FirstName+" "+u.LastName, u.Email
	}
	if email == "" {
		writeError(w, http.StatusBadRequest, "email required")
		return
	}

	ticket, err := h.svc.Create(r.Context(), userID, name, email, body.CreateTicketRequest)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ticket)
}

func (h *SupportHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	u, err := h.users.Get(r.Context(), claims.UserID)
	if err != nil {
		httpError(w, err)
		return
	}
	tickets, err := h.svc.ListForUser(r.Context(), u.Email)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (h *SupportHandler) AgentReply(w http.ResponseWriter, r *http.Request) {
	var req domain.AgentReplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	ticket, err := h.svc.AgentReply(r.Context(), chi.URLParam(r, "ticketNumber"), req)
	if err != nil {
		httpError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ticket)
}
