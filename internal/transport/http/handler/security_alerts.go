package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/medical-records-api/internal/application/notification"
	"github.com/medical-records-api/internal/pkg/validate"
)

// SecurityAlerter dispatches a security alert to the account behind an email.
type SecurityAlerter interface {
	SendSecurityAlert(ctx context.Context, email, alertType, detail string) notification.Outcome
}

// SecurityAlertHandler lets administrators and internal security tooling fire
// account security alerts (new login, password change, account lock) at a
// user. Account-lock alerts additionally go out over SMS.
type SecurityAlertHandler struct {
	alerts SecurityAlerter
}

func NewSecurityAlertHandler(alerts SecurityAlerter) *SecurityAlertHandler {
	return &SecurityAlertHandler{alerts: alerts}
}

type SendSecurityAlertRequest struct {
	Email     string `json:"email" validate:"required,email"`
	AlertType string `json:"alert_type" validate:"required,oneof=login password_change account_locked"`
	Detail    string `json:"detail"`
}

func (h *SecurityAlertHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req SendSecurityAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	outcome := h.alerts.SendSecurityAlert(r.Context(), req.Email, req.AlertType, req.Detail)
	writeJSON(w, http.StatusOK, outcome)
}
