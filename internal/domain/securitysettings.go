package domain

import "time"

// SecuritySettings holds per-account toggles for the security email paths.
// Keyed by email; a missing record means both alerts are enabled.
type SecuritySettings struct {
	Email                    string    `json:"email" dynamodbav:"email"`
	LoginNotifications       bool      `json:"login_notifications" dynamodbav:"login_notifications"`
	SuspiciousActivityAlerts bool      `json:"suspicious_activity_alerts" dynamodbav:"suspicious_activity_alerts"`
	UpdatedAt                time.Time `json:"updated" dynamodbav:"updated_at"`
}

type UpdateSecuritySettingsRequest struct {
	LoginNotifications       *bool `json:"login_notifications"`
	SuspiciousActivityAlerts *bool `json:"suspicious_activity_alerts"`
}
