package domain

import (
	"encoding/json"
	"time"
)

// Notification categories. Each category gates one kind of notification and
// carries its own default enablement.
const (
	CategoryTestResults          = "testResults"
	CategoryAppointmentReminders = "appointmentReminders"
	CategoryMedicationAlerts     = "medicationAlerts"
	CategoryHealthTips           = "healthTips"
	CategorySupportNotifications = "supportNotifications"
	CategoryLoginAlerts          = "loginAlerts"
	CategorySecurityUpdates      = "securityUpdates"
	CategoryAccountChanges       = "accountChanges"
	CategoryAppUpdates           = "appUpdates"
	CategoryFeatureAnnouncements = "featureAnnouncements"
	CategoryMaintenanceNotices   = "maintenanceNotices"
	CategoryPromotions           = "promotions"
	CategoryNewsletters          = "newsletters"
	CategorySurveys              = "surveys"
	CategorySupport              = "support"
	CategorySupportReply         = "support_reply"
)

// DefaultNotificationSettings returns a fresh copy of the default enablement
// table. Categories absent from a user's stored settings resolve to these
// values; categories absent from this table resolve to false.
func DefaultNotificationSettings() map[string]bool {
	return map[string]bool{
		// Medical & health
		CategoryTestResults:          true,
		CategoryAppointmentReminders: true,
		CategoryMedicationAlerts:     true,
		CategoryHealthTips:           false,
		CategorySupportNotifications: true,
		// Security & account
		CategoryLoginAlerts:     true,
		CategorySecurityUpdates: true,
		CategoryAccountChanges:  true,
		// App updates
		CategoryAppUpdates:           true,
		CategoryFeatureAnnouncements: false,
		CategoryMaintenanceNotices:   true,
		// Marketing
		CategoryPromotions:  false,
		CategoryNewsletters: false,
		CategorySurveys:     false,
	}
}

// criticalCategories bypass quiet hours when the user's emergency override
// is enabled.
var criticalCategories = map[string]struct{}{
	CategoryTestResults:          {},
	CategoryAppointmentReminders: {},
	CategoryMedicationAlerts:     {},
	CategoryLoginAlerts:          {},
	CategorySecurityUpdates:      {},
	CategoryAccountChanges:       {},
	CategoryMaintenanceNotices:   {},
	CategorySupport:              {},
	CategorySupportReply:         {},
}

// IsCriticalCategory reports whether the category may bypass quiet hours.
func IsCriticalCategory(category string) bool {
	_, ok := criticalCategories[category]
	return ok
}

// ScheduleSettings is the per-user quiet-hours configuration.
// QuietStart/QuietEnd are local wall-clock times ("HH:MM"); a window whose
// start is after its end wraps past midnight.
type ScheduleSettings struct {
	QuietHoursEnabled bool   `json:"quietHoursEnabled"`
	QuietStart        string `json:"quietStart"`
	QuietEnd          string `json:"quietEnd"`
	WeekendQuietHours bool   `json:"weekendQuietHours"`
	EmergencyOverride bool   `json:"emergencyOverride"`
}

// DefaultScheduleSettings returns the schedule configuration applied when a
// user has never saved one.
func DefaultScheduleSettings() ScheduleSettings {
	return ScheduleSettings{
		QuietHoursEnabled: true,
		QuietStart:        "22:00",
		QuietEnd:          "07:00",
		WeekendQuietHours: true,
		EmergencyOverride: true,
	}
}

// ParseNotificationSettings overlays a stored settings blob on the defaults.
// Empty or malformed input yields the defaults unchanged; this function
// never fails.
func ParseNotificationSettings(raw string) map[string]bool {
	settings := DefaultNotificationSettings()
	if raw == "" {
		return settings
	}
	var stored map[string]bool
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return settings
	}
	for k, v := range stored {
		settings[k] = v
	}
	return settings
}

// ParseScheduleSettings overlays a stored schedule blob on the defaults.
// Empty or malformed input yields the defaults unchanged.
func ParseScheduleSettings(raw string) ScheduleSettings {
	settings := DefaultScheduleSettings()
	if raw == "" {
		return settings
	}
	// Unmarshal into a copy so a partial blob keeps defaults for absent keys.
	if err := json.Unmarshal([]byte(raw), &settings); err != nil {
		return DefaultScheduleSettings()
	}
	return settings
}

// InQuietWindow reports whether now falls inside the configured quiet window.
// A start after the end means the window wraps midnight (22:00–07:00).
// Unparsable times fail open: the time is treated as outside the window.
func (s ScheduleSettings) InQuietWindow(now time.Time) bool {
	start, err := time.Parse("15:04", s.QuietStart)
	if err != nil {
		return false
	}
	end, err := time.Parse("15:04", s.QuietEnd)
	if err != nil {
		return false
	}
	cur := now.Hour()*60 + now.Minute()
	startMin := start.Hour()*60 + start.Minute()
	endMin := end.Hour()*60 + end.Minute()
	if startMin > endMin {
		return cur > startMin || cur < endMin
	}
	return cur > startMin && cur < endMin
}
