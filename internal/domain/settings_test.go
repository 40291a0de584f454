package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultNotificationSettings_FullTable(t *testing.T) {
	cases := []struct {
		category string
		enabled  bool
	}{
		{CategoryTestResults, true},
		{CategoryAppointmentReminders, true},
		{CategoryMedicationAlerts, true},
		{CategoryHealthTips, false},
		{CategorySupportNotifications, true},
		{CategoryLoginAlerts, true},
		{CategorySecurityUpdates, true},
		{CategoryAccountChanges, true},
		{CategoryAppUpdates, true},
		{CategoryFeatureAnnouncements, false},
		{CategoryMaintenanceNotices, true},
		{CategoryPromotions, false},
		{CategoryNewsletters, false},
		{CategorySurveys, false},
	}
	defaults := DefaultNotificationSettings()
	assert.Len(t, defaults, len(cases))
	for _, tc := range cases {
		t.Run(tc.category, func(t *testing.T) {
			assert.Equal(t, tc.enabled, defaults[tc.category])
		})
	}
}

func TestParseNotificationSettings_MalformedYieldsDefaults(t *testing.T) {
	assert.Equal(t, DefaultNotificationSettings(), ParseNotificationSettings("{not json"))
	assert.Equal(t, DefaultNotificationSettings(), ParseNotificationSettings(""))
}

func TestParseNotificationSettings_OverlaysStored(t *testing.T) {
	settings := ParseNotificationSettings(`{"testResults":false,"healthTips":true}`)
	assert.False(t, settings[CategoryTestResults])
	assert.True(t, settings[CategoryHealthTips])
	// Untouched keys keep their defaults.
	assert.True(t, settings[CategoryAppointmentReminders])
}

func TestParseScheduleSettings_PartialBlobKeepsDefaults(t *testing.T) {
	s := ParseScheduleSettings(`{"quietStart":"23:30"}`)
	assert.Equal(t, "23:30", s.QuietStart)
	assert.Equal(t, "07:00", s.QuietEnd)
	assert.True(t, s.QuietHoursEnabled)
	assert.True(t, s.EmergencyOverride)
}

func TestParseScheduleSettings_MalformedYieldsDefaults(t *testing.T) {
	assert.Equal(t, DefaultScheduleSettings(), ParseScheduleSettings("][{"))
}

func TestInQuietWindow_WrapsMidnight(t *testing.T) {
	s := ScheduleSettings{QuietStart: "22:00", QuietEnd: "07:00"}
	at := func(hhmm string) time.Time {
		parsed, err := time.Parse("15:04", hhmm)
		if err != nil {
			t.Fatalf("bad test time %q", hhmm)
		}
		return time.Date(2024, 3, 15, parsed.Hour(), parsed.Minute(), 0, 0, time.UTC)
	}
	assert.True(t, s.InQuietWindow(at("23:00")))
	assert.True(t, s.InQuietWindow(at("03:00")))
	assert.False(t, s.InQuietWindow(at("12:00")))
}

func TestInQuietWindow_SameDayWindow(t *testing.T) {
	s := ScheduleSettings{QuietStart: "13:00", QuietEnd: "15:00"}
	at := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	assert.True(t, s.InQuietWindow(at))
	assert.False(t, s.InQuietWindow(time.Date(2024, 3, 15, 16, 0, 0, 0, time.UTC)))
}

func TestInQuietWindow_UnparsableFailsOpen(t *testing.T) {
	s := ScheduleSettings{QuietStart: "bogus", QuietEnd: "07:00"}
	assert.False(t, s.InQuietWindow(time.Now()))
}

func TestIsCriticalCategory(t *testing.T) {
	assert.True(t, IsCriticalCategory(CategoryTestResults))
	assert.True(t, IsCriticalCategory(CategorySupportReply))
	assert.False(t, IsCriticalCategory(CategoryHealthTips))
	assert.False(t, IsCriticalCategory(CategoryPromotions))
}
