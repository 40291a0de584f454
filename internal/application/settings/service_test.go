package settings

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/medical-records-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) Update(ctx context.Context, userID string, updates map[string]interface{}) error {
	return m.Called(ctx, userID, updates).Error(0)
}

type mockSecurityStore struct{ mock.Mock }

func (m *mockSecurityStore) Get(ctx context.Context, email string) (*domain.SecuritySettings, error) {
	args := m.Called(ctx, email)
	if s, _ := args.Get(0).(*domain.SecuritySettings); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockSecurityStore) Put(ctx context.Context, s *domain.SecuritySettings) error {
	return m.Called(ctx, s).Error(0)
}

func TestGet_FirstFetchMaterializesDefaults(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	var persisted map[string]interface{}
	us.On("Update", mock.Anything, "u1", mock.Anything).Run(func(args mock.Arguments) {
		persisted = args.Get(2).(map[string]interface{})
	}).Return(nil)

	svc := NewService(us, &mockSecurityStore{})
	settings, err := svc.Get(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNotificationSettings(), settings.Notifications)
	assert.Equal(t, domain.DefaultScheduleSettings(), settings.Schedule)

	require.NotNil(t, persisted, "defaults should be written back on first fetch")
	var stored map[string]bool
	require.NoError(t, json.Unmarshal([]byte(persisted["notification_settings"].(string)), &stored))
	assert.Equal(t, domain.DefaultNotificationSettings(), stored)
}

func TestGet_ExistingSettingsNotRewritten(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:               "u1",
		NotificationSettings: `{"testResults":false}`,
		ScheduleSettings:     `{"quietHoursEnabled":false}`,
	}, nil)

	svc := NewService(us, &mockSecurityStore{})
	settings, err := svc.Get(context.Background(), "u1")

	require.NoError(t, err)
	assert.False(t, settings.Notifications[domain.CategoryTestResults])
	assert.False(t, settings.Schedule.QuietHoursEnabled)
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdate_PartialMergeKeepsOtherCategories(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{
		UserID:               "u1",
		NotificationSettings: `{"promotions":true}`,
	}, nil)
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)

	svc := NewService(us, &mockSecurityStore{})
	settings, err := svc.Update(context.Background(), "u1", UpdateRequest{
		Notifications: map[string]bool{domain.CategoryTestResults: false},
	})

	require.NoError(t, err)
	assert.False(t, settings.Notifications[domain.CategoryTestResults])
	assert.True(t, settings.Notifications[domain.CategoryPromotions], "earlier override survives")
	assert.True(t, settings.Notifications[domain.CategoryMedicationAlerts], "untouched default survives")
}

func TestUpdate_UnknownCategoryRejected(t *testing.T) {
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	svc := NewService(us, &mockSecurityStore{})
	_, err := svc.Update(context.Background(), "u1", UpdateRequest{
		Notifications: map[string]bool{"bogus": true},
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrBadRequest))
	us.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestReset_RestoresDefaults(t *testing.T) {
	us := &mockUserStore{}
	us.On("Update", mock.Anything, "u1", mock.Anything).Return(nil)

	svc := NewService(us, &mockSecurityStore{})
	settings, err := svc.Reset(context.Background(), "u1")

	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNotificationSettings(), settings.Notifications)
	assert.Equal(t, domain.DefaultScheduleSettings(), settings.Schedule)
}

func TestSummary_Counts(t *testing.T) {
	token := "tok"
	us := &mockUserStore{}
	us.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1", DeviceToken: &token}, nil)

	svc := NewService(us, &mockSecurityStore{})
	sum, err := svc.Summary(context.Background(), "u1")

	require.NoError(t, err)
	defaults := domain.DefaultNotificationSettings()
	wantEnabled := 0
	for _, v := range defaults {
		if v {
			wantEnabled++
		}
	}
	assert.Equal(t, wantEnabled, sum.Enabled)
	assert.Equal(t, len(defaults)-wantEnabled, sum.Disabled)
	assert.True(t, sum.QuietHoursEnabled)
	assert.True(t, sum.PushRegistered)
}

func TestRegisterDevice_LastWriteWins(t *testing.T) {
	us := &mockUserStore{}
	var updates map[string]interface{}
	us.On("Update", mock.Anything, "u1", mock.Anything).Run(func(args mock.Arguments) {
		updates = args.Get(2).(map[string]interface{})
	}).Return(nil)

	svc := NewService(us, &mockSecurityStore{})
	err := svc.RegisterDevice(context.Background(), "u1", domain.RegisterDeviceRequest{
		DeviceToken: "ExponentPushToken[abc]",
		Platform:    "ios",
	})

	require.NoError(t, err)
	assert.Equal(t, "ExponentPushToken[abc]", updates["device_token"])
	assert.Equal(t, "ios", updates["device_platform"])
}

func TestUpdateSecurity_PartialToggle(t *testing.T) {
	ss := &mockSecurityStore{}
	ss.On("Get", mock.Anything, "a@b.com").Return(&domain.SecuritySettings{
		Email:                    "a@b.com",
		LoginNotifications:       true,
		SuspiciousActivityAlerts: true,
	}, nil)
	ss.On("Put", mock.Anything, mock.Anything).Return(nil)

	off := false
	svc := NewService(&mockUserStore{}, ss)
	updated, err := svc.UpdateSecurity(context.Background(), "a@b.com", domain.UpdateSecuritySettingsRequest{
		LoginNotifications: &off,
	})

	require.NoError(t, err)
	assert.False(t, updated.LoginNotifications)
	assert.True(t, updated.SuspiciousActivityAlerts)
}
