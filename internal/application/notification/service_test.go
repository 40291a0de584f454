package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/infrastructure/expo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockUserStore struct{ mock.Mock }

func (m *mockUserStore) Get(ctx context.Context, userID string) (*domain.User, error) {
	args := m.Called(ctx, userID)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u, _ := args.Get(0).(*domain.User); u != nil {
		return u, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockNotificationStore struct{ mock.Mock }

func (m *mockNotificationStore) Put(ctx context.Context, n *domain.Notification) error {
	return m.Called(ctx, n).Error(0)
}
func (m *mockNotificationStore) Get(ctx context.Context, id string) (*domain.Notification, error) {
	args := m.Called(ctx, id)
	if n, _ := args.Get(0).(*domain.Notification); n != nil {
		return n, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) ListByUser(ctx context.Context, userID string, limit int32) ([]domain.Notification, error) {
	args := m.Called(ctx, userID, limit)
	if ns, _ := args.Get(0).([]domain.Notification); ns != nil {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	args := m.Called(ctx, userID)
	if ns, _ := args.Get(0).([]domain.Notification); ns != nil {
		return ns, args.Error(1)
	}
	return nil, args.Error(1)
}
func (m *mockNotificationStore) MarkAsRead(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockNotificationStore) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}
func (m *mockNotificationStore) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

type mockDeliveryStore struct{ mock.Mock }

func (m *mockDeliveryStore) Put(ctx context.Context, d *domain.DeliveryRecord) error {
	return m.Called(ctx, d).Error(0)
}
func (m *mockDeliveryStore) ListByUser(ctx context.Context, userID string, limit int32) ([]domain.DeliveryRecord, error) {
	args := m.Called(ctx, userID, limit)
	if ds, _ := args.Get(0).([]domain.DeliveryRecord); ds != nil {
		return ds, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockSecurityStore struct{ mock.Mock }

func (m *mockSecurityStore) Get(ctx context.Context, email string) (*domain.SecuritySettings, error) {
	args := m.Called(ctx, email)
	if s, _ := args.Get(0).(*domain.SecuritySettings); s != nil {
		return s, args.Error(1)
	}
	return nil, args.Error(1)
}

type mockPushSender struct{ mock.Mock }

func (m *mockPushSender) SendPush(ctx context.Context, msg *expo.PushMessage) error {
	return m.Called(ctx, msg).Error(0)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) SendEmail(to, subject, body string) error {
	return m.Called(to, subject, body).Error(0)
}

type mockSMSSender struct{ mock.Mock }

func (m *mockSMSSender) SendSMS(ctx context.Context, to, message string) error {
	return m.Called(ctx, to, message).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) NotifyUser(userID, title, message, eventType string) {
	m.Called(userID, title, message, eventType)
}

// --- builders ---

type deps struct {
	users      *mockUserStore
	inbox      *mockNotificationStore
	deliveries *mockDeliveryStore
	security   *mockSecurityStore
	push       *mockPushSender
	mailer     *mockMailer
	sms        *mockSMSSender
	publisher  *mockPublisher
}

func newDeps() deps {
	return deps{
		users:      &mockUserStore{},
		inbox:      &mockNotificationStore{},
		deliveries: &mockDeliveryStore{},
		security:   &mockSecurityStore{},
		push:       &mockPushSender{},
		mailer:     &mockMailer{},
		sms:        &mockSMSSender{},
		publisher:  &mockPublisher{},
	}
}

func (d deps) service(at time.Time) *service {
	svc := NewService(ServiceDeps{
		UserRepo:          d.users,
		NotificationRepo:  d.inbox,
		DeliveryRepo:      d.deliveries,
		SecurityRepo:      d.security,
		PushSender:        d.push,
		Mailer:            d.mailer,
		SMSSender:         d.sms,
		RealtimePublisher: d.publisher,
	}).(*service)
	if !at.IsZero() {
		svc.now = func() time.Time { return at }
	}
	return svc
}

func strPtr(s string) *string { return &s }

func at(hour, minute int) time.Time {
	return time.Date(2025, 6, 18, hour, minute, 0, 0, time.UTC)
}

// --- IsChannelEnabled ---

func TestIsChannelEnabled_DefaultsForUnsetCategories(t *testing.T) {
	svc := newDeps().service(time.Time{})
	u := &domain.User{UserID: "u1"} // no stored settings

	for category, want := range domain.DefaultNotificationSettings() {
		assert.Equalf(t, want, svc.IsChannelEnabled(category, u), "category %s", category)
	}
}

func TestIsChannelEnabled_UnknownCategoryIsDisabled(t *testing.T) {
	svc := newDeps().service(time.Time{})
	u := &domain.User{UserID: "u1"}
	assert.False(t, svc.IsChannelEnabled("noSuchCategory", u))
}

func TestIsChannelEnabled_ExplicitSettingWins(t *testing.T) {
	svc := newDeps().service(time.Time{})
	u := &domain.User{NotificationSettings: `{"testResults":false,"promotions":true}`}
	assert.False(t, svc.IsChannelEnabled(domain.CategoryTestResults, u))
	assert.True(t, svc.IsChannelEnabled(domain.CategoryPromotions, u))
}

func TestIsChannelEnabled_MalformedSettingsFallBackToDefaults(t *testing.T) {
	svc := newDeps().service(time.Time{})
	u := &domain.User{NotificationSettings: `{not json`}
	assert.True(t, svc.IsChannelEnabled(domain.CategoryTestResults, u))
	assert.False(t, svc.IsChannelEnabled(domain.CategoryPromotions, u))
}

func TestIsChannelEnabled_SupportCategoriesUseSupportToggle(t *testing.T) {
	svc := newDeps().service(time.Time{})
	assert.True(t, svc.IsChannelEnabled(domain.CategorySupport, &domain.User{}))
	off := &domain.User{NotificationSettings: `{"supportNotifications":false}`}
	assert.False(t, svc.IsChannelEnabled(domain.CategorySupportReply, off))
}

// --- ShouldDeliver ---

func TestShouldDeliver_QuietHoursDisabledAlwaysTrue(t *testing.T) {
	u := &domain.User{ScheduleSettings: `{"quietHoursEnabled":false}`}
	for _, hour := range []int{0, 3, 12, 23} {
		svc := newDeps().service(at(hour, 0))
		assert.Truef(t, svc.ShouldDeliver(domain.CategoryHealthTips, u), "hour %d", hour)
	}
}

func TestShouldDeliver_WrappingWindow(t *testing.T) {
	// Default window is 22:00-07:00 with emergency override on; use a
	// non-critical category so the window actually applies.
	u := &domain.User{} // defaults
	cases := []struct {
		hour, minute int
		want         bool
	}{
		{23, 0, false},
		{3, 0, false},
		{12, 0, true},
	}
	for _, tc := range cases {
		svc := newDeps().service(at(tc.hour, tc.minute))
		assert.Equalf(t, tc.want, svc.ShouldDeliver(domain.CategoryHealthTips, u), "%02d:%02d", tc.hour, tc.minute)
	}
}

func TestShouldDeliver_CriticalCategoryWithOverride(t *testing.T) {
	u := &domain.User{} // defaults: quiet 22:00-07:00, override on
	svc := newDeps().service(at(23, 0))
	assert.True(t, svc.ShouldDeliver(domain.CategoryTestResults, u))
}

func TestShouldDeliver_CriticalCategoryWithoutOverride(t *testing.T) {
	u := &domain.User{ScheduleSettings: `{"emergencyOverride":false}`}
	svc := newDeps().service(at(23, 0))
	assert.False(t, svc.ShouldDeliver(domain.CategoryTestResults, u))
}

func TestShouldDeliver_MalformedScheduleFailsOpen(t *testing.T) {
	u := &domain.User{ScheduleSettings: `{"quietHoursEnabled":true,"quietStart":"not a time","emergencyOverride":false}`}
	svc := newDeps().service(at(23, 0))
	assert.True(t, svc.ShouldDeliver(domain.CategoryHealthTips, u))
}

// --- Notify ---

func TestNotify_DisabledCategoryNeverTouchesAdapters(t *testing.T) {
	d := newDeps()
	u := &domain.User{
		UserID:               "u1",
		DeviceToken:          strPtr("ExponentPushToken[x]"),
		NotificationSettings: `{"testResults":false}`,
	}
	d.users.On("Get", mock.Anything, "u1").Return(u, nil)

	svc := d.service(at(12, 0))
	out := svc.Notify(context.Background(), "u1", "Test Results Available", "ready", domain.CategoryTestResults)

	assert.Equal(t, OutcomeSkippedDisabled, out.Status)
	d.push.AssertNotCalled(t, "SendPush", mock.Anything, mock.Anything)
	d.mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
	d.inbox.AssertNotCalled(t, "Put", mock.Anything, mock.Anything)
}

func TestNotify_QuietHoursSkipsNonCritical(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1", NotificationSettings: `{"healthTips":true}`}
	d.users.On("Get", mock.Anything, "u1").Return(u, nil)

	svc := d.service(at(2, 0))
	out := svc.Notify(context.Background(), "u1", "Daily Tip", "drink water", domain.CategoryHealthTips)

	assert.Equal(t, OutcomeSkippedQuietHours, out.Status)
	d.push.AssertNotCalled(t, "SendPush", mock.Anything, mock.Anything)
}

func TestNotify_CriticalBypassesQuietHoursAt2AM(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1", DeviceToken: strPtr("tok")}
	d.users.On("Get", mock.Anything, "u1").Return(u, nil)
	d.inbox.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.deliveries.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.publisher.On("NotifyUser", "u1", mock.Anything, mock.Anything, domain.CategoryTestResults).Return()
	d.push.On("SendPush", mock.Anything, mock.Anything).Return(nil)

	svc := d.service(at(2, 0))
	out := svc.Notify(context.Background(), "u1", "Test Results Available", "ready", domain.CategoryTestResults)

	assert.Equal(t, OutcomeSent, out.Status)
	d.push.AssertExpectations(t)
}

func TestNotify_PushFailureIsRecordedNotRaised(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1", DeviceToken: strPtr("tok")}
	d.users.On("Get", mock.Anything, "u1").Return(u, nil)
	d.inbox.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.publisher.On("NotifyUser", "u1", mock.Anything, mock.Anything, mock.Anything).Return()
	d.push.On("SendPush", mock.Anything, mock.Anything).Return(errors.New("gateway down"))

	var recorded []*domain.DeliveryRecord
	d.deliveries.On("Put", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		recorded = append(recorded, args.Get(1).(*domain.DeliveryRecord))
	}).Return(nil)

	svc := d.service(at(12, 0))
	var out Outcome
	assert.NotPanics(t, func() {
		out = svc.Notify(context.Background(), "u1", "Results", "ready", domain.CategoryTestResults)
	})

	// Websocket still went out, so the aggregate is sent; the push attempt
	// is recorded as failed.
	assert.Equal(t, OutcomeSent, out.Status)
	var foundFailed bool
	for _, rec := range recorded {
		if rec.Channel == domain.ChannelPush {
			assert.Equal(t, domain.DeliveryFailed, rec.Status)
			assert.Contains(t, rec.Detail, "gateway down")
			foundFailed = true
		}
	}
	assert.True(t, foundFailed, "expected a failed push delivery record")
}

func TestNotify_UnknownUserReturnsFailureOutcome(t *testing.T) {
	d := newDeps()
	d.users.On("Get", mock.Anything, "ghost").Return(nil, domain.ErrNotFound)

	svc := d.service(at(12, 0))
	out := svc.Notify(context.Background(), "ghost", "t", "m", domain.CategoryTestResults)

	assert.Equal(t, OutcomeFailed, out.Status)
}

func TestNotify_NoDeviceSkipsPushButDeliversRealtime(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1"}
	d.users.On("Get", mock.Anything, "u1").Return(u, nil)
	d.inbox.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.deliveries.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.publisher.On("NotifyUser", "u1", "Results", "ready", domain.CategoryTestResults).Return()

	svc := d.service(at(12, 0))
	out := svc.Notify(context.Background(), "u1", "Results", "ready", domain.CategoryTestResults)

	assert.Equal(t, OutcomeSent, out.Status)
	d.push.AssertNotCalled(t, "SendPush", mock.Anything, mock.Anything)
	d.publisher.AssertExpectations(t)
}

func TestNotify_PushPayloadCarriesScreen(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1", DeviceToken: strPtr("tok")}
	d.users.On("Get", mock.Anything, "u1").Return(u, nil)
	d.inbox.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.deliveries.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.publisher.On("NotifyUser", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return()

	var sent *expo.PushMessage
	d.push.On("SendPush", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		sent = args.Get(1).(*expo.PushMessage)
	}).Return(nil)

	svc := d.service(at(12, 0))
	svc.Notify(context.Background(), "u1", "Results", "ready", domain.CategoryTestResults)

	require.NotNil(t, sent)
	assert.Equal(t, "tok", sent.Token)
	assert.Equal(t, "Results", sent.Data["screen"])
	assert.Equal(t, domain.CategoryTestResults, sent.Data["type"])
}

// --- domain triggers ---

func TestSendResultNotification_DisabledUserStillSucceedsUpstream(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1", NotificationSettings: `{"testResults":false}`}
	d.users.On("Get", mock.Anything, "u1").Return(u, nil)

	svc := d.service(at(12, 0))
	out := svc.SendResultNotification(context.Background(), "u1", &domain.TestResult{TestName: "CBC"})

	// The outcome reports the skip; nothing was delivered and nothing
	// errored, so a result upload calling this still succeeds.
	assert.Equal(t, OutcomeSkippedDisabled, out.Status)
	d.push.AssertNotCalled(t, "SendPush", mock.Anything, mock.Anything)
}

func TestSendSecurityAlert_BypassesQuietHours(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1", Email: "a@b.com"}
	d.users.On("GetByEmail", mock.Anything, "a@b.com").Return(u, nil)
	d.security.On("Get", mock.Anything, "a@b.com").Return(&domain.SecuritySettings{LoginNotifications: true}, nil)
	d.mailer.On("SendEmail", "a@b.com", mock.Anything, mock.Anything).Return(nil)
	d.publisher.On("NotifyUser", "u1", mock.Anything, mock.Anything, mock.Anything).Return()
	d.inbox.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.deliveries.On("Put", mock.Anything, mock.Anything).Return(nil)

	svc := d.service(at(2, 0)) // deep inside default quiet hours
	out := svc.SendSecurityAlert(context.Background(), "a@b.com", AlertLogin, "from new device")

	assert.Equal(t, OutcomeSent, out.Status)
	d.mailer.AssertExpectations(t)
}

func TestSendSecurityAlert_LoginToggleOff(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1", Email: "a@b.com"}
	d.users.On("GetByEmail", mock.Anything, "a@b.com").Return(u, nil)
	d.security.On("Get", mock.Anything, "a@b.com").Return(&domain.SecuritySettings{LoginNotifications: false}, nil)

	svc := d.service(at(12, 0))
	out := svc.SendSecurityAlert(context.Background(), "a@b.com", AlertLogin, "")

	assert.Equal(t, OutcomeSkippedDisabled, out.Status)
	d.mailer.AssertNotCalled(t, "SendEmail", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendSecurityAlert_PasswordChangeAlwaysSends(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1", Email: "a@b.com"}
	d.users.On("GetByEmail", mock.Anything, "a@b.com").Return(u, nil)
	d.mailer.On("SendEmail", "a@b.com", mock.Anything, mock.Anything).Return(nil)
	d.publisher.On("NotifyUser", "u1", mock.Anything, mock.Anything, mock.Anything).Return()
	d.inbox.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.deliveries.On("Put", mock.Anything, mock.Anything).Return(nil)

	svc := d.service(at(3, 0))
	out := svc.SendSecurityAlert(context.Background(), "a@b.com", AlertPasswordChange, "")

	assert.Equal(t, OutcomeSent, out.Status)
	// No security settings lookup: password changes ignore the toggle.
	d.security.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestSendSecurityAlert_AccountLockedSendsSMSWhenPhonePresent(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1", Email: "a@b.com", Phone: strPtr("+15550001111")}
	d.users.On("GetByEmail", mock.Anything, "a@b.com").Return(u, nil)
	d.mailer.On("SendEmail", "a@b.com", mock.Anything, mock.Anything).Return(nil)
	d.sms.On("SendSMS", mock.Anything, "+15550001111", mock.Anything).Return(nil)
	d.publisher.On("NotifyUser", "u1", mock.Anything, mock.Anything, mock.Anything).Return()
	d.inbox.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.deliveries.On("Put", mock.Anything, mock.Anything).Return(nil)

	svc := d.service(at(12, 0))
	out := svc.SendSecurityAlert(context.Background(), "a@b.com", AlertAccountLocked, "5 failed attempts")

	assert.Equal(t, OutcomeSent, out.Status)
	d.sms.AssertExpectations(t)
}

func TestNotifyAgentReply_AlsoEmails(t *testing.T) {
	d := newDeps()
	u := &domain.User{UserID: "u1", Email: "a@b.com"}
	d.users.On("Get", mock.Anything, "u1").Return(u, nil)
	d.inbox.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.deliveries.On("Put", mock.Anything, mock.Anything).Return(nil)
	d.publisher.On("NotifyUser", "u1", mock.Anything, mock.Anything, mock.Anything).Return()
	d.mailer.On("SendEmail", "a@b.com", mock.Anything, mock.Anything).Return(nil)

	ticket := &domain.SupportTicket{TicketNumber: "T-100", UserID: "u1", Email: "a@b.com"}
	svc := d.service(at(12, 0))
	out := svc.NotifyAgentReply(context.Background(), ticket, "Sam", "Your issue is fixed")

	assert.Equal(t, OutcomeSent, out.Status)
	d.mailer.AssertExpectations(t)
}

func TestNotifyTicketCreated_GuestGetsEmailOnly(t *testing.T) {
	d := newDeps()
	d.mailer.On("SendEmail", "guest@x.com", mock.Anything, mock.Anything).Return(nil)

	ticket := &domain.SupportTicket{TicketNumber: "T-101", Email: "guest@x.com"}
	svc := d.service(at(12, 0))
	out := svc.NotifyTicketCreated(context.Background(), ticket)

	assert.Equal(t, OutcomeSent, out.Status)
	d.users.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
	d.push.AssertNotCalled(t, "SendPush", mock.Anything, mock.Anything)
}

func TestSendTestNotification_NoDeviceFails(t *testing.T) {
	d := newDeps()
	d.users.On("Get", mock.Anything, "u1").Return(&domain.User{UserID: "u1"}, nil)

	svc := d.service(at(12, 0))
	out := svc.SendTestNotification(context.Background(), "u1")

	assert.Equal(t, OutcomeFailed, out.Status)
}

// --- inbox ---

func TestMarkAsRead_WrongOwnerForbidden(t *testing.T) {
	d := newDeps()
	d.inbox.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "owner"}, nil)

	svc := d.service(time.Time{})
	_, err := svc.MarkAsRead(context.Background(), "n1", "intruder")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	d.inbox.AssertNotCalled(t, "MarkAsRead", mock.Anything, mock.Anything)
}

func TestDelete_WrongOwnerForbidden(t *testing.T) {
	d := newDeps()
	d.inbox.On("Get", mock.Anything, "n1").Return(&domain.Notification{NotificationID: "n1", UserID: "owner"}, nil)

	svc := d.service(time.Time{})
	err := svc.Delete(context.Background(), "n1", "intruder")

	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
}
