package notification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/infrastructure/expo"
	"github.com/medical-records-api/internal/infrastructure/smtp"
	"github.com/medical-records-api/internal/infrastructure/sns"
	"github.com/medical-records-api/internal/pkg/id"
)

// Outcome statuses. Every delivery attempt resolves to exactly one of these;
// the engine never returns an error to its caller.
const (
	OutcomeSent              = "SENT"
	OutcomeSkippedDisabled   = "SKIPPED_DISABLED"
	OutcomeSkippedQuietHours = "SKIPPED_QUIET_HOURS"
	OutcomeFailed            = "FAILED"
)

// Security alert types. These bypass the category enablement and quiet-hour
// gates entirely.
const (
	AlertLogin          = "login"
	AlertPasswordChange = "password_change"
	AlertAccountLocked  = "account_locked"
)

// Outcome is the structured result of one notification request. Channels
// lists every channel that was attempted with its per-channel status.
type Outcome struct {
	Status   string          `json:"status"`
	Detail   string          `json:"detail,omitempty"`
	Channels []ChannelResult `json:"channels,omitempty"`
}

type ChannelResult struct {
	Channel string `json:"channel"`
	Status  string `json:"status"`
	Detail  string `json:"detail,omitempty"`
}

// UserStore is the engine's view of user persistence.
type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type NotificationStore interface {
	Put(ctx context.Context, n *domain.Notification) error
	Get(ctx context.Context, notificationID string) (*domain.Notification, error)
	ListByUser(ctx context.Context, userID string, limit int32) ([]domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, notificationID string) error
}

type DeliveryStore interface {
	Put(ctx context.Context, d *domain.DeliveryRecord) error
	ListByUser(ctx context.Context, userID string, limit int32) ([]domain.DeliveryRecord, error)
}

type SecuritySettingsStore interface {
	Get(ctx context.Context, email string) (*domain.SecuritySettings, error)
}

// Publisher routes events to connected realtime sessions.
type Publisher interface {
	NotifyUser(userID, title, message, eventType string)
}

type Service interface {
	// Decision primitives.
	IsChannelEnabled(category string, u *domain.User) bool
	ShouldDeliver(category string, u *domain.User) bool

	// Core delivery. Never returns an error: failures become Outcome values.
	Notify(ctx context.Context, userID, title, message, category string) Outcome

	// Domain-specific triggers.
	SendAppointmentReminder(ctx context.Context, userID, doctorName, reminderType string, when time.Time) Outcome
	SendResultNotification(ctx context.Context, userID string, result *domain.TestResult) Outcome
	SendSecurityAlert(ctx context.Context, email, alertType, detail string) Outcome
	NotifyTicketCreated(ctx context.Context, ticket *domain.SupportTicket) Outcome
	NotifyAgentReply(ctx context.Context, ticket *domain.SupportTicket, agentName, message string) Outcome
	SendTestNotification(ctx context.Context, userID string) Outcome

	// Inbox operations.
	List(ctx context.Context, userID string, limit int32) ([]domain.Notification, error)
	ListUnread(ctx context.Context, userID string) ([]domain.Notification, error)
	MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error)
	MarkAllAsRead(ctx context.Context, userID string) (int, error)
	Delete(ctx context.Context, notificationID, userID string) error
	DeliveryHistory(ctx context.Context, userID string, limit int32) ([]domain.DeliveryRecord, error)
}

type ServiceDeps struct {
	UserRepo          UserStore
	NotificationRepo  NotificationStore
	DeliveryRepo      DeliveryStore
	SecurityRepo      SecuritySettingsStore
	PushSender        expo.PushSender
	Mailer            smtp.Mailer
	SMSSender         sns.SMSSender
	RealtimePublisher Publisher
}

type service struct {
	users      UserStore
	inbox      NotificationStore
	deliveries DeliveryStore
	security   SecuritySettingsStore
	push       expo.PushSender
	mailer     smtp.Mailer
	sms        sns.SMSSender
	publisher  Publisher
	now        func() time.Time
}

func NewService(deps ServiceDeps) Service {
	return &service{
		users:      deps.UserRepo,
		inbox:      deps.NotificationRepo,
		deliveries: deps.DeliveryRepo,
		security:   deps.SecurityRepo,
		push:       deps.PushSender,
		mailer:     deps.Mailer,
		sms:        deps.SMSSender,
		publisher:  deps.RealtimePublisher,
		now:        time.Now,
	}
}

// IsChannelEnabled resolves the category against the user's stored settings,
// falling back to the default table for absent categories and to false for
// unknown category names. Malformed stored settings degrade to defaults.
func (s *service) IsChannelEnabled(category string, u *domain.User) bool {
	settings := domain.ParseNotificationSettings(u.NotificationSettings)
	enabled, ok := settings[category]
	if !ok {
		// support / support_reply are gated by the support toggle.
		if category == domain.CategorySupport || category == domain.CategorySupportReply {
			return settings[domain.CategorySupportNotifications]
		}
		return false
	}
	return enabled
}

// ShouldDeliver evaluates quiet hours for the user. Critical categories pass
// when the emergency override is on. Any evaluation failure fails open so a
// corrupt schedule can never block delivery.
func (s *service) ShouldDeliver(category string, u *domain.User) bool {
	schedule := domain.ParseScheduleSettings(u.ScheduleSettings)
	if !schedule.QuietHoursEnabled {
		return true
	}
	if schedule.EmergencyOverride && domain.IsCriticalCategory(category) {
		return true
	}
	return !schedule.InQuietWindow(s.now())
}

func (s *service) Notify(ctx context.Context, userID, title, message, category string) Outcome {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		slog.Warn("notification target not found", "user_id", userID, "category", category, "err", err)
		return Outcome{Status: OutcomeFailed, Detail: "user not found"}
	}
	if !s.IsChannelEnabled(category, u) {
		return Outcome{Status: OutcomeSkippedDisabled, Detail: "category disabled for user"}
	}
	if !s.ShouldDeliver(category, u) {
		return Outcome{Status: OutcomeSkippedQuietHours, Detail: "inside quiet hours"}
	}
	return s.deliver(ctx, u, title, message, category)
}

// deliver fans out to every applicable channel and records each attempt.
// Called after all gates have passed (or been bypassed).
func (s *service) deliver(ctx context.Context, u *domain.User, title, message, category string) Outcome {
	s.storeInboxRecord(ctx, u.UserID, title, message, category)

	var results []ChannelResult

	// Live sessions always get the event; the publisher is fire-and-forget.
	if s.publisher != nil {
		s.publisher.NotifyUser(u.UserID, title, message, category)
		results = append(results, s.record(ctx, u.UserID, domain.ChannelWebSocket, domain.DeliverySent, category, ""))
	}

	if u.DeviceToken != nil && *u.DeviceToken != "" {
		results = append(results, s.sendPush(ctx, u, title, message, category))
	}

	if categoryAlsoEmailed(category) {
		results = append(results, s.sendEmail(ctx, u.UserID, u.Email, title, message, category))
	}

	return aggregate(results)
}

func (s *service) sendPush(ctx context.Context, u *domain.User, title, message, category string) ChannelResult {
	if s.push == nil {
		return s.record(ctx, u.UserID, domain.ChannelPush, domain.DeliveryFailed, category, "push gateway not configured")
	}
	msg := &expo.PushMessage{
		Token: *u.DeviceToken,
		Title: title,
		Body:  message,
		Data: map[string]string{
			"type":      category,
			"timestamp": s.now().UTC().Format(time.RFC3339),
			"screen":    screenFor(category),
		},
	}
	if err := s.push.SendPush(ctx, msg); err != nil {
		slog.Warn("push delivery failed", "user_id", u.UserID, "category", category, "err", err)
		return s.record(ctx, u.UserID, domain.ChannelPush, domain.DeliveryFailed, category, err.Error())
	}
	return s.record(ctx, u.UserID, domain.ChannelPush, domain.DeliverySent, category, "")
}

func (s *service) sendEmail(ctx context.Context, userID, email, subject, body, category string) ChannelResult {
	if s.mailer == nil {
		return s.record(ctx, userID, domain.ChannelEmail, domain.DeliveryFailed, category, "mailer not configured")
	}
	if err := s.mailer.SendEmail(email, subject, body); err != nil {
		slog.Warn("email delivery failed", "user_id", userID, "category", category, "err", err)
		return s.record(ctx, userID, domain.ChannelEmail, domain.DeliveryFailed, category, err.Error())
	}
	return s.record(ctx, userID, domain.ChannelEmail, domain.DeliverySent, category, "")
}

func (s *service) sendSMS(ctx context.Context, userID, phone, message, category string) ChannelResult {
	if s.sms == nil {
		return s.record(ctx, userID, domain.ChannelSMS, domain.DeliveryFailed, category, "sms sender not configured")
	}
	if err := s.sms.SendSMS(ctx, phone, message); err != nil {
		slog.Warn("sms delivery failed", "user_id", userID, "category", category, "err", err)
		return s.record(ctx, userID, domain.ChannelSMS, domain.DeliveryFailed, category, err.Error())
	}
	return s.record(ctx, userID, domain.ChannelSMS, domain.DeliverySent, category, "")
}

// storeInboxRecord persists the in-app notification row. Failures are logged
// and swallowed: the inbox copy must not gate channel delivery.
func (s *service) storeInboxRecord(ctx context.Context, userID, title, message, category string) {
	now := s.now().UTC()
	priority := domain.PriorityNormal
	if domain.IsCriticalCategory(category) {
		priority = domain.PriorityHigh
	}
	n := &domain.Notification{
		NotificationID: id.New(),
		UserID:         userID,
		Type:           category,
		Title:          title,
		Message:        message,
		Priority:       priority,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.inbox.Put(ctx, n); err != nil {
		slog.Warn("could not store notification", "user_id", userID, "category", category, "err", err)
	}
}

// record writes one DeliveryRecord and returns the matching ChannelResult.
// Record persistence failures are logged, never surfaced.
func (s *service) record(ctx context.Context, userID, channel, status, category, detail string) ChannelResult {
	rec := &domain.DeliveryRecord{
		DeliveryID:       id.New(),
		UserID:           userID,
		Channel:          channel,
		Status:           status,
		Category:         category,
		Detail:           detail,
		DeliveryAttempts: 1,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.deliveries.Put(ctx, rec); err != nil {
		slog.Warn("could not store delivery record", "user_id", userID, "channel", channel, "err", err)
	}
	return ChannelResult{Channel: channel, Status: status, Detail: detail}
}

func aggregate(results []ChannelResult) Outcome {
	if len(results) == 0 {
		return Outcome{Status: OutcomeSent, Detail: "no channels applicable"}
	}
	anySent := false
	for _, r := range results {
		if r.Status == domain.DeliverySent {
			anySent = true
		}
	}
	status := OutcomeSent
	if !anySent {
		status = OutcomeFailed
	}
	return Outcome{Status: status, Channels: results}
}

// categoryAlsoEmailed lists categories that get an email copy on top of
// push/realtime.
func categoryAlsoEmailed(category string) bool {
	return category == domain.CategorySupportReply
}

// screenFor maps a category to the mobile screen opened when the push is
// tapped.
func screenFor(category string) string {
	switch category {
	case domain.CategoryTestResults:
		return "Results"
	case domain.CategoryAppointmentReminders:
		return "Appointments"
	case domain.CategorySupport, domain.CategorySupportReply, domain.CategorySupportNotifications:
		return "Support"
	case domain.CategoryLoginAlerts, domain.CategorySecurityUpdates, domain.CategoryAccountChanges:
		return "Security"
	default:
		return "Notifications"
	}
}

// --- domain-specific triggers ---

func (s *service) SendAppointmentReminder(ctx context.Context, userID, doctorName, reminderType string, when time.Time) Outcome {
	var title, message string
	switch reminderType {
	case "24h":
		title = "Appointment Tomorrow"
		message = fmt.Sprintf("You have an appointment with %s tomorrow at %s", doctorName, when.Format("15:04"))
	case "1h":
		title = "Appointment in 1 Hour"
		message = fmt.Sprintf("Your appointment with %s starts at %s", doctorName, when.Format("15:04"))
	case "15m":
		title = "Appointment Starting Soon"
		message = fmt.Sprintf("Your appointment with %s starts in 15 minutes", doctorName)
	default:
		title = "Appointment Reminder"
		message = fmt.Sprintf("You have an upcoming appointment with %s on %s", doctorName, when.Format("Jan 2 15:04"))
	}
	return s.Notify(ctx, userID, title, message, domain.CategoryAppointmentReminders)
}

func (s *service) SendResultNotification(ctx context.Context, userID string, result *domain.TestResult) Outcome {
	title := "Test Results Available"
	message := fmt.Sprintf("Your %s results are ready to view", result.TestName)
	if result.Status == domain.ResultCritical {
		title = "Important: Test Results Available"
		message = fmt.Sprintf("Your %s results require attention. Please review them promptly.", result.TestName)
	}
	return s.Notify(ctx, userID, title, message, domain.CategoryTestResults)
}

// SendSecurityAlert bypasses the enablement and quiet-hour gates: security
// events are the one class of notification that ignores user preference.
// Login alerts alone respect the per-account login-notification toggle.
func (s *service) SendSecurityAlert(ctx context.Context, email, alertType, detail string) Outcome {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		slog.Warn("security alert target not found", "email", email, "type", alertType, "err", err)
		return Outcome{Status: OutcomeFailed, Detail: "user not found"}
	}

	if alertType == AlertLogin {
		sec, err := s.security.Get(ctx, email)
		if err == nil && !sec.LoginNotifications {
			return Outcome{Status: OutcomeSkippedDisabled, Detail: "login notifications disabled"}
		}
	}

	var title, message string
	switch alertType {
	case AlertLogin:
		title = "New Login to Your Account"
		message = "A new login to your account was detected. " + detail
	case AlertPasswordChange:
		title = "Your Password Was Changed"
		message = "Your account password was just changed. If this wasn't you, contact support immediately."
	case AlertAccountLocked:
		title = "Account Locked"
		message = "Your account has been locked after repeated failed login attempts. " + detail
	default:
		title = "Security Alert"
		message = detail
	}

	var results []ChannelResult
	results = append(results, s.sendEmail(ctx, u.UserID, u.Email, title, message, domain.CategoryLoginAlerts))
	if s.publisher != nil {
		s.publisher.NotifyUser(u.UserID, title, message, domain.CategoryLoginAlerts)
		results = append(results, s.record(ctx, u.UserID, domain.ChannelWebSocket, domain.DeliverySent, domain.CategoryLoginAlerts, ""))
	}
	if u.DeviceToken != nil && *u.DeviceToken != "" {
		results = append(results, s.sendPush(ctx, u, title, message, domain.CategoryLoginAlerts))
	}
	// Account locks additionally go out over SMS when a phone is on file.
	if alertType == AlertAccountLocked && u.Phone != nil && *u.Phone != "" {
		results = append(results, s.sendSMS(ctx, u.UserID, *u.Phone, title+": "+message, domain.CategoryLoginAlerts))
	}

	s.storeInboxRecord(ctx, u.UserID, title, message, domain.CategoryLoginAlerts)
	return aggregate(results)
}

func (s *service) NotifyTicketCreated(ctx context.Context, ticket *domain.SupportTicket) Outcome {
	title := "Support Ticket Created"
	message := fmt.Sprintf("Your ticket %s has been received. We'll get back to you soon.", ticket.TicketNumber)
	if ticket.UserID == "" {
		// Guest ticket: email is the only reachable channel.
		res := s.sendEmailOnly(ctx, ticket.Email, title, message, domain.CategorySupport)
		return aggregate([]ChannelResult{res})
	}
	return s.Notify(ctx, ticket.UserID, title, message, domain.CategorySupport)
}

func (s *service) NotifyAgentReply(ctx context.Context, ticket *domain.SupportTicket, agentName, message string) Outcome {
	title := fmt.Sprintf("Reply on Ticket %s", ticket.TicketNumber)
	body := fmt.Sprintf("%s replied: %s", agentName, message)
	if ticket.UserID == "" {
		res := s.sendEmailOnly(ctx, ticket.Email, title, body, domain.CategorySupportReply)
		return aggregate([]ChannelResult{res})
	}
	return s.Notify(ctx, ticket.UserID, title, body, domain.CategorySupportReply)
}

// sendEmailOnly delivers to an address with no user account behind it, so no
// delivery record keyed by user id is written.
func (s *service) sendEmailOnly(ctx context.Context, email, subject, body, category string) ChannelResult {
	if s.mailer == nil {
		return ChannelResult{Channel: domain.ChannelEmail, Status: domain.DeliveryFailed, Detail: "mailer not configured"}
	}
	if err := s.mailer.SendEmail(email, subject, body); err != nil {
		slog.Warn("email delivery failed", "email", email, "category", category, "err", err)
		return ChannelResult{Channel: domain.ChannelEmail, Status: domain.DeliveryFailed, Detail: err.Error()}
	}
	return ChannelResult{Channel: domain.ChannelEmail, Status: domain.DeliverySent}
}

// SendTestNotification pushes a throwaway message so a user can verify their
// device registration. Gates are bypassed: the user asked for it explicitly.
func (s *service) SendTestNotification(ctx context.Context, userID string) Outcome {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return Outcome{Status: OutcomeFailed, Detail: "user not found"}
	}
	if u.DeviceToken == nil || *u.DeviceToken == "" {
		return Outcome{Status: OutcomeFailed, Detail: "no device registered"}
	}
	res := s.sendPush(ctx, u, "Test Notification", "Push notifications are working correctly.", domain.CategoryAppUpdates)
	return aggregate([]ChannelResult{res})
}

// --- inbox operations ---

func (s *service) List(ctx context.Context, userID string, limit int32) ([]domain.Notification, error) {
	return s.inbox.ListByUser(ctx, userID, limit)
}

func (s *service) ListUnread(ctx context.Context, userID string) ([]domain.Notification, error) {
	return s.inbox.ListUnread(ctx, userID)
}

func (s *service) MarkAsRead(ctx context.Context, notificationID, userID string) (*domain.Notification, error) {
	n, err := s.inbox.Get(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if err := s.inbox.MarkAsRead(ctx, notificationID); err != nil {
		return nil, err
	}
	return s.inbox.Get(ctx, notificationID)
}

func (s *service) MarkAllAsRead(ctx context.Context, userID string) (int, error) {
	return s.inbox.MarkAllAsRead(ctx, userID)
}

func (s *service) Delete(ctx context.Context, notificationID, userID string) error {
	n, err := s.inbox.Get(ctx, notificationID)
	if err != nil {
		return err
	}
	if n.UserID != userID {
		return fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	return s.inbox.Delete(ctx, notificationID)
}

func (s *service) DeliveryHistory(ctx context.Context, userID string, limit int32) ([]domain.DeliveryRecord, error) {
	return s.deliveries.ListByUser(ctx, userID, limit)
}
