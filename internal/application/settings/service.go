package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/medical-records-api/internal/domain"
)

// Settings is the resolved per-user notification configuration returned to
// callers: the full category map plus the quiet-hours schedule.
type Settings struct {
	Notifications map[string]bool         `json:"notifications"`
	Schedule      domain.ScheduleSettings `json:"schedule"`
}

// UpdateRequest applies a partial update: categories present in
// Notifications are overwritten, the rest keep their current values.
// A nil Schedule leaves the stored schedule untouched.
type UpdateRequest struct {
	Notifications map[string]bool          `json:"notifications"`
	Schedule      *domain.ScheduleSettings `json:"schedule"`
}

// Summary condenses the settings for a dashboard card.
type Summary struct {
	Enabled           int  `json:"enabled"`
	Disabled          int  `json:"disabled"`
	QuietHoursEnabled bool `json:"quiet_hours_enabled"`
	PushRegistered    bool `json:"push_registered"`
}

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type SecurityStore interface {
	Get(ctx context.Context, email string) (*domain.SecuritySettings, error)
	Put(ctx context.Context, s *domain.SecuritySettings) error
}

type Service interface {
	Get(ctx context.Context, userID string) (*Settings, error)
	Update(ctx context.Context, userID string, req UpdateRequest) (*Settings, error)
	Reset(ctx context.Context, userID string) (*Settings, error)
	Summary(ctx context.Context, userID string) (*Summary, error)
	IsEnabled(ctx context.Context, userID, category string) (bool, error)
	RegisterDevice(ctx context.Context, userID string, req domain.RegisterDeviceRequest) error
	UnregisterDevice(ctx context.Context, userID string) error
	GetSecurity(ctx context.Context, email string) (*domain.SecuritySettings, error)
	UpdateSecurity(ctx context.Context, email string, req domain.UpdateSecuritySettingsRequest) (*domain.SecuritySettings, error)
}

type service struct {
	users    UserStore
	security SecurityStore
}

func NewService(users UserStore, security SecurityStore) Service {
	return &service{users: users, security: security}
}

// Get resolves the user's settings, creating the stored blobs from defaults
// the first time they are fetched.
func (s *service) Get(ctx context.Context, userID string) (*Settings, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	resolved := &Settings{
		Notifications: domain.ParseNotificationSettings(u.NotificationSettings),
		Schedule:      domain.ParseScheduleSettings(u.ScheduleSettings),
	}
	if u.NotificationSettings == "" || u.ScheduleSettings == "" {
		if err := s.persist(ctx, userID, resolved); err != nil {
			// Lazy materialization is best-effort; the resolved view is
			// still correct.
			slog.Warn("could not persist default settings", "user_id", userID, "err", err)
		}
	}
	return resolved, nil
}

func (s *service) Update(ctx context.Context, userID string, req UpdateRequest) (*Settings, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	resolved := &Settings{
		Notifications: domain.ParseNotificationSettings(u.NotificationSettings),
		Schedule:      domain.ParseScheduleSettings(u.ScheduleSettings),
	}
	for category, enabled := range req.Notifications {
		if !knownCategory(category) {
			return nil, fmt.Errorf("unknown category %q: %w", category, domain.ErrBadRequest)
		}
		resolved.Notifications[category] = enabled
	}
	if req.Schedule != nil {
		resolved.Schedule = *req.Schedule
	}
	if err := s.persist(ctx, userID, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (s *service) Reset(ctx context.Context, userID string) (*Settings, error) {
	resolved := &Settings{
		Notifications: domain.DefaultNotificationSettings(),
		Schedule:      domain.DefaultScheduleSettings(),
	}
	if err := s.persist(ctx, userID, resolved); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (s *service) Summary(ctx context.Context, userID string) (*Summary, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	notifications := domain.ParseNotificationSettings(u.NotificationSettings)
	schedule := domain.ParseScheduleSettings(u.ScheduleSettings)
	sum := &Summary{
		QuietHoursEnabled: schedule.QuietHoursEnabled,
		PushRegistered:    u.DeviceToken != nil && *u.DeviceToken != "",
	}
	for _, enabled := range notifications {
		if enabled {
			sum.Enabled++
		} else {
			sum.Disabled++
		}
	}
	return sum, nil
}

func (s *service) IsEnabled(ctx context.Context, userID, category string) (bool, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return domain.ParseNotificationSettings(u.NotificationSettings)[category], nil
}

func (s *service) RegisterDevice(ctx context.Context, userID string, req domain.RegisterDeviceRequest) error {
	// One token per user: registering overwrites any previous device.
	return s.users.Update(ctx, userID, map[string]interface{}{
		"device_token":    req.DeviceToken,
		"device_platform": req.Platform,
	})
}

func (s *service) UnregisterDevice(ctx context.Context, userID string) error {
	return s.users.Update(ctx, userID, map[string]interface{}{
		"device_token":    "",
		"device_platform": "",
	})
}

func (s *service) GetSecurity(ctx context.Context, email string) (*domain.SecuritySettings, error) {
	return s.security.Get(ctx, email)
}

func (s *service) UpdateSecurity(ctx context.Context, email string, req domain.UpdateSecuritySettingsRequest) (*domain.SecuritySettings, error) {
	current, err := s.security.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if req.LoginNotifications != nil {
		current.LoginNotifications = *req.LoginNotifications
	}
	if req.SuspiciousActivityAlerts != nil {
		current.SuspiciousActivityAlerts = *req.SuspiciousActivityAlerts
	}
	if err := s.security.Put(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

func (s *service) persist(ctx context.Context, userID string, settings *Settings) error {
	notifBlob, err := json.Marshal(settings.Notifications)
	if err != nil {
		return err
	}
	schedBlob, err := json.Marshal(settings.Schedule)
	if err != nil {
		return err
	}
	return s.users.Update(ctx, userID, map[string]interface{}{
		"notification_settings": string(notifBlob),
		"schedule_settings":     string(schedBlob),
	})
}

func knownCategory(category string) bool {
	_, ok := domain.DefaultNotificationSettings()[category]
	return ok
}
