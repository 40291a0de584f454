package session

import (
	"context"
	"fmt"
	"time"

	"github.com/medical-records-api/internal/application/notification"
	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/pkg/id"
	pkgtoken "github.com/medical-records-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	DeviceInfo string `json:"device_info"`
}

type LoginResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

type Store interface {
	Put(ctx context.Context, s *domain.Session) error
	Get(ctx context.Context, sessionID string) (*domain.Session, error)
	Update(ctx context.Context, sessionID string, updates map[string]interface{}) error
	GetByRefreshToken(ctx context.Context, token string) (*domain.Session, error)
	RotateRefreshToken(ctx context.Context, sessionID, newToken string, newExpiry int64) error
}

type TokenSigner interface {
	Sign(userID, username, role, sessionID string) (string, error)
}

// Notifier is the slice of the notification engine logins need. Alerts are
// fire-and-forget; the Outcome is ignored here.
type Notifier interface {
	SendSecurityAlert(ctx context.Context, email, alertType, detail string) notification.Outcome
}

type Service interface {
	Login(ctx context.Context, req LoginRequest, ipAddress string) (*LoginResult, error)
	Logout(ctx context.Context, sessionID string) error
	GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error)
	Refresh(ctx context.Context, refreshToken string) (bearer, newRefreshToken string, err error)
}

type ServiceDeps struct {
	SessionRepo     Store
	UserRepo        UserStore
	JWTProvider     TokenSigner
	Notifier        Notifier
	RefreshTokenDur time.Duration
}

type service struct {
	sessions   Store
	users      UserStore
	signer     TokenSigner
	notifier   Notifier
	refreshDur time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		sessions:   deps.SessionRepo,
		users:      deps.UserRepo,
		signer:     deps.JWTProvider,
		notifier:   deps.Notifier,
		refreshDur: deps.RefreshTokenDur,
	}
}

func (s *service) Login(ctx context.Context, req LoginRequest, ipAddress string) (*LoginResult, error) {
	u, err := s.users.GetByUsername(ctx, req.Username)
	if err != nil {
		u, err = s.users.GetByEmail(ctx, req.Username)
		if err != nil {
			return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
		}
	}
	if u.Enable != 1 {
		return nil, fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)); err != nil {
		return nil, fmt.Errorf("invalid credentials: %w", domain.ErrUnauthorized)
	}

	refreshToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	sess := &domain.Session{
		SessionID:        id.New(),
		UserID:           u.UserID,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(s.refreshDur).Unix(),
		DeviceInfo:       req.DeviceInfo,
		IPAddress:        ipAddress,
		Enable:           true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.sessions.Put(ctx, sess); err != nil {
		return nil, err
	}

	bearer, err := s.signer.Sign(u.UserID, u.Username, u.Role, sess.SessionID)
	if err != nil {
		return nil, err
	}

	// Login alert rides on the security path; its outcome never blocks the
	// login itself.
	if s.notifier != nil {
		detail := "IP: " + ipAddress
		if req.DeviceInfo != "" {
			detail += ", device: " + req.DeviceInfo
		}
		s.notifier.SendSecurityAlert(ctx, u.Email, notification.AlertLogin, detail)
	}

	return &LoginResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

func (s *service) Logout(ctx context.Context, sessionID string) error {
	return s.sessions.Update(ctx, sessionID, map[string]interface{}{"enable": false})
}

func (s *service) GetCurrent(ctx context.Context, sessionID string) (*domain.Session, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err == nil {
		sess.User = u
	}
	return sess, nil
}

// Refresh rotates the refresh token and issues a fresh bearer.
func (s *service) Refresh(ctx context.Context, refreshToken string) (string, string, error) {
	sess, err := s.sessions.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return "", "", err
	}
	if time.Now().Unix() > sess.RefreshExpiresAt {
		return "", "", fmt.Errorf("refresh token expired: %w", domain.ErrUnauthorized)
	}
	u, err := s.users.Get(ctx, sess.UserID)
	if err != nil {
		return "", "", err
	}
	if u.Enable != 1 {
		return "", "", fmt.Errorf("account disabled: %w", domain.ErrUnauthorized)
	}

	newToken, err := pkgtoken.NewRefreshToken()
	if err != nil {
		return "", "", err
	}
	newExpiry := time.Now().UTC().Add(s.refreshDur).Unix()
	if err := s.sessions.RotateRefreshToken(ctx, sess.SessionID, newToken, newExpiry); err != nil {
		return "", "", err
	}

	bearer, err := s.signer.Sign(u.UserID, u.Username, u.Role, sess.SessionID)
	if err != nil {
		return "", "", err
	}
	return bearer, newToken, nil
}
