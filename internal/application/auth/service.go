package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/medical-records-api/internal/application/notification"
	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/infrastructure/smtp"
	"github.com/medical-records-api/internal/pkg/id"
	pkgtoken "github.com/medical-records-api/internal/pkg/token"
	"golang.org/x/crypto/bcrypt"
)

const (
	otpTTL      = 15 * time.Minute
	otpCooldown = 60 * time.Second
)

type PasswordRecoveryRequest struct {
	Email       *string `json:"email"`
	PhoneNumber *string `json:"phone_number"`
}

type ValidateOTPRequest struct {
	OTP   string  `json:"otp" validate:"required"`
	Email *string `json:"email"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=72"`
}

type LoginResult struct {
	Bearer       string
	RefreshToken string
	Session      *domain.Session
}

type VerificationStore interface {
	Put(ctx context.Context, v *domain.UserVerification) error
	Get(ctx context.Context, userID, verType string) (*domain.UserVerification, error)
	Delete(ctx context.Context, userID, verType string) error
}

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
}

type SessionStore interface {
	Put(ctx context.Context, s *domain.Session) error
	SoftDeleteByUser(ctx context.Context, userID string) error
}

type TokenSigner interface {
	Sign(userID, username, role, sessionID string) (string, error)
}

type Notifier interface {
	SendSecurityAlert(ctx context.Context, email, alertType, detail string) notification.Outcome
}

type Service interface {
	RequestPasswordRecovery(ctx context.Context, req PasswordRecoveryRequest) error
	ValidateOTP(ctx context.Context, req ValidateOTPRequest) (*LoginResult, error)
	ChangePassword(ctx context.Context, userID, newPassword string) error
}

type ServiceDeps struct {
	VerificationRepo VerificationStore
	UserRepo         UserStore
	SessionRepo      SessionStore
	Mailer           smtp.Mailer
	JWTProvider      TokenSigner
	Notifier         Notifier
	RefreshTokenDur  time.Duration
}

type service struct {
	verifications VerificationStore
	users         UserStore
	sessions      SessionStore
	mailer        smtp.Mailer
	signer        TokenSigner
	notifier      Notifier
	refreshDur    time.Duration
}

func NewService(deps ServiceDeps) Service {
	return &service{
		verifications: deps.VerificationRepo,
		users:         deps.UserRepo,
		sessions:      deps.SessionRepo,
		mailer:        deps.Mailer,
		signer:        deps.JWTProvider,
		notifier:      deps.Notifier,
		refreshDur:    deps.RefreshTokenDur,
	}
}

// RequestPasswordRecovery issues a one-time code over email or SMS. A fresh
// code within the cooldown window is rejected to limit abuse.
func (s *service) RequestPasswordRecovery(ctx context.Context, req PasswordRecoveryRequest) error {
	if req.Email == nil {
		if req.PhoneNumber != nil {
			return fmt.Errorf("phone recovery not supported; provide email: %w", domain.ErrBadRequest)
		}
		return fmt.Errorf("email or phone_number required: %w", domain.ErrBadRequest)
	}
	u, err := s.users.GetByEmail(ctx, *req.Email)
	if err != nil {
		return fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}

	if existing, err := s.verifications.Get(ctx, u.UserID, "otp"); err == nil {
		issuedAt := time.Unix(existing.ExpiresAt, 0).Add(-otpTTL)
		if time.Since(issuedAt) < otpCooldown {
			return fmt.Errorf("an OTP was issued recently, try again shortly: %w", domain.ErrConflict)
		}
	}

	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return err
	}
	otp := fmt.Sprintf("%06d", n.Int64())

	v := &domain.UserVerification{
		UserID:    u.UserID,
		Type:      "otp",
		Code:      otp,
		ExpiresAt: time.Now().Add(otpTTL).Unix(),
	}
	if err := s.verifications.Put(ctx, v); err != nil {
		return err
	}

	return s.mailer.SendEmail(u.Email, "Password Recovery Code", "Your verification code is: "+otp+"\nIt expires in 15 minutes.")
}

// ValidateOTP checks the code and, on success, opens a session so the user
// can change their password without re-authenticating.
func (s *service) ValidateOTP(ctx context.Context, req ValidateOTPRequest) (*LoginResult, error) {
	if req.Email == nil {
		return nil, fmt.Errorf("email required to validate OTP: %w", domain.ErrBadRequest)
	}
	u, err := s.users.GetByEmail(ctx, *req.Email)
	if err != nil {
		return nil, fmt.Errorf("user not found: %w", domain.ErrNotFound)
	}
	v, err := s.verifications.Get(ctx, u.UserID, "otp")
	if err != nil {
		return nil, fmt.Errorf("no pending verification: %w", domain.ErrNotFound)
	}
	if time.Now().Unix() > v.ExpiresAt {
		return nil, fmt.Errorf("code expired: %w", domain.ErrUnauthorized)
	}
	if v.Code != req.OTP {
		return nil, fmt.Errorf("invalid code: %w", domain.ErrUnauthorized)
	}
	// Single use.
	if err := s.verifications.Delete(ctx, u.UserID, "otp"); err != nil {
		return nil, err
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
	return &LoginResult{Bearer: bearer, RefreshToken: refreshToken, Session: sess}, nil
}

// ChangePassword rehashes and stores the password, revokes all other
// sessions, and always sends the change confirmation regardless of the
// user's notification preferences.
func (s *service) ChangePassword(ctx context.Context, userID, newPassword string) error {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.Update(ctx, userID, map[string]interface{}{"password_hash": string(hash)}); err != nil {
		return err
	}
	if err := s.sessions.SoftDeleteByUser(ctx, userID); err != nil {
		return err
	}
	if s.notifier != nil {
		s.notifier.SendSecurityAlert(ctx, u.Email, notification.AlertPasswordChange, "")
	}
	return nil
}
