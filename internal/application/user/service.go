package user

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/pkg/id"
	"golang.org/x/crypto/bcrypt"
)

type Store interface {
	Put(ctx context.Context, u *domain.User) error
	Get(ctx context.Context, userID string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	QueryPage(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Update(ctx context.Context, userID string, updates map[string]interface{}) error
	SoftDelete(ctx context.Context, userID string) error
}

type SessionStore interface {
	SoftDeleteByUser(ctx context.Context, userID string) error
}

type Service interface {
	Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, userID string) (*domain.User, error)
	List(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error)
	Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error)
	Delete(ctx context.Context, userID string) error
}

type service struct {
	users    Store
	sessions SessionStore
}

func NewService(users Store, sessions SessionStore) Service {
	return &service{users: users, sessions: sessions}
}

func (s *service) Register(ctx context.Context, req domain.CreateUserRequest) (*domain.User, error) {
	if _, err := s.users.GetByUsername(ctx, req.Username); err == nil {
		return nil, fmt.Errorf("username already taken: %w", domain.ErrConflict)
	}
	if _, err := s.users.GetByEmail(ctx, req.Email); err == nil {
		return nil, fmt.Errorf("email already registered: %w", domain.ErrConflict)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	var birthday time.Time
	if req.Birthday != "" {
		birthday, err = time.Parse("2006-01-02", req.Birthday)
		if err != nil {
			return nil, fmt.Errorf("invalid birthday format, expected YYYY-MM-DD: %w", domain.ErrBadRequest)
		}
	}

	// New accounts start with the default notification preferences
	// already materialized.
	notifBlob, _ := json.Marshal(domain.DefaultNotificationSettings())
	schedBlob, _ := json.Marshal(domain.DefaultScheduleSettings())

	now := time.Now().UTC()
	u := &domain.User{
		UserID:               id.New(),
		Username:             req.Username,
		Email:                req.Email,
		Phone:                req.Phone,
		PasswordHash:         string(hash),
		Role:                 domain.RolePatient,
		FirstName:            req.FirstName,
		LastName:             req.LastName,
		Birthday:             birthday,
		NotificationSettings: string(notifBlob),
		ScheduleSettings:     string(schedBlob),
		Enable:               1,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if err := s.users.Put(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *service) Get(ctx context.Context, userID string) (*domain.User, error) {
	return s.users.Get(ctx, userID)
}

func (s *service) List(ctx context.Context, limit int32, cursor string) ([]domain.User, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	return s.users.QueryPage(ctx, limit, cursor)
}

func (s *service) Update(ctx context.Context, userID string, req domain.UpdateUserRequest) (*domain.User, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Username != nil {
		updates["username"] = *req.Username
	}
	if req.Email != nil {
		updates["email"] = *req.Email
	}
	if req.Phone != nil {
		updates["phone"] = *req.Phone
	}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Birthday != nil {
		birthday, err := time.Parse("2006-01-02", *req.Birthday)
		if err != nil {
			return nil, fmt.Errorf("invalid birthday format, expected YYYY-MM-DD: %w", domain.ErrBadRequest)
		}
		updates["birthday"] = birthday.Format(time.RFC3339)
	}
	if req.Role != nil {
		valid := false
		for _, r := range domain.Roles() {
			if r == *req.Role {
				valid = true
			}
		}
		if !valid {
			return nil, fmt.Errorf("invalid role %q: %w", *req.Role, domain.ErrBadRequest)
		}
		updates["role"] = *req.Role
	}
	if req.Enable != nil {
		updates["enable"] = *req.Enable
	}
	if len(updates) == 0 {
		return nil, fmt.Errorf("no fields to update: %w", domain.ErrBadRequest)
	}

	if err := s.users.Update(ctx, userID, updates); err != nil {
		return nil, err
	}
	return s.users.Get(ctx, userID)
}

// Delete soft-disables the account and revokes its sessions.
func (s *service) Delete(ctx context.Context, userID string) error {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return err
	}
	if err := s.users.SoftDelete(ctx, userID); err != nil {
		return err
	}
	return s.sessions.SoftDeleteByUser(ctx, userID)
}
