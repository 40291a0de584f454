package result

import (
	"context"
	"fmt"
	"time"

	"github.com/medical-records-api/internal/application/notification"
	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/pkg/id"
)

type Store interface {
	Put(ctx context.Context, res *domain.TestResult) error
	Get(ctx context.Context, resultID string) (*domain.TestResult, error)
	ListByUser(ctx context.Context, userID string) ([]domain.TestResult, error)
}

type Notifier interface {
	SendResultNotification(ctx context.Context, userID string, result *domain.TestResult) notification.Outcome
}

type RealtimePublisher interface {
	NotifyResultReady(patientID string, result interface{})
}

type Service interface {
	// Add stores the result and triggers the patient notification. The
	// upload succeeds regardless of the notification outcome.
	Add(ctx context.Context, req domain.AddTestResultRequest) (*domain.TestResult, error)
	List(ctx context.Context, userID string) ([]domain.TestResult, error)
	Get(ctx context.Context, resultID, userID string) (*domain.TestResult, error)
}

type service struct {
	results   Store
	notifier  Notifier
	publisher RealtimePublisher
}

func NewService(results Store, notifier Notifier, publisher RealtimePublisher) Service {
	return &service{results: results, notifier: notifier, publisher: publisher}
}

func (s *service) Add(ctx context.Context, req domain.AddTestResultRequest) (*domain.TestResult, error) {
	testDate := time.Now().UTC()
	if req.TestDate != "" {
		parsed, err := time.Parse("2006-01-02", req.TestDate)
		if err != nil {
			return nil, fmt.Errorf("invalid test_date, expected YYYY-MM-DD: %w", domain.ErrBadRequest)
		}
		testDate = parsed
	}

	now := time.Now().UTC()
	res := &domain.TestResult{
		ResultID:  id.New(),
		UserID:    req.UserID,
		TestType:  req.TestType,
		TestName:  req.TestName,
		Result:    req.Result,
		Status:    req.Status,
		LabName:   req.LabName,
		TestDate:  testDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.results.Put(ctx, res); err != nil {
		return nil, err
	}

	s.notifier.SendResultNotification(ctx, req.UserID, res)
	s.publisher.NotifyResultReady(req.UserID, res)

	return res, nil
}

func (s *service) List(ctx context.Context, userID string) ([]domain.TestResult, error) {
	return s.results.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, resultID, userID string) (*domain.TestResult, error) {
	res, err := s.results.Get(ctx, resultID)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	return res, nil
}
