package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/medical-records-api/internal/application/notification"
	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/pkg/id"
)

type Store interface {
	Put(ctx context.Context, a *domain.Appointment) error
	Get(ctx context.Context, appointmentID string) (*domain.Appointment, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID, status string) error
}

type Notifier interface {
	Notify(ctx context.Context, userID, title, message, category string) notification.Outcome
}

// RealtimePublisher pushes appointment events to connected sessions.
type RealtimePublisher interface {
	NotifyNewAppointment(patientID string, appointment interface{})
	NotifyAppointmentStatusChanged(patientID, status, appointmentID string)
}

type Service interface {
	Schedule(ctx context.Context, userID string, req domain.ScheduleAppointmentRequest) (*domain.Appointment, error)
	UpdateStatus(ctx context.Context, appointmentID, userID, status string) (*domain.Appointment, error)
	List(ctx context.Context, userID string) ([]domain.Appointment, error)
	Get(ctx context.Context, appointmentID, userID string) (*domain.Appointment, error)
}

type service struct {
	appointments Store
	notifier     Notifier
	publisher    RealtimePublisher
}

func NewService(appointments Store, notifier Notifier, publisher RealtimePublisher) Service {
	return &service{appointments: appointments, notifier: notifier, publisher: publisher}
}

func (s *service) Schedule(ctx context.Context, userID string, req domain.ScheduleAppointmentRequest) (*domain.Appointment, error) {
	scheduledAt, err := time.Parse(time.RFC3339, req.ScheduledAt)
	if err != nil {
		return nil, fmt.Errorf("invalid scheduled_at, expected RFC 3339: %w", domain.ErrBadRequest)
	}
	if scheduledAt.Before(time.Now()) {
		return nil, fmt.Errorf("scheduled_at is in the past: %w", domain.ErrBadRequest)
	}

	now := time.Now().UTC()
	a := &domain.Appointment{
		AppointmentID: id.New(),
		UserID:        userID,
		DoctorName:    req.DoctorName,
		Department:    req.Department,
		Status:        domain.AppointmentScheduled,
		ScheduledAt:   scheduledAt,
		Notes:         req.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.appointments.Put(ctx, a); err != nil {
		return nil, err
	}

	// Delivery outcomes never affect the scheduling result.
	s.notifier.Notify(ctx, userID,
		"Appointment Scheduled",
		fmt.Sprintf("Your appointment with %s on %s is confirmed", a.DoctorName, scheduledAt.Format("Jan 2 at 15:04")),
		domain.CategoryAppointmentReminders)
	s.publisher.NotifyNewAppointment(userID, a)

	return a, nil
}

func (s *service) UpdateStatus(ctx context.Context, appointmentID, userID, status string) (*domain.Appointment, error) {
	a, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if err := s.appointments.UpdateStatus(ctx, appointmentID, status); err != nil {
		return nil, err
	}
	a.Status = status

	s.notifier.Notify(ctx, userID,
		"Appointment "+statusLabel(status),
		fmt.Sprintf("Your appointment with %s is now %s", a.DoctorName, statusLabel(status)),
		domain.CategoryAppointmentReminders)
	s.publisher.NotifyAppointmentStatusChanged(userID, status, appointmentID)

	return a, nil
}

func (s *service) List(ctx context.Context, userID string) ([]domain.Appointment, error) {
	return s.appointments.ListByUser(ctx, userID)
}

func (s *service) Get(ctx context.Context, appointmentID, userID string) (*domain.Appointment, error) {
	a, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if a.UserID != userID {
		return nil, fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	return a, nil
}

func statusLabel(status string) string {
	switch status {
	case domain.AppointmentScheduled:
		return "scheduled"
	case domain.AppointmentConfirmed:
		return "confirmed"
	case domain.AppointmentCancelled:
		return "cancelled"
	case domain.AppointmentCompleted:
		return "completed"
	default:
		return status
	}
}
