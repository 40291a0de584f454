package appointment

import (
	"context"
	"testing"
	"time"

	"github.com/medical-records-api/internal/application/notification"
	"github.com/medical-records-api/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockUpcomingStore struct{ mock.Mock }

func (m *mockUpcomingStore) ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Appointment, error) {
	args := m.Called(ctx, from, to)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

type mockReminderNotifier struct{ mock.Mock }

func (m *mockReminderNotifier) SendAppointmentReminder(ctx context.Context, userID, doctorName, reminderType string, when time.Time) notification.Outcome {
	args := m.Called(ctx, userID, doctorName, reminderType, when)
	return args.Get(0).(notification.Outcome)
}

func TestSweep_FiresOneHourReminderInsideTick(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appt := domain.Appointment{
		AppointmentID: "a1", UserID: "u1", DoctorName: "Dr. Lee",
		Status: domain.AppointmentConfirmed, ScheduledAt: now.Add(time.Hour),
	}

	store := &mockUpcomingStore{}
	store.On("ListUpcoming", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Appointment{appt}, nil)
	notifier := &mockReminderNotifier{}
	notifier.On("SendAppointmentReminder", mock.Anything, "u1", "Dr. Lee", "1h", appt.ScheduledAt).
		Return(notification.Outcome{Status: notification.OutcomeSent})

	w := NewReminderWorker(store, notifier, time.Minute)
	w.sweep(context.Background(), now)

	notifier.AssertExpectations(t)
}

func TestSweep_DoesNotFireOutsideWindow(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appt := domain.Appointment{
		AppointmentID: "a1", UserID: "u1", DoctorName: "Dr. Lee",
		Status: domain.AppointmentScheduled, ScheduledAt: now.Add(30 * time.Minute),
	}

	store := &mockUpcomingStore{}
	store.On("ListUpcoming", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Appointment{appt}, nil)
	notifier := &mockReminderNotifier{}

	w := NewReminderWorker(store, notifier, time.Minute)
	w.sweep(context.Background(), now)

	notifier.AssertNotCalled(t, "SendAppointmentReminder", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSweep_DeduplicatesAcrossTicks(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	appt := domain.Appointment{
		AppointmentID: "a1", UserID: "u1", DoctorName: "Dr. Lee",
		Status: domain.AppointmentConfirmed, ScheduledAt: now.Add(time.Hour),
	}

	store := &mockUpcomingStore{}
	store.On("ListUpcoming", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Appointment{appt}, nil)
	notifier := &mockReminderNotifier{}
	notifier.On("SendAppointmentReminder", mock.Anything, "u1", "Dr. Lee", "1h", appt.ScheduledAt).
		Return(notification.Outcome{Status: notification.OutcomeSent}).Once()

	w := NewReminderWorker(store, notifier, time.Minute)
	w.sweep(context.Background(), now)
	w.sweep(context.Background(), now) // same tick window again

	notifier.AssertExpectations(t)
	assert.Len(t, w.sent, 1)
}
