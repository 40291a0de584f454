package domain

import "time"

// Appointment statuses.
const (
	AppointmentScheduled = "SCHEDULED"
	AppointmentConfirmed = "CONFIRMED"
	AppointmentCancelled = "CANCELLED"
	AppointmentCompleted = "COMPLETED"
)

type Appointment struct {
	AppointmentID string    `json:"id" dynamodbav:"appointment_id"`
	UserID        string    `json:"user_id" dynamodbav:"user_id"`
	DoctorName    string    `json:"doctor_name" dynamodbav:"doctor_name"`
	Department    string    `json:"department" dynamodbav:"department"`
	Status        string    `json:"status" dynamodbav:"status"`
	ScheduledAt   time.Time `json:"scheduled_at" dynamodbav:"scheduled_at"`
	Notes         string    `json:"notes,omitempty" dynamodbav:"notes"`
	CreatedAt     time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt     time.Time `json:"updated" dynamodbav:"updated_at"`
}

type ScheduleAppointmentRequest struct {
	DoctorName  string `json:"doctor_name" validate:"required"`
	Department  string `json:"department" validate:"required"`
	ScheduledAt string `json:"scheduled_at" validate:"required"` // RFC 3339
	Notes       string `json:"notes"`
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=SCHEDULED CONFIRMED CANCELLED COMPLETED"`
}
