package domain

import "time"

// Ticket priorities.
const (
	TicketLow    = "LOW"
	TicketMedium = "MEDIUM"
	TicketHigh   = "HIGH"
	TicketUrgent = "URGENT"
)

// Ticket statuses.
const (
	TicketOpen     = "OPEN"
	TicketAnswered = "ANSWERED"
	TicketClosed   = "CLOSED"
)

type SupportTicket struct {
	TicketNumber string    `json:"ticket_number" dynamodbav:"ticket_number"`
	UserID       string    `json:"user_id" dynamodbav:"user_id"`
	Name         string    `json:"name" dynamodbav:"name"`
	Email        string    `json:"email" dynamodbav:"email"`
	Subject      string    `json:"subject" dynamodbav:"subject"`
	Category     string    `json:"category,omitempty" dynamodbav:"category"`
	Priority     string    `json:"priority" dynamodbav:"priority"`
	Status       string    `json:"status" dynamodbav:"status"`
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateTicketRequest struct {
	Subject  string `json:"subject" validate:"required"`
	Category string `json:"category"`
	Priority string `json:"priority" validate:"omitempty,oneof=LOW MEDIUM HIGH URGENT"`
	Message  string `json:"message" validate:"required"`
}

type AgentReplyRequest struct {
	AgentName string `json:"agent_name" validate:"required"`
	Message   string `json:"message" validate:"required"`
}
