package support

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/medical-records-api/internal/application/notification"
	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/infrastructure/smtp"
)

type Store interface {
	Put(ctx context.Context, t *domain.SupportTicket) error
	Get(ctx context.Context, ticketNumber string) (*domain.SupportTicket, error)
	ListByEmail(ctx context.Context, email string) ([]domain.SupportTicket, error)
	UpdateStatus(ctx context.Context, ticketNumber, status string) error
}

type Notifier interface {
	NotifyTicketCreated(ctx context.Context, ticket *domain.SupportTicket) notification.Outcome
	NotifyAgentReply(ctx context.Context, ticket *domain.SupportTicket, agentName, message string) notification.Outcome
}

type Service interface {
	Create(ctx context.Context, userID, name, email string, req domain.CreateTicketRequest) (*domain.SupportTicket, error)
	AgentReply(ctx context.Context, ticketNumber string, req domain.AgentReplyRequest) (*domain.SupportTicket, error)
	ListForUser(ctx context.Context, email string) ([]domain.SupportTicket, error)
}

type service struct {
	tickets      Store
	notifier     Notifier
	mailer       smtp.Mailer
	supportEmail string
}

func NewService(tickets Store, notifier Notifier, mailer smtp.Mailer, supportEmail string) Service {
	return &service{tickets: tickets, notifier: notifier, mailer: mailer, supportEmail: supportEmail}
}

// Create opens a ticket, tells the support team, and acknowledges the
// reporter. Notification failures never fail the ticket.
func (s *service) Create(ctx context.Context, userID, name, email string, req domain.CreateTicketRequest) (*domain.SupportTicket, error) {
	priority := req.Priority
	if priority == "" {
		priority = domain.TicketMedium
	}
	number, err := newTicketNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	t := &domain.SupportTicket{
		TicketNumber: number,
		UserID:       userID,
		Name:         name,
		Email:        email,
		Subject:      req.Subject,
		Category:     req.Category,
		Priority:     priority,
		Status:       domain.TicketOpen,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.tickets.Put(ctx, t); err != nil {
		return nil, err
	}

	// Team alert goes over plain email; reporter acknowledgement runs
	// through the notification engine.
	teamBody := fmt.Sprintf("New ticket %s (%s)\nFrom: %s <%s>\nSubject: %s\n\n%s",
		t.TicketNumber, priority, name, email, req.Subject, req.Message)
	if err := s.mailer.SendEmail(s.supportEmail, "New Support Ticket "+t.TicketNumber, teamBody); err != nil {
		slog.Warn("could not email support team", "ticket", t.TicketNumber, "err", err)
	}
	s.notifier.NotifyTicketCreated(ctx, t)

	return t, nil
}

func (s *service) AgentReply(ctx context.Context, ticketNumber string, req domain.AgentReplyRequest) (*domain.SupportTicket, error) {
	t, err := s.tickets.Get(ctx, ticketNumber)
	if err != nil {
		return nil, err
	}
	if t.Status == domain.TicketClosed {
		return nil, fmt.Errorf("ticket %s is closed: %w", ticketNumber, domain.ErrConflict)
	}
	if err := s.tickets.UpdateStatus(ctx, ticketNumber, domain.TicketAnswered); err != nil {
		return nil, err
	}
	t.Status = domain.TicketAnswered

	s.notifier.NotifyAgentReply(ctx, t, req.AgentName, req.Message)
	return t, nil
}

func (s *service) ListForUser(ctx context.Context, email string) ([]domain.SupportTicket, error) {
	return s.tickets.ListByEmail(ctx, email)
}

// newTicketNumber builds a short human-readable reference like TKT-4F2A9C.
func newTicketNumber() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(0xFFFFFF))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("TKT-%06X", n.Int64()), nil
}
