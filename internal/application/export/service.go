package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/medical-records-api/internal/domain"
	"github.com/medical-records-api/internal/pkg/id"
)

const downloadURLTTL = 15 * time.Minute

// Archive is the JSON document uploaded to object storage: everything the
// patient's account holds, in one self-describing file.
type Archive struct {
	GeneratedAt  time.Time              `json:"generated_at"`
	User         *domain.User           `json:"user"`
	Appointments []domain.Appointment   `json:"appointments"`
	TestResults  []domain.TestResult    `json:"test_results"`
	Tickets      []domain.SupportTicket `json:"support_tickets"`
}

type Store interface {
	Put(ctx context.Context, e *domain.DataExport) error
	Get(ctx context.Context, exportID string) (*domain.DataExport, error)
	ListByUser(ctx context.Context, userID string) ([]domain.DataExport, error)
}

type UserStore interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type AppointmentStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.Appointment, error)
}

type ResultStore interface {
	ListByUser(ctx context.Context, userID string) ([]domain.TestResult, error)
}

type TicketStore interface {
	ListByEmail(ctx context.Context, email string) ([]domain.SupportTicket, error)
}

// ObjectStore is the slice of the S3 store exports need.
type ObjectStore interface {
	Upload(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	Delete(ctx context.Context, key string) error
}

type Service interface {
	Create(ctx context.Context, userID string) (*domain.DataExport, error)
	List(ctx context.Context, userID string) ([]domain.DataExport, error)
	DownloadURL(ctx context.Context, exportID, userID string) (string, error)
}

type ServiceDeps struct {
	ExportRepo      Store
	UserRepo        UserStore
	AppointmentRepo AppointmentStore
	ResultRepo      ResultStore
	TicketRepo      TicketStore
	Objects         ObjectStore
}

type service struct {
	exports      Store
	users        UserStore
	appointments AppointmentStore
	results      ResultStore
	tickets      TicketStore
	objects      ObjectStore
}

func NewService(deps ServiceDeps) Service {
	return &service{
		exports:      deps.ExportRepo,
		users:        deps.UserRepo,
		appointments: deps.AppointmentRepo,
		results:      deps.ResultRepo,
		tickets:      deps.TicketRepo,
		objects:      deps.Objects,
	}
}

// Create gathers the patient's records, uploads the archive and records the
// export. The archive key embeds the user so per-user cleanup stays simple.
func (s *service) Create(ctx context.Context, userID string) (*domain.DataExport, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	appointments, err := s.appointments.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	results, err := s.results.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	tickets, err := s.tickets.ListByEmail(ctx, u.Email)
	if err != nil {
		return nil, err
	}

	archive := Archive{
		GeneratedAt:  time.Now().UTC(),
		User:         u,
		Appointments: appointments,
		TestResults:  results,
		Tickets:      tickets,
	}
	blob, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal export archive: %w", err)
	}

	exportID := id.New()
	key := fmt.Sprintf("exports/%s/%s.json", userID, exportID)
	if _, err := s.objects.Upload(ctx, key, bytes.NewReader(blob), "application/json"); err != nil {
		rec := &domain.DataExport{
			ExportID:  exportID,
			UserID:    userID,
			ObjectKey: key,
			Status:    domain.ExportFailed,
			CreatedAt: time.Now().UTC(),
		}
		if putErr := s.exports.Put(ctx, rec); putErr != nil {
			return nil, putErr
		}
		return nil, err
	}

	rec := &domain.DataExport{
		ExportID:  exportID,
		UserID:    userID,
		ObjectKey: key,
		Status:    domain.ExportCompleted,
		SizeBytes: int64(len(blob)),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.exports.Put(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *service) List(ctx context.Context, userID string) ([]domain.DataExport, error) {
	return s.exports.ListByUser(ctx, userID)
}

func (s *service) DownloadURL(ctx context.Context, exportID, userID string) (string, error) {
	e, err := s.exports.Get(ctx, exportID)
	if err != nil {
		return "", err
	}
	if e.UserID != userID {
		return "", fmt.Errorf("forbidden: %w", domain.ErrForbidden)
	}
	if e.Status != domain.ExportCompleted {
		return "", fmt.Errorf("export %s not completed: %w", exportID, domain.ErrConflict)
	}
	return s.objects.PresignedURL(ctx, e.ObjectKey, downloadURLTTL)
}
