package appointment

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/medical-records-api/internal/application/notification"
	"github.com/medical-records-api/internal/domain"
)

// UpcomingStore lists active appointments inside a time window.
type UpcomingStore interface {
	ListUpcoming(ctx context.Context, from, to time.Time) ([]domain.Appointment, error)
}

// ReminderNotifier delivers the templated reminder through the engine.
type ReminderNotifier interface {
	SendAppointmentReminder(ctx context.Context, userID, doctorName, reminderType string, when time.Time) notification.Outcome
}

// reminder offsets before the scheduled time, paired with the template key.
var reminderWindows = []struct {
	offset time.Duration
	kind   string
}{
	{24 * time.Hour, "24h"},
	{time.Hour, "1h"},
	{15 * time.Minute, "15m"},
}

// ReminderWorker periodically sweeps upcoming appointments and fires the
// 24h/1h/15m reminders. Sent reminders are deduplicated per process; after
// a restart a reminder may repeat once, which is acceptable for this
// notification class.
type ReminderWorker struct {
	appointments UpcomingStore
	notifier     ReminderNotifier
	interval     time.Duration

	mu   sync.Mutex
	sent map[string]time.Time // appointmentID + window kind -> when fired
}

func NewReminderWorker(appointments UpcomingStore, notifier ReminderNotifier, interval time.Duration) *ReminderWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ReminderWorker{
		appointments: appointments,
		notifier:     notifier,
		interval:     interval,
		sent:         make(map[string]time.Time),
	}
}

// Run blocks until ctx is cancelled.
func (w *ReminderWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.sweep(ctx, time.Now().UTC())
		}
	}
}

func (w *ReminderWorker) sweep(ctx context.Context, now time.Time) {
	// One lookahead query covers every window; the largest offset bounds it.
	upcoming, err := w.appointments.ListUpcoming(ctx, now, now.Add(24*time.Hour+w.interval))
	if err != nil {
		slog.Warn("reminder sweep failed", "error", err)
		return
	}
	for i := range upcoming {
		a := &upcoming[i]
		for _, win := range reminderWindows {
			due := a.ScheduledAt.Add(-win.offset)
			// Fire when the due moment falls inside the current tick.
			if due.After(now) || !due.After(now.Add(-w.interval)) {
				continue
			}
			key := a.AppointmentID + ":" + win.kind
			w.mu.Lock()
			_, already := w.sent[key]
			if !already {
				w.sent[key] = now
			}
			w.mu.Unlock()
			if already {
				continue
			}
			w.notifier.SendAppointmentReminder(ctx, a.UserID, a.DoctorName, win.kind, a.ScheduledAt)
		}
	}
	w.prune(now)
}

// prune drops dedupe entries older than the largest reminder window.
func (w *ReminderWorker) prune(now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for key, firedAt := range w.sent {
		if now.Sub(firedAt) > 48*time.Hour {
			delete(w.sent, key)
		}
	}
}
