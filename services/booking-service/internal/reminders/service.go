// Package reminders schedules customer reminders for bookings and dispatches them when due.
package reminders

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

type Config struct {
	// Offsets are the default lead times before the appointment, e.g. 24h and 1h.
	Offsets      []time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	BatchSize    int
}

type Service struct {
	store  storage.Store
	sender notify.Sender
	logger *slog.Logger
	cfg    Config
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store storage.Store, sender notify.Sender, logger *slog.Logger, cfg Config) *Service {
	if cfg.Offsets == nil {
		cfg.Offsets = []time.Duration{24 * time.Hour, time.Hour}
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Service{
		store:  store,
		sender: sender,
		logger: logger,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/md-rashed-zaman/slotbook/reminders"),
		now:    time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

type CreateInput struct {
	BookingID   string        `json:"bookingId"`
	Channel     model.Channel `json:"channel"`
	ScheduledAt time.Time     `json:"scheduledAt"`
}

type Patch struct {
	Channel     *model.Channel `json:"channel,omitempty"`
	ScheduledAt *time.Time     `json:"scheduledAt,omitempty"`
}

func errSent(id string) error { return apperr.Conflict("reminder already sent", id) }

func (s *Service) checkFuture(at time.Time) error {
	if !at.After(s.now()) {
		return apperr.Validation("scheduledAt must be in the future")
	}
	return nil
}

// owned loads the booking behind a reminder and checks the caller may act on it.
func owned(ctx context.Context, q storage.Queries, caller auth.Identity, bookingID string) (model.Booking, error) {
	b, err := q.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, storage.DomainError(err, "booking", bookingID)
	}
	if !caller.CanActOn(b.CustomerID) {
		return model.Booking{}, apperr.Forbidden("not allowed to manage reminders of this booking")
	}
	return b, nil
}

func (s *Service) Create(ctx context.Context, caller auth.Identity, in CreateInput) (model.Reminder, error) {
	in.BookingID = strings.TrimSpace(in.BookingID)
	if in.BookingID == "" {
		return model.Reminder{}, apperr.Validation("bookingId is required")
	}
	if !in.Channel.Valid() {
		return model.Reminder{}, apperr.Validation("channel must be EMAIL or SMS")
	}
	if err := s.checkFuture(in.ScheduledAt); err != nil {
		return model.Reminder{}, err
	}
	var r model.Reminder
	err := s.store.InTx(ctx, func(q storage.Queries) error {
		b, err := owned(ctx, q, caller, in.BookingID)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			return apperr.Conflict("booking is cancelled", b.ID)
		}
		r = newReminder(ctx, b, in.Channel, in.ScheduledAt)
		return q.InsertReminder(ctx, &r)
	})
	if err != nil {
		return model.Reminder{}, err
	}
	return r, nil
}

func newReminder(ctx context.Context, b model.Booking, ch model.Channel, at time.Time) model.Reminder {
	tp, ts := otelx.TraceContextStrings(ctx)
	return model.Reminder{
		BookingID:   b.ID,
		CustomerID:  b.CustomerID,
		Channel:     ch,
		Status:      model.ReminderPending,
		ScheduledAt: at.UTC(),
		Traceparent: tp,
		Tracestate:  ts,
	}
}

// Update reschedules or re-routes a reminder that has not been sent. The reminder is re-armed
// as PENDING with a fresh retry budget.
func (s *Service) Update(ctx context.Context, caller auth.Identity, id string, p Patch) (model.Reminder, error) {
	if p.Channel != nil && !p.Channel.Valid() {
		return model.Reminder{}, apperr.Validation("channel must be EMAIL or SMS")
	}
	if p.ScheduledAt != nil {
		if err := s.checkFuture(*p.ScheduledAt); err != nil {
			return model.Reminder{}, err
		}
	}
	var out model.Reminder
	err := s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetReminder(ctx, id)
		if err != nil {
			return storage.DomainError(err, "reminder", id)
		}
		b, err := owned(ctx, q, caller, cur.BookingID)
		if err != nil {
			return err
		}
		if cur.Status == model.ReminderSent {
			return errSent(id)
		}
		if b.Status.Terminal() {
			return apperr.Conflict("booking is cancelled", b.ID)
		}
		next := cur
		if p.Channel != nil {
			next.Channel = *p.Channel
		}
		if p.ScheduledAt != nil {
			next.ScheduledAt = p.ScheduledAt.UTC()
		}
		if err := s.checkFuture(next.ScheduledAt); err != nil {
			return err
		}
		next.Status, next.RetryCount = model.ReminderPending, 0
		ok, err := q.UpdateReminder(ctx, &next)
		if err != nil {
			return err
		}
		if !ok {
			return errSent(id)
		}
		out = next
		return nil
	})
	return out, err
}

func (s *Service) Cancel(ctx context.Context, caller auth.Identity, id string) (model.Reminder, error) {
	var out model.Reminder
	err := s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetReminder(ctx, id)
		if err != nil {
			return storage.DomainError(err, "reminder", id)
		}
		if _, err := owned(ctx, q, caller, cur.BookingID); err != nil {
			return err
		}
		ok, err := q.SetReminderStatus(ctx, id, []model.ReminderStatus{model.ReminderPending, model.ReminderFailed}, model.ReminderCancelled)
		if err != nil {
			return err
		}
		if !ok {
			if cur.Status == model.ReminderSent {
				return errSent(id)
			}
			return apperr.Conflict("reminder already cancelled", id)
		}
		out, err = q.GetReminder(ctx, id)
		return err
	})
	return out, err
}

func (s *Service) Delete(ctx context.Context, caller auth.Identity, id string) error {
	return s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetReminder(ctx, id)
		if err != nil {
			return storage.DomainError(err, "reminder", id)
		}
		if _, err := owned(ctx, q, caller, cur.BookingID); err != nil {
			return err
		}
		ok, err := q.DeleteReminder(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return errSent(id)
		}
		return nil
	})
}

func (s *Service) Get(ctx context.Context, caller auth.Identity, id string) (model.Reminder, error) {
	r, err := s.store.GetReminder(ctx, id)
	if err != nil {
		return model.Reminder{}, storage.DomainError(err, "reminder", id)
	}
	if !caller.CanActOn(r.CustomerID) {
		return model.Reminder{}, apperr.NotFound("reminder", id)
	}
	return r, nil
}

// List returns reminders matching f. Customers only see their own.
func (s *Service) List(ctx context.Context, caller auth.Identity, f storage.ReminderFilter, page model.PageRequest) (model.Page[model.Reminder], error) {
	page = page.Normalize()
	if !caller.IsAdmin() {
		f.CustomerID = caller.UserID
	}
	items, total, err := s.store.ListReminders(ctx, f, page)
	if err != nil {
		return model.Page[model.Reminder]{}, err
	}
	return model.NewPage(items, page, total), nil
}
