// Package booking owns the booking lifecycle: claiming a slot, cancelling and rescheduling.
// Every slot occupancy change is a conditional write inside the same transaction as the
// booking row it belongs to.
package booking

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbook/libs/httpx"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/reminders"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

const DefaultAppointmentType = "CONSULTATION"

type Deps struct {
	Store     storage.Store
	Cache     *cache.Layer
	Reminders *reminders.Service
	Sender    notify.Sender
	Publisher notify.Publisher
	Logger    *slog.Logger
}

type Service struct {
	store     storage.Store
	cache     *cache.Layer
	reminders *reminders.Service
	sender    notify.Sender
	publisher notify.Publisher
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

func NewService(d Deps) *Service {
	if d.Cache == nil {
		d.Cache = cache.NewLayer(nil, 0, d.Logger)
	}
	return &Service{
		store:     d.Store,
		cache:     d.Cache,
		reminders: d.Reminders,
		sender:    d.Sender,
		publisher: d.Publisher,
		logger:    d.Logger,
		tracer:    otel.Tracer("github.com/md-rashed-zaman/slotbook/booking"),
		now:       time.Now,
	}
}

func (s *Service) SetClock(now func() time.Time) { s.now = now }

// from lists the statuses that may move to `to`.
func from(to model.BookingStatus) []model.BookingStatus {
	var out []model.BookingStatus
	for _, st := range []model.BookingStatus{model.BookingPending, model.BookingConfirmed, model.BookingCancelled} {
		if model.CanTransition(st, to) {
			out = append(out, st)
		}
	}
	return out
}

func (s *Service) start(ctx context.Context, op string, attrs ...trace.SpanStartOption) (context.Context, func(*error)) {
	began := time.Now()
	ctx, span := s.tracer.Start(ctx, "booking."+op, attrs...)
	return ctx, func(errp *error) {
		outcome := "ok"
		if err := *errp; err != nil {
			outcome = string(apperr.KindOf(err))
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		metrics.ObserveBooking(op, began, outcome)
		span.End()
	}
}

// afterCommit runs the best-effort side effects of a committed write.
func (s *Service) afterCommit(ctx context.Context, ev notify.Event, scopes []cache.Scope) {
	s.cache.Invalidate(ctx, scopes...)
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Error("booking event publish failed", "err", err, "type", ev.Type, "booking_id", ev.BookingID,
			"request_id", httpx.RequestIDFromContext(ctx))
	}
}

func (s *Service) location(ctx context.Context, consultantID string) *time.Location {
	c, err := s.store.GetConsultant(ctx, consultantID)
	if err != nil {
		return time.UTC
	}
	return c.Location()
}

// confirm sends the booking confirmation. Failures are logged and leave the booking intact.
func (s *Service) confirm(ctx context.Context, b *model.Booking, slot model.TimeSlot) {
	if s.sender == nil {
		return
	}
	msg, ok := notify.ConfirmationMessage(*b, slot, s.location(ctx, b.ConsultantID))
	if !ok {
		return
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("booking confirmation failed", "err", err, "booking_id", b.ID, "channel", msg.Channel,
			"request_id", httpx.RequestIDFromContext(ctx))
		return
	}
	at := s.now().UTC()
	if err := s.store.MarkConfirmationSent(ctx, b.ID, at); err != nil {
		s.logger.Warn("confirmation timestamp not stored", "err", err, "booking_id", b.ID)
		return
	}
	b.ConfirmationSentAt = &at
}

// release frees a slot held by a booking. A slot with no recorded occupant is logged, not fatal,
// so a booking can always leave it.
func (s *Service) release(ctx context.Context, q storage.Queries, slotID, bookingID string) error {
	ok, err := q.ReleaseSlot(ctx, slotID)
	if err != nil {
		return err
	}
	if !ok {
		s.logger.Warn("released slot had no occupant", "slot_id", slotID, "booking_id", bookingID)
	}
	return nil
}

// claimFailure explains why a conditional claim on slot did not apply.
func claimFailure(slot model.TimeSlot, now time.Time) error {
	metrics.SlotClaimConflicts.Inc()
	if !slot.StartAt.After(now) {
		return apperr.Validation("slot has already started")
	}
	if slot.IsBlocked {
		return apperr.Conflict("slot is blocked", slot.ID)
	}
	return apperr.Conflict("slot is already booked", slot.ID)
}
