package reminders

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	otelx "github.com/md-rashed-zaman/slotbook/libs/otel"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// Result counts the outcome of one Process pass.
type Result struct {
	Sent      int `json:"sent"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	Errors    int `json:"errors"`
}

// Process dispatches one batch of due reminders: PENDING ones whose time has come and FAILED
// ones whose retry backoff has elapsed. Each reminder commits in its own transaction, so a
// store error on one leaves the others' outcomes in place.
func (s *Service) Process(ctx context.Context) (res Result, err error) {
	ctx, span := s.tracer.Start(ctx, "reminders.process")
	defer func() {
		span.SetAttributes(attribute.Int("reminders.sent", res.Sent), attribute.Int("reminders.errors", res.Errors))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	now := s.now().UTC()
	dq := storage.DueQuery{
		Now:          now,
		Limit:        s.cfg.BatchSize,
		MaxRetries:   s.cfg.MaxRetries,
		RetryBackoff: s.cfg.RetryBackoff,
	}
	due, err := s.store.FetchDueReminders(ctx, dq)
	if err != nil {
		return Result{}, err
	}
	for _, r := range due {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		var outcome string
		err := s.store.InTx(ctx, func(q storage.Queries) error {
			outcome = ""
			cur, ok, err := q.LockDueReminder(ctx, r.ID, dq)
			if err != nil || !ok {
				return err
			}
			outcome, err = s.dispatch(ctx, q, cur, now)
			return err
		})
		if err != nil {
			outcome = "error"
			s.logger.Error("reminder dispatch failed", "reminder_id", r.ID, "booking_id", r.BookingID, "err", err)
		}
		switch outcome {
		case "":
			continue
		case "sent":
			res.Sent++
		case "failed":
			res.Failed++
		case "cancelled":
			res.Cancelled++
		case "error":
			res.Errors++
		}
		metrics.RemindersProcessed.WithLabelValues(string(r.Channel), outcome).Inc()
	}
	if res != (Result{}) {
		s.logger.Info("reminders processed", "sent", res.Sent, "failed", res.Failed, "cancelled", res.Cancelled, "errors", res.Errors)
	}
	return res, nil
}

// dispatch sends one reminder. Only store errors are returned; delivery errors are recorded.
func (s *Service) dispatch(ctx context.Context, q storage.Queries, r model.Reminder, now time.Time) (string, error) {
	jobCtx := otelx.ContextWithTraceContext(ctx, r.Traceparent, r.Tracestate)
	fail := func(reason string) (string, error) {
		s.logger.Warn("reminder delivery failed", "reminder_id", r.ID, "booking_id", r.BookingID, "channel", r.Channel, "retry_count", r.RetryCount+1, "err", reason)
		return "failed", q.MarkReminderFailed(ctx, r.ID, now, reason)
	}

	b, err := q.GetBooking(ctx, r.BookingID)
	if storage.IsNotFound(err) || (err == nil && b.Status.Terminal()) {
		_, err := q.SetReminderStatus(ctx, r.ID, open, model.ReminderCancelled)
		return "cancelled", err
	}
	if err != nil {
		return "", err
	}
	slot, err := q.GetSlot(ctx, b.SlotID)
	if err != nil {
		return fail("slot unavailable: " + err.Error())
	}
	loc := time.UTC
	if c, err := q.GetConsultant(ctx, b.ConsultantID); err == nil {
		loc = c.Location()
	}
	msg := notify.ReminderMessage(r, b, slot, loc)
	if err := s.sender.Send(jobCtx, msg); err != nil {
		return fail(err.Error())
	}
	if err := q.MarkReminderSent(ctx, r.ID, now); err != nil {
		return "", err
	}
	if err := q.MarkBookingReminderSent(ctx, b.ID, now); err != nil {
		return "", err
	}
	return "sent", nil
}
