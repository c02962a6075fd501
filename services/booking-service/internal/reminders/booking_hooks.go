package reminders

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// The helpers below run inside the booking transaction that changes the booking.

var open = []model.ReminderStatus{model.ReminderPending, model.ReminderFailed}

// ScheduleDefaults creates one reminder per configured offset and reachable channel, skipping
// reminder times that are not in the future.
func (s *Service) ScheduleDefaults(ctx context.Context, q storage.Queries, b model.Booking, slot model.TimeSlot) ([]model.Reminder, error) {
	var channels []model.Channel
	if b.Customer.Email != "" {
		channels = append(channels, model.ChannelEmail)
	}
	if b.Customer.Phone != "" {
		channels = append(channels, model.ChannelSMS)
	}
	now := s.now()
	var out []model.Reminder
	for _, off := range s.cfg.Offsets {
		at := slot.StartAt.Add(-off)
		if !at.After(now) {
			continue
		}
		for _, ch := range channels {
			r := newReminder(ctx, b, ch, at)
			if err := q.InsertReminder(ctx, &r); err != nil {
				return nil, err
			}
			out = append(out, r)
		}
	}
	trace.SpanFromContext(ctx).AddEvent("reminders.scheduled", trace.WithAttributes(attribute.Int("count", len(out))))
	return out, nil
}

func (s *Service) openReminders(ctx context.Context, q storage.Queries, bookingID string) ([]model.Reminder, error) {
	var out []model.Reminder
	for page := 1; ; page++ {
		req := model.PageRequest{Page: page, Limit: model.MaxPageLimit}
		items, total, err := q.ListReminders(ctx, storage.ReminderFilter{BookingID: bookingID}, req)
		if err != nil {
			return nil, err
		}
		for _, r := range items {
			if r.Status == model.ReminderPending || r.Status == model.ReminderFailed {
				out = append(out, r)
			}
		}
		if page*req.Limit >= total {
			return out, nil
		}
	}
}

// CancelForBooking cancels every unsent reminder of a booking.
func (s *Service) CancelForBooking(ctx context.Context, q storage.Queries, bookingID string) (int, error) {
	rs, err := s.openReminders(ctx, q, bookingID)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, r := range rs {
		ok, err := q.SetReminderStatus(ctx, r.ID, open, model.ReminderCancelled)
		if err != nil {
			return n, err
		}
		if ok {
			n++
		}
	}
	trace.SpanFromContext(ctx).AddEvent("reminders.cancelled", trace.WithAttributes(attribute.Int("count", n)))
	return n, nil
}

// ShiftForBooking moves unsent reminders by delta after a reschedule. Reminders that would
// land in the past are cancelled.
func (s *Service) ShiftForBooking(ctx context.Context, q storage.Queries, bookingID string, delta time.Duration) error {
	if delta == 0 {
		return nil
	}
	rs, err := s.openReminders(ctx, q, bookingID)
	if err != nil {
		return err
	}
	now := s.now()
	for _, r := range rs {
		next := r.ScheduledAt.Add(delta)
		if !next.After(now) {
			if _, err := q.SetReminderStatus(ctx, r.ID, open, model.ReminderCancelled); err != nil {
				return err
			}
			continue
		}
		r.ScheduledAt, r.Status, r.RetryCount = next, model.ReminderPending, 0
		if _, err := q.UpdateReminder(ctx, &r); err != nil {
			return err
		}
	}
	return nil
}
