package memstore

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// Statement-level wrappers: each call takes the store lock for its own duration.

func (ms *Store) UpsertConsultant(ctx context.Context, c model.Consultant) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.UpsertConsultant(ctx, c) })
	return err
}

func (ms *Store) GetConsultant(ctx context.Context, id string) (model.Consultant, error) {
	return do(ms, func(v *view) (model.Consultant, error) { return v.GetConsultant(ctx, id) })
}

func (ms *Store) LockConsultant(ctx context.Context, id string) (model.Consultant, error) {
	return do(ms, func(v *view) (model.Consultant, error) { return v.LockConsultant(ctx, id) })
}

func (ms *Store) InsertAvailability(ctx context.Context, a *model.Availability) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.InsertAvailability(ctx, a) })
	return err
}

func (ms *Store) GetAvailability(ctx context.Context, id string) (model.Availability, error) {
	return do(ms, func(v *view) (model.Availability, error) { return v.GetAvailability(ctx, id) })
}

func (ms *Store) ListAvailabilityForDay(ctx context.Context, consultantID string, key model.DayKey) ([]model.Availability, error) {
	return do(ms, func(v *view) ([]model.Availability, error) { return v.ListAvailabilityForDay(ctx, consultantID, key) })
}

func (ms *Store) ListAvailability(ctx context.Context, f storage.AvailabilityFilter, page model.PageRequest) ([]model.Availability, int, error) {
	type result struct {
		items []model.Availability
		total int
	}
	r, err := do(ms, func(v *view) (result, error) {
		items, total, err := v.ListAvailability(ctx, f, page)
		return result{items, total}, err
	})
	return r.items, r.total, err
}

func (ms *Store) UpdateAvailability(ctx context.Context, a *model.Availability) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.UpdateAvailability(ctx, a) })
	return err
}

func (ms *Store) SoftDeleteAvailability(ctx context.Context, id string, at time.Time) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.SoftDeleteAvailability(ctx, id, at) })
	return err
}

func (ms *Store) InsertSlot(ctx context.Context, s *model.TimeSlot) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.InsertSlot(ctx, s) })
	return err
}

func (ms *Store) GetSlot(ctx context.Context, id string) (model.TimeSlot, error) {
	return do(ms, func(v *view) (model.TimeSlot, error) { return v.GetSlot(ctx, id) })
}

func (ms *Store) ListSlotsOverlapping(ctx context.Context, consultantID string, r interval.Range, excludeID string) ([]model.TimeSlot, error) {
	return do(ms, func(v *view) ([]model.TimeSlot, error) {
		return v.ListSlotsOverlapping(ctx, consultantID, r, excludeID)
	})
}

func (ms *Store) ListSlots(ctx context.Context, f storage.SlotFilter, page model.PageRequest) ([]model.TimeSlot, int, error) {
	type result struct {
		items []model.TimeSlot
		total int
	}
	r, err := do(ms, func(v *view) (result, error) {
		items, total, err := v.ListSlots(ctx, f, page)
		return result{items, total}, err
	})
	return r.items, r.total, err
}

func (ms *Store) UpdateSlotTimes(ctx context.Context, s *model.TimeSlot) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.UpdateSlotTimes(ctx, s) })
}

func (ms *Store) ClaimSlot(ctx context.Context, id string, now time.Time) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.ClaimSlot(ctx, id, now) })
}

func (ms *Store) ReleaseSlot(ctx context.Context, id string) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.ReleaseSlot(ctx, id) })
}

func (ms *Store) BlockSlot(ctx context.Context, id string, reason string) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.BlockSlot(ctx, id, reason) })
}

func (ms *Store) UnblockSlot(ctx context.Context, id string) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.UnblockSlot(ctx, id) })
}

func (ms *Store) SoftDeleteSlot(ctx context.Context, id string, at time.Time) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.SoftDeleteSlot(ctx, id, at) })
}

func (ms *Store) InsertBooking(ctx context.Context, b *model.Booking) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.InsertBooking(ctx, b) })
	return err
}

func (ms *Store) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return do(ms, func(v *view) (model.Booking, error) { return v.GetBooking(ctx, id) })
}

func (ms *Store) GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error) {
	return do(ms, func(v *view) (model.Booking, error) { return v.GetBookingForUpdate(ctx, id) })
}

func (ms *Store) ListBookings(ctx context.Context, f storage.BookingFilter, page model.PageRequest) ([]model.Booking, int, error) {
	type result struct {
		items []model.Booking
		total int
	}
	r, err := do(ms, func(v *view) (result, error) {
		items, total, err := v.ListBookings(ctx, f, page)
		return result{items, total}, err
	})
	return r.items, r.total, err
}

func (ms *Store) TransitionBooking(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, reason string) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.TransitionBooking(ctx, id, from, to, reason) })
}

func (ms *Store) MoveBooking(ctx context.Context, id string, slotID string, consultantID string) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.MoveBooking(ctx, id, slotID, consultantID) })
}

func (ms *Store) MarkConfirmationSent(ctx context.Context, bookingID string, at time.Time) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.MarkConfirmationSent(ctx, bookingID, at) })
	return err
}

func (ms *Store) MarkBookingReminderSent(ctx context.Context, bookingID string, at time.Time) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.MarkBookingReminderSent(ctx, bookingID, at) })
	return err
}

func (ms *Store) InsertCancellation(ctx context.Context, c *model.Cancellation) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.InsertCancellation(ctx, c) })
	return err
}

func (ms *Store) InsertReschedule(ctx context.Context, r *model.Reschedule) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.InsertReschedule(ctx, r) })
	return err
}

func (ms *Store) InsertReminder(ctx context.Context, m *model.Reminder) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.InsertReminder(ctx, m) })
	return err
}

func (ms *Store) GetReminder(ctx context.Context, id string) (model.Reminder, error) {
	return do(ms, func(v *view) (model.Reminder, error) { return v.GetReminder(ctx, id) })
}

func (ms *Store) ListReminders(ctx context.Context, f storage.ReminderFilter, page model.PageRequest) ([]model.Reminder, int, error) {
	type result struct {
		items []model.Reminder
		total int
	}
	r, err := do(ms, func(v *view) (result, error) {
		items, total, err := v.ListReminders(ctx, f, page)
		return result{items, total}, err
	})
	return r.items, r.total, err
}

func (ms *Store) UpdateReminder(ctx context.Context, m *model.Reminder) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.UpdateReminder(ctx, m) })
}

func (ms *Store) SetReminderStatus(ctx context.Context, id string, from []model.ReminderStatus, to model.ReminderStatus) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.SetReminderStatus(ctx, id, from, to) })
}

func (ms *Store) DeleteReminder(ctx context.Context, id string) (bool, error) {
	return do(ms, func(v *view) (bool, error) { return v.DeleteReminder(ctx, id) })
}

func (ms *Store) FetchDueReminders(ctx context.Context, q storage.DueQuery) ([]model.Reminder, error) {
	return do(ms, func(v *view) ([]model.Reminder, error) { return v.FetchDueReminders(ctx, q) })
}

func (ms *Store) LockDueReminder(ctx context.Context, id string, q storage.DueQuery) (model.Reminder, bool, error) {
	type locked struct {
		r  model.Reminder
		ok bool
	}
	got, err := do(ms, func(v *view) (locked, error) {
		r, ok, err := v.LockDueReminder(ctx, id, q)
		return locked{r, ok}, err
	})
	return got.r, got.ok, err
}

func (ms *Store) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.MarkReminderSent(ctx, id, at) })
	return err
}

func (ms *Store) MarkReminderFailed(ctx context.Context, id string, at time.Time, reason string) error {
	_, err := do(ms, func(v *view) (struct{}, error) { return struct{}{}, v.MarkReminderFailed(ctx, id, at, reason) })
	return err
}
