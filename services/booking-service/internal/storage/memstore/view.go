package memstore

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// view runs queries against state with the store lock already held.
type view struct {
	st    *state
	store *Store
}

var _ storage.Queries = (*view)(nil)

func (v *view) stamp() time.Time { return v.store.now().UTC() }

// keys mirrors the UUID key columns: a malformed id can never name a row.
func keys(ids ...string) error {
	for _, id := range ids {
		if !storage.ValidID(id) {
			return storage.ErrNotFound
		}
	}
	return nil
}

func (v *view) UpsertConsultant(_ context.Context, c model.Consultant) error {
	if !storage.ValidID(c.ID) {
		return fmt.Errorf("%w: consultant %q", storage.ErrInvalidID, c.ID)
	}
	v.st.consultants[c.ID] = consultantRow{c}
	return nil
}

func (v *view) GetConsultant(_ context.Context, id string) (model.Consultant, error) {
	row, ok := v.st.consultants[id]
	if !ok {
		return model.Consultant{}, storage.ErrNotFound
	}
	return row.Consultant, nil
}

func (v *view) LockConsultant(ctx context.Context, id string) (model.Consultant, error) {
	return v.GetConsultant(ctx, id)
}

func (v *view) InsertAvailability(_ context.Context, a *model.Availability) error {
	if err := keys(a.ConsultantID); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := v.stamp()
	a.CreatedAt, a.UpdatedAt = now, now
	v.st.availability[a.ID] = availabilityRow{Availability: *a, seq: v.st.tick()}
	return nil
}

func (v *view) GetAvailability(_ context.Context, id string) (model.Availability, error) {
	row, ok := v.st.availability[id]
	if !ok || row.Lifecycle.IsDeleted() {
		return model.Availability{}, storage.ErrNotFound
	}
	return row.Availability, nil
}

func availabilityOrder(a, b availabilityRow) int {
	if c := strings.Compare(a.SpecificDate, b.SpecificDate); c != 0 {
		return c
	}
	return strings.Compare(a.StartTime, b.StartTime)
}

func availabilitySeq(r availabilityRow) int64 { return r.seq }

func (v *view) ListAvailabilityForDay(_ context.Context, consultantID string, key model.DayKey) ([]model.Availability, error) {
	rows := sorted(v.st.availability, func(r availabilityRow) bool {
		return !r.Lifecycle.IsDeleted() && r.ConsultantID == consultantID && r.Key() == key
	}, availabilityOrder, availabilitySeq)
	out := make([]model.Availability, len(rows))
	for i, r := range rows {
		out[i] = r.Availability
	}
	return out, nil
}

func (v *view) ListAvailability(_ context.Context, f storage.AvailabilityFilter, page model.PageRequest) ([]model.Availability, int, error) {
	rows := sorted(v.st.availability, func(r availabilityRow) bool { return f.Match(r.Availability) }, availabilityOrder, availabilitySeq)
	out := make([]model.Availability, len(rows))
	for i, r := range rows {
		out[i] = r.Availability
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (v *view) UpdateAvailability(_ context.Context, a *model.Availability) error {
	row, ok := v.st.availability[a.ID]
	if !ok || row.Lifecycle.IsDeleted() {
		return storage.ErrNotFound
	}
	a.CreatedAt = row.CreatedAt
	a.UpdatedAt = v.stamp()
	a.Lifecycle = row.Lifecycle
	row.Availability = *a
	v.st.availability[a.ID] = row
	return nil
}

func (v *view) SoftDeleteAvailability(_ context.Context, id string, at time.Time) error {
	row, ok := v.st.availability[id]
	if !ok || row.Lifecycle.IsDeleted() {
		return storage.ErrNotFound
	}
	row.Lifecycle = model.Deleted(at)
	row.UpdatedAt = at
	v.st.availability[id] = row
	return nil
}

func slotRange(s model.TimeSlot) interval.Range {
	return interval.Range{Start: s.StartAt, End: s.EndAt}
}

// overlapping mirrors the time_slots exclusion constraint.
func (v *view) overlapping(consultantID string, r interval.Range, excludeID string) []slotRow {
	return sorted(v.st.slots, func(row slotRow) bool {
		return !row.Lifecycle.IsDeleted() && row.ConsultantID == consultantID && row.ID != excludeID &&
			slotRange(row.TimeSlot).Overlaps(r)
	}, slotOrder, slotSeq)
}

func slotOrder(a, b slotRow) int { return a.StartAt.Compare(b.StartAt) }

func slotSeq(r slotRow) int64 { return r.seq }

func (v *view) InsertSlot(_ context.Context, s *model.TimeSlot) error {
	if err := keys(s.ConsultantID); err != nil {
		return err
	}
	if s.AvailabilityID != "" && !storage.ValidID(s.AvailabilityID) {
		return storage.ErrNotFound
	}
	if clash := v.overlapping(s.ConsultantID, slotRange(*s), ""); len(clash) > 0 {
		return fmt.Errorf("%w: time_slots_no_overlap", storage.ErrConflict)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.MaxBookings <= 0 {
		s.MaxBookings = 1
	}
	s.DurationMinutes = int(s.EndAt.Sub(s.StartAt) / time.Minute)
	now := v.stamp()
	s.CreatedAt, s.UpdatedAt = now, now
	v.st.slots[s.ID] = slotRow{TimeSlot: *s, seq: v.st.tick()}
	return nil
}

func (v *view) liveSlot(id string) (slotRow, bool) {
	row, ok := v.st.slots[id]
	if !ok || row.Lifecycle.IsDeleted() {
		return slotRow{}, false
	}
	return row, true
}

func (v *view) GetSlot(_ context.Context, id string) (model.TimeSlot, error) {
	row, ok := v.liveSlot(id)
	if !ok {
		return model.TimeSlot{}, storage.ErrNotFound
	}
	return row.TimeSlot, nil
}

func (v *view) ListSlotsOverlapping(_ context.Context, consultantID string, r interval.Range, excludeID string) ([]model.TimeSlot, error) {
	rows := v.overlapping(consultantID, r, excludeID)
	out := make([]model.TimeSlot, len(rows))
	for i, row := range rows {
		out[i] = row.TimeSlot
	}
	return out, nil
}

func (v *view) ListSlots(_ context.Context, f storage.SlotFilter, page model.PageRequest) ([]model.TimeSlot, int, error) {
	rows := sorted(v.st.slots, func(r slotRow) bool { return f.Match(r.TimeSlot) }, slotOrder, slotSeq)
	out := make([]model.TimeSlot, len(rows))
	for i, r := range rows {
		out[i] = r.TimeSlot
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (v *view) UpdateSlotTimes(_ context.Context, s *model.TimeSlot) (bool, error) {
	row, ok := v.liveSlot(s.ID)
	if !ok || row.CurrentBookings != 0 {
		return false, nil
	}
	if clash := v.overlapping(row.ConsultantID, slotRange(*s), s.ID); len(clash) > 0 {
		return false, fmt.Errorf("%w: time_slots_no_overlap", storage.ErrConflict)
	}
	row.StartAt, row.EndAt, row.ShowroomID = s.StartAt, s.EndAt, s.ShowroomID
	row.DurationMinutes = int(s.EndAt.Sub(s.StartAt) / time.Minute)
	row.UpdatedAt = v.stamp()
	v.st.slots[s.ID] = row
	*s = row.TimeSlot
	return true, nil
}

func (v *view) ClaimSlot(_ context.Context, id string, now time.Time) (bool, error) {
	if hook := v.store.ClaimHook; hook != nil {
		if err := hook(id); err != nil {
			return false, err
		}
	}
	row, ok := v.liveSlot(id)
	if !ok || !row.IsAvailable || row.IsBlocked || row.CurrentBookings >= row.MaxBookings || !row.StartAt.After(now) {
		return false, nil
	}
	row.IsAvailable = false
	row.CurrentBookings++
	row.UpdatedAt = v.stamp()
	v.st.slots[id] = row
	return true, nil
}

func (v *view) ReleaseSlot(_ context.Context, id string) (bool, error) {
	row, ok := v.st.slots[id]
	if !ok || row.CurrentBookings <= 0 {
		return false, nil
	}
	row.CurrentBookings--
	row.IsAvailable = !row.IsBlocked
	row.UpdatedAt = v.stamp()
	v.st.slots[id] = row
	return true, nil
}

func (v *view) BlockSlot(_ context.Context, id, reason string) (bool, error) {
	row, ok := v.liveSlot(id)
	if !ok || row.CurrentBookings != 0 {
		return false, nil
	}
	row.IsBlocked, row.IsAvailable, row.BlockReason = true, false, reason
	row.UpdatedAt = v.stamp()
	v.st.slots[id] = row
	return true, nil
}

func (v *view) UnblockSlot(_ context.Context, id string) (bool, error) {
	row, ok := v.liveSlot(id)
	if !ok || !row.IsBlocked {
		return false, nil
	}
	row.IsBlocked, row.BlockReason = false, ""
	row.IsAvailable = row.CurrentBookings == 0
	row.UpdatedAt = v.stamp()
	v.st.slots[id] = row
	return true, nil
}

func (v *view) SoftDeleteSlot(_ context.Context, id string, at time.Time) (bool, error) {
	row, ok := v.liveSlot(id)
	if !ok || row.CurrentBookings != 0 {
		return false, nil
	}
	row.Lifecycle = model.Deleted(at)
	row.IsAvailable = false
	row.UpdatedAt = at
	v.st.slots[id] = row
	return true, nil
}

func (v *view) InsertBooking(_ context.Context, b *model.Booking) error {
	if err := keys(b.ConsultantID, b.SlotID); err != nil {
		return err
	}
	for _, row := range v.st.bookings {
		if row.SlotID == b.SlotID && row.Status != model.BookingCancelled && !row.Lifecycle.IsDeleted() {
			return fmt.Errorf("%w: bookings_one_live_per_slot", storage.ErrConflict)
		}
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := v.stamp()
	b.CreatedAt, b.UpdatedAt = now, now
	v.st.bookings[b.ID] = bookingRow{Booking: *b, seq: v.st.tick()}
	return nil
}

func (v *view) liveBooking(id string) (bookingRow, bool) {
	row, ok := v.st.bookings[id]
	if !ok || row.Lifecycle.IsDeleted() {
		return bookingRow{}, false
	}
	return row, true
}

func (v *view) GetBooking(_ context.Context, id string) (model.Booking, error) {
	row, ok := v.liveBooking(id)
	if !ok {
		return model.Booking{}, storage.ErrNotFound
	}
	return row.Booking, nil
}

func (v *view) GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error) {
	return v.GetBooking(ctx, id)
}

func (v *view) ListBookings(_ context.Context, f storage.BookingFilter, page model.PageRequest) ([]model.Booking, int, error) {
	rows := sorted(v.st.bookings, func(r bookingRow) bool { return f.Match(r.Booking) },
		func(a, b bookingRow) int { return b.CreatedAt.Compare(a.CreatedAt) },
		func(r bookingRow) int64 { return -r.seq })
	out := make([]model.Booking, len(rows))
	for i, r := range rows {
		out[i] = r.Booking
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (v *view) TransitionBooking(_ context.Context, id string, from []model.BookingStatus, to model.BookingStatus, reason string) (bool, error) {
	row, ok := v.liveBooking(id)
	if !ok || !slices.Contains(from, row.Status) {
		return false, nil
	}
	row.Status = to
	if to == model.BookingCancelled {
		row.CancellationReason = reason
	}
	row.UpdatedAt = v.stamp()
	v.st.bookings[id] = row
	return true, nil
}

func (v *view) MoveBooking(_ context.Context, id, slotID, consultantID string) (bool, error) {
	row, ok := v.liveBooking(id)
	if !ok || row.Status == model.BookingCancelled {
		return false, nil
	}
	for otherID, other := range v.st.bookings {
		if otherID != id && other.SlotID == slotID && other.Status != model.BookingCancelled && !other.Lifecycle.IsDeleted() {
			return false, fmt.Errorf("%w: bookings_one_live_per_slot", storage.ErrConflict)
		}
	}
	row.SlotID, row.ConsultantID = slotID, consultantID
	row.UpdatedAt = v.stamp()
	v.st.bookings[id] = row
	return true, nil
}

func (v *view) MarkConfirmationSent(_ context.Context, bookingID string, at time.Time) error {
	if row, ok := v.st.bookings[bookingID]; ok {
		row.ConfirmationSentAt = &at
		v.st.bookings[bookingID] = row
	}
	return nil
}

func (v *view) MarkBookingReminderSent(_ context.Context, bookingID string, at time.Time) error {
	if row, ok := v.st.bookings[bookingID]; ok {
		row.ReminderSentAt = &at
		v.st.bookings[bookingID] = row
	}
	return nil
}

func (v *view) InsertCancellation(_ context.Context, c *model.Cancellation) error {
	for _, row := range v.st.cancellations {
		if row.BookingID == c.BookingID {
			return fmt.Errorf("%w: cancellations_booking_id_key", storage.ErrConflict)
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	v.st.cancellations[c.ID] = cancellationRow{*c}
	return nil
}

func (v *view) InsertReschedule(_ context.Context, r *model.Reschedule) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = v.stamp()
	v.st.reschedules[r.ID] = rescheduleRow{*r}
	return nil
}

func (v *view) InsertReminder(_ context.Context, m *model.Reminder) error {
	if err := keys(m.BookingID); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = model.ReminderPending
	}
	now := v.stamp()
	m.CreatedAt, m.UpdatedAt = now, now
	v.st.reminders[m.ID] = reminderRow{Reminder: *m, seq: v.st.tick()}
	return nil
}

func (v *view) GetReminder(_ context.Context, id string) (model.Reminder, error) {
	row, ok := v.st.reminders[id]
	if !ok {
		return model.Reminder{}, storage.ErrNotFound
	}
	return row.Reminder, nil
}

func reminderOrder(a, b reminderRow) int { return a.ScheduledAt.Compare(b.ScheduledAt) }

func reminderSeq(r reminderRow) int64 { return r.seq }

func (v *view) ListReminders(_ context.Context, f storage.ReminderFilter, page model.PageRequest) ([]model.Reminder, int, error) {
	rows := sorted(v.st.reminders, func(r reminderRow) bool { return f.Match(r.Reminder) }, reminderOrder, reminderSeq)
	out := make([]model.Reminder, len(rows))
	for i, r := range rows {
		out[i] = r.Reminder
	}
	items, total := paginate(out, page)
	return items, total, nil
}

func (v *view) UpdateReminder(_ context.Context, m *model.Reminder) (bool, error) {
	row, ok := v.st.reminders[m.ID]
	if !ok || row.Status == model.ReminderSent {
		return false, nil
	}
	row.ScheduledAt, row.Channel, row.Status, row.RetryCount = m.ScheduledAt, m.Channel, m.Status, m.RetryCount
	row.FailedAt, row.FailureReason = nil, ""
	row.UpdatedAt = v.stamp()
	v.st.reminders[m.ID] = row
	*m = row.Reminder
	return true, nil
}

func (v *view) SetReminderStatus(_ context.Context, id string, from []model.ReminderStatus, to model.ReminderStatus) (bool, error) {
	row, ok := v.st.reminders[id]
	if !ok || !slices.Contains(from, row.Status) {
		return false, nil
	}
	row.Status = to
	row.UpdatedAt = v.stamp()
	v.st.reminders[id] = row
	return true, nil
}

func (v *view) DeleteReminder(_ context.Context, id string) (bool, error) {
	row, ok := v.st.reminders[id]
	if !ok || row.Status == model.ReminderSent {
		return false, nil
	}
	delete(v.st.reminders, id)
	return true, nil
}

func (v *view) FetchDueReminders(_ context.Context, q storage.DueQuery) ([]model.Reminder, error) {
	rows := sorted(v.st.reminders, func(r reminderRow) bool { return q.Due(r.Reminder) }, reminderOrder, reminderSeq)
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	out := make([]model.Reminder, len(rows))
	for i, r := range rows {
		out[i] = r.Reminder
	}
	return out, nil
}

func (v *view) LockDueReminder(_ context.Context, id string, q storage.DueQuery) (model.Reminder, bool, error) {
	row, ok := v.st.reminders[id]
	if !ok || !q.Due(row.Reminder) {
		return model.Reminder{}, false, nil
	}
	return row.Reminder, true, nil
}

func (v *view) MarkReminderSent(_ context.Context, id string, at time.Time) error {
	if row, ok := v.st.reminders[id]; ok {
		row.Status, row.SentAt, row.FailureReason, row.UpdatedAt = model.ReminderSent, &at, "", at
		v.st.reminders[id] = row
	}
	return nil
}

func (v *view) MarkReminderFailed(_ context.Context, id string, at time.Time, reason string) error {
	if row, ok := v.st.reminders[id]; ok {
		row.Status, row.FailedAt, row.FailureReason, row.UpdatedAt = model.ReminderFailed, &at, reason, at
		row.RetryCount++
		v.st.reminders[id] = row
	}
	return nil
}
