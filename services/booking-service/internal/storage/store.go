// Package storage is the relational store behind the booking core. Every write that
// contends for a slot is a conditional UPDATE that reports whether it matched a row.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

var (
	ErrNotFound = errors.New("storage: not found")
	// ErrConflict is returned when a uniqueness or exclusion constraint rejects a write.
	ErrConflict = errors.New("storage: conflict")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

func IsConflict(err error) bool { return errors.Is(err, ErrConflict) }

// Queries is the set of operations available both on the store and inside a transaction.
type Queries interface {
	UpsertConsultant(ctx context.Context, c model.Consultant) error
	GetConsultant(ctx context.Context, id string) (model.Consultant, error)
	// LockConsultant takes a row lock that serializes availability and slot writes per consultant.
	LockConsultant(ctx context.Context, id string) (model.Consultant, error)

	InsertAvailability(ctx context.Context, a *model.Availability) error
	GetAvailability(ctx context.Context, id string) (model.Availability, error)
	ListAvailabilityForDay(ctx context.Context, consultantID string, key model.DayKey) ([]model.Availability, error)
	ListAvailability(ctx context.Context, f AvailabilityFilter, page model.PageRequest) ([]model.Availability, int, error)
	UpdateAvailability(ctx context.Context, a *model.Availability) error
	SoftDeleteAvailability(ctx context.Context, id string, at time.Time) error

	InsertSlot(ctx context.Context, s *model.TimeSlot) error
	GetSlot(ctx context.Context, id string) (model.TimeSlot, error)
	// ListSlotsOverlapping returns live slots of the consultant intersecting r, skipping excludeID.
	ListSlotsOverlapping(ctx context.Context, consultantID string, r interval.Range, excludeID string) ([]model.TimeSlot, error)
	ListSlots(ctx context.Context, f SlotFilter, page model.PageRequest) ([]model.TimeSlot, int, error)
	// UpdateSlotTimes rewrites times and showroom only while the slot is unoccupied.
	UpdateSlotTimes(ctx context.Context, s *model.TimeSlot) (bool, error)
	// ClaimSlot flips an available, unblocked, future slot to occupied. It reports false
	// when any precondition fails, including losing a race to another claimer.
	ClaimSlot(ctx context.Context, id string, now time.Time) (bool, error)
	// ReleaseSlot frees an occupied slot. A blocked slot stays unavailable.
	ReleaseSlot(ctx context.Context, id string) (bool, error)
	BlockSlot(ctx context.Context, id, reason string) (bool, error)
	UnblockSlot(ctx context.Context, id string) (bool, error)
	SoftDeleteSlot(ctx context.Context, id string, at time.Time) (bool, error)

	InsertBooking(ctx context.Context, b *model.Booking) error
	GetBooking(ctx context.Context, id string) (model.Booking, error)
	GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error)
	ListBookings(ctx context.Context, f BookingFilter, page model.PageRequest) ([]model.Booking, int, error)
	// TransitionBooking moves the booking to `to` only if its status is one of from.
	TransitionBooking(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, reason string) (bool, error)
	// MoveBooking points a live booking at another slot.
	MoveBooking(ctx context.Context, id, slotID, consultantID string) (bool, error)
	MarkConfirmationSent(ctx context.Context, bookingID string, at time.Time) error
	MarkBookingReminderSent(ctx context.Context, bookingID string, at time.Time) error
	InsertCancellation(ctx context.Context, c *model.Cancellation) error
	InsertReschedule(ctx context.Context, r *model.Reschedule) error

	InsertReminder(ctx context.Context, r *model.Reminder) error
	GetReminder(ctx context.Context, id string) (model.Reminder, error)
	ListReminders(ctx context.Context, f ReminderFilter, page model.PageRequest) ([]model.Reminder, int, error)
	// UpdateReminder rewrites schedule and channel unless the reminder was sent.
	UpdateReminder(ctx context.Context, r *model.Reminder) (bool, error)
	SetReminderStatus(ctx context.Context, id string, from []model.ReminderStatus, to model.ReminderStatus) (bool, error)
	DeleteReminder(ctx context.Context, id string) (bool, error)
	// FetchDueReminders lists due reminders, skipping rows another worker holds.
	FetchDueReminders(ctx context.Context, q DueQuery) ([]model.Reminder, error)
	// LockDueReminder locks one reminder if it is still due and no other worker holds it.
	LockDueReminder(ctx context.Context, id string, q DueQuery) (model.Reminder, bool, error)
	MarkReminderSent(ctx context.Context, id string, at time.Time) error
	MarkReminderFailed(ctx context.Context, id string, at time.Time, reason string) error
}

// Store is the store plus its transaction boundary. InTx commits when fn returns nil and
// rolls back otherwise; serialization failures re-run fn a bounded number of times.
type Store interface {
	Queries
	InTx(ctx context.Context, fn func(q Queries) error) error
	Ping(ctx context.Context) error
}

// DueQuery selects PENDING reminders whose time has come and FAILED reminders whose retry
// backoff has elapsed.
type DueQuery struct {
	Now          time.Time
	Limit        int
	MaxRetries   int
	RetryBackoff time.Duration
}

// Due reports whether r is selected by q.
func (q DueQuery) Due(r model.Reminder) bool {
	switch r.Status {
	case model.ReminderPending:
		return !r.ScheduledAt.After(q.Now)
	case model.ReminderFailed:
		if r.RetryCount >= q.MaxRetries || r.FailedAt == nil {
			return false
		}
		return !r.FailedAt.Add(q.RetryBackoff * time.Duration(r.RetryCount)).After(q.Now)
	default:
		return false
	}
}

// DomainError maps the package sentinels to the application taxonomy for the named entity.
// Other errors pass through unchanged.
func DomainError(err error, entity, id string) error {
	switch {
	case err == nil:
		return nil
	case IsNotFound(err):
		return apperr.NotFound(entity, id)
	case IsConflict(err):
		return &apperr.Error{Kind: apperr.KindConflict, Message: entity + " conflicts with existing data", EntityID: id, Err: err}
	default:
		return err
	}
}
