package booking

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/notify"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// lockOwned locks the booking row and checks the caller may act on it.
func lockOwned(ctx context.Context, q storage.Queries, caller auth.Identity, id string) (model.Booking, error) {
	b, err := q.GetBookingForUpdate(ctx, id)
	if err != nil {
		return model.Booking{}, storage.DomainError(err, "booking", id)
	}
	if !caller.CanActOn(b.CustomerID) {
		return model.Booking{}, apperr.Forbidden("not allowed to change this booking")
	}
	return b, nil
}

func errCancelled(id string) error { return apperr.Conflict("booking already cancelled", id) }

// Cancel records the cancellation, marks the booking CANCELLED and frees its slot in one
// transaction. A second cancel of the same booking is a conflict.
func (s *Service) Cancel(ctx context.Context, caller auth.Identity, id, reason string) (_ model.Booking, err error) {
	ctx, done := s.start(ctx, "cancel", trace.WithAttributes(attribute.String("booking.id", id)))
	defer done(&err)

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.Booking{}, apperr.Validation("cancellation reason is required")
	}

	var b model.Booking
	var slot model.TimeSlot
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := lockOwned(ctx, q, caller, id)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return errCancelled(id)
		}
		c := model.Cancellation{BookingID: id, Reason: reason, CancelledAt: s.now().UTC(), CancelledByUserID: caller.UserID}
		if err := q.InsertCancellation(ctx, &c); err != nil {
			if storage.IsConflict(err) {
				return errCancelled(id)
			}
			return err
		}
		ok, err := q.TransitionBooking(ctx, id, from(model.BookingCancelled), model.BookingCancelled, reason)
		if err != nil {
			return err
		}
		if !ok {
			return errCancelled(id)
		}
		if err := s.release(ctx, q, cur.SlotID, id); err != nil {
			return err
		}
		if s.reminders != nil {
			if _, err := s.reminders.CancelForBooking(ctx, q, id); err != nil {
				return err
			}
		}
		if b, err = q.GetBooking(ctx, id); err != nil {
			return err
		}
		slot, err = q.GetSlot(ctx, cur.SlotID)
		if storage.IsNotFound(err) {
			err = nil
		}
		return err
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.logger.Info("booking cancelled", "booking_id", id, "slot_id", b.SlotID, "by", caller.UserID)
	ev := notify.NewEvent(notify.BookingCancelled, b, slot, s.now())
	ev.Reason = reason
	s.afterCommit(ctx, ev, cache.SlotMutation(b.ConsultantID, b.SlotID))
	return b, nil
}

// Reschedule moves the booking to newSlotID. The new slot is claimed with the same conditional
// write as Create before the old slot is released, so a lost race rolls everything back and the
// booking keeps its old slot.
func (s *Service) Reschedule(ctx context.Context, caller auth.Identity, id, newSlotID, reason string) (_ model.Booking, err error) {
	ctx, done := s.start(ctx, "reschedule", trace.WithAttributes(
		attribute.String("booking.id", id), attribute.String("slot.id", newSlotID)))
	defer done(&err)

	newSlotID = strings.TrimSpace(newSlotID)
	reason = strings.TrimSpace(reason)
	switch {
	case newSlotID == "":
		return model.Booking{}, apperr.Validation("newSlotId is required")
	case reason == "":
		return model.Booking{}, apperr.Validation("reschedule reason is required")
	}

	var b model.Booking
	var oldSlot, newSlot model.TimeSlot
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := lockOwned(ctx, q, caller, id)
		if err != nil {
			return err
		}
		if cur.Status.Terminal() {
			return errCancelled(id)
		}
		if newSlotID == cur.SlotID {
			return apperr.Validation("new slot is the booking's current slot")
		}
		if oldSlot, err = q.GetSlot(ctx, cur.SlotID); err != nil {
			return storage.DomainError(err, "slot", cur.SlotID)
		}
		if newSlot, err = q.GetSlot(ctx, newSlotID); err != nil {
			return storage.DomainError(err, "slot", newSlotID)
		}

		now := s.now()
		ok, err := q.ClaimSlot(ctx, newSlotID, now)
		if err != nil {
			return err
		}
		if !ok {
			return claimFailure(newSlot, now)
		}
		if err := s.release(ctx, q, cur.SlotID, id); err != nil {
			return err
		}
		moved, err := q.MoveBooking(ctx, id, newSlotID, newSlot.ConsultantID)
		if err != nil {
			if storage.IsConflict(err) {
				return apperr.Conflict("slot is already booked", newSlotID)
			}
			return err
		}
		if !moved {
			return errCancelled(id)
		}
		r := model.Reschedule{
			BookingID:     id,
			OldTimeSlotID: cur.SlotID,
			NewTimeSlotID: newSlotID,
			Reason:        reason,
			Status:        model.RescheduleCompleted,
			RequestedBy:   caller.UserID,
		}
		if err := q.InsertReschedule(ctx, &r); err != nil {
			return err
		}
		if s.reminders != nil {
			if err := s.reminders.ShiftForBooking(ctx, q, id, newSlot.StartAt.Sub(oldSlot.StartAt)); err != nil {
				return err
			}
		}
		b, err = q.GetBooking(ctx, id)
		return err
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.logger.Info("booking rescheduled", "booking_id", id, "old_slot_id", oldSlot.ID, "new_slot_id", newSlot.ID, "by", caller.UserID)
	ev := notify.NewEvent(notify.BookingRescheduled, b, newSlot, s.now())
	ev.OldSlotID, ev.Reason = oldSlot.ID, reason
	scopes := append(cache.SlotMutation(oldSlot.ConsultantID, oldSlot.ID), cache.SlotMutation(newSlot.ConsultantID, newSlot.ID)...)
	s.afterCommit(ctx, ev, scopes)
	return b, nil
}

// Confirm moves a PENDING booking to CONFIRMED. Administrators only.
func (s *Service) Confirm(ctx context.Context, caller auth.Identity, id string) (_ model.Booking, err error) {
	ctx, done := s.start(ctx, "confirm", trace.WithAttributes(attribute.String("booking.id", id)))
	defer done(&err)

	if !caller.IsAdmin() {
		return model.Booking{}, apperr.Forbidden("administrator role required")
	}
	var b model.Booking
	var slot model.TimeSlot
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		cur, err := q.GetBookingForUpdate(ctx, id)
		if err != nil {
			return storage.DomainError(err, "booking", id)
		}
		if slot, err = q.GetSlot(ctx, cur.SlotID); err != nil {
			return storage.DomainError(err, "slot", cur.SlotID)
		}
		ok, err := q.TransitionBooking(ctx, id, from(model.BookingConfirmed), model.BookingConfirmed, "")
		if err != nil {
			return err
		}
		if !ok {
			if cur.Status.Terminal() {
				return errCancelled(id)
			}
			return apperr.Conflict("booking already confirmed", id)
		}
		b, err = q.GetBooking(ctx, id)
		return err
	})
	if err != nil {
		return model.Booking{}, err
	}
	s.logger.Info("booking confirmed", "booking_id", id, "slot_id", slot.ID, "by", caller.UserID)
	s.afterCommit(ctx, notify.NewEvent(notify.BookingConfirmed, b, slot, s.now()), nil)
	return b, nil
}
