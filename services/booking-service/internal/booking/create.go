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

type CreateInput struct {
	SlotID string `json:"slotId"`
	// CustomerID lets an administrator book on behalf of a customer. Ignored for customers.
	CustomerID      string         `json:"customerId,omitempty"`
	Customer        model.Customer `json:"customer"`
	AppointmentType string         `json:"appointmentType,omitempty"`
}

func (in *CreateInput) normalize() error {
	in.SlotID = strings.TrimSpace(in.SlotID)
	in.Customer.Name = strings.TrimSpace(in.Customer.Name)
	in.Customer.Email = strings.TrimSpace(in.Customer.Email)
	in.Customer.Phone = strings.TrimSpace(in.Customer.Phone)
	in.AppointmentType = strings.TrimSpace(in.AppointmentType)
	switch {
	case in.SlotID == "":
		return apperr.Validation("slotId is required")
	case in.Customer.Name == "":
		return apperr.Validation("customer name is required")
	case in.Customer.Email == "" && in.Customer.Phone == "":
		return apperr.Validation("customer email or phone is required")
	case in.Customer.Email != "" && !strings.Contains(in.Customer.Email, "@"):
		return apperr.Validation("customer email is invalid")
	}
	if in.AppointmentType == "" {
		in.AppointmentType = DefaultAppointmentType
	}
	return nil
}

// Create claims the slot and inserts a PENDING booking in one transaction. Of any number of
// concurrent callers on one slot exactly one succeeds; the rest get a conflict.
func (s *Service) Create(ctx context.Context, caller auth.Identity, in CreateInput) (_ model.Booking, err error) {
	ctx, done := s.start(ctx, "create", trace.WithAttributes(attribute.String("slot.id", in.SlotID)))
	defer done(&err)

	if caller.UserID == "" {
		return model.Booking{}, apperr.Forbidden("authentication required")
	}
	if err := in.normalize(); err != nil {
		return model.Booking{}, err
	}
	customerID := caller.UserID
	if caller.IsAdmin() && strings.TrimSpace(in.CustomerID) != "" {
		customerID = strings.TrimSpace(in.CustomerID)
	}

	var b model.Booking
	var slot model.TimeSlot
	err = s.store.InTx(ctx, func(q storage.Queries) error {
		var err error
		slot, err = q.GetSlot(ctx, in.SlotID)
		if err != nil {
			return storage.DomainError(err, "slot", in.SlotID)
		}
		now := s.now()
		ok, err := q.ClaimSlot(ctx, slot.ID, now)
		if err != nil {
			return err
		}
		if !ok {
			return claimFailure(slot, now)
		}
		b = model.Booking{
			CustomerID:      customerID,
			Customer:        in.Customer,
			AppointmentType: in.AppointmentType,
			ConsultantID:    slot.ConsultantID,
			SlotID:          slot.ID,
			Status:          model.BookingPending,
		}
		if err := q.InsertBooking(ctx, &b); err != nil {
			if storage.IsConflict(err) {
				return apperr.Conflict("slot is already booked", slot.ID)
			}
			return err
		}
		if s.reminders != nil {
			if _, err := s.reminders.ScheduleDefaults(ctx, q, b, slot); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return model.Booking{}, err
	}

	s.logger.Info("booking created", "booking_id", b.ID, "slot_id", b.SlotID, "consultant_id", b.ConsultantID, "customer_id", b.CustomerID)
	s.afterCommit(ctx, notify.NewEvent(notify.BookingCreated, b, slot, s.now()), cache.SlotMutation(slot.ConsultantID, slot.ID))
	s.confirm(ctx, &b, slot)
	return b, nil
}
