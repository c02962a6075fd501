package booking

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

func (s *Service) Get(ctx context.Context, caller auth.Identity, id string) (_ model.Booking, err error) {
	ctx, done := s.start(ctx, "get", trace.WithAttributes(attribute.String("booking.id", id)))
	defer done(&err)

	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return model.Booking{}, storage.DomainError(err, "booking", id)
	}
	if !caller.CanActOn(b.CustomerID) {
		return model.Booking{}, apperr.Forbidden("not allowed to view this booking")
	}
	return b, nil
}

// List returns bookings matching f. Customers only see their own.
func (s *Service) List(ctx context.Context, caller auth.Identity, f storage.BookingFilter, page model.PageRequest) (_ model.Page[model.Booking], err error) {
	ctx, done := s.start(ctx, "list", trace.WithAttributes(attribute.Bool("caller.admin", caller.IsAdmin())))
	defer done(&err)

	page = page.Normalize()
	if !caller.IsAdmin() {
		f.CustomerID = caller.UserID
	}
	items, total, err := s.store.ListBookings(ctx, f, page)
	if err != nil {
		return model.Page[model.Booking]{}, err
	}
	return model.NewPage(items, page, total), nil
}
