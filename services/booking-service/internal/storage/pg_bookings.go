package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const bookingCols = `id, customer_id, customer_name, customer_email, customer_phone, appointment_type,
	consultant_id, slot_id, status, cancellation_reason, confirmation_sent_at, reminder_sent_at,
	created_at, updated_at, deleted_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	var deletedAt *time.Time
	err := row.Scan(&b.ID, &b.CustomerID, &b.Customer.Name, &b.Customer.Email, &b.Customer.Phone, &b.AppointmentType,
		&b.ConsultantID, &b.SlotID, &status, &b.CancellationReason, &b.ConfirmationSentAt, &b.ReminderSentAt,
		&b.CreatedAt, &b.UpdatedAt, &deletedAt)
	if err != nil {
		return model.Booking{}, mapErr(err)
	}
	b.Status = model.BookingStatus(status)
	b.Lifecycle = model.LifecycleFrom(deletedAt)
	return b, nil
}

func (r queries) InsertBooking(ctx context.Context, b *model.Booking) error {
	if err := lookupIDs(b.ConsultantID, b.SlotID); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO bookings (id, customer_id, customer_name, customer_email, customer_phone, appointment_type,
			consultant_id, slot_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, b.ID, b.CustomerID, b.Customer.Name, b.Customer.Email, b.Customer.Phone, b.AppointmentType,
		b.ConsultantID, b.SlotID, string(b.Status)).Scan(&b.CreatedAt, &b.UpdatedAt)
	return mapErr(err)
}

func (r queries) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	if err := lookupIDs(id); err != nil {
		return model.Booking{}, err
	}
	return scanBooking(r.q.QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r queries) GetBookingForUpdate(ctx context.Context, id string) (model.Booking, error) {
	if err := lookupIDs(id); err != nil {
		return model.Booking{}, err
	}
	return scanBooking(r.q.QueryRow(ctx, `SELECT `+bookingCols+` FROM bookings WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`, id))
}

func (r queries) ListBookings(ctx context.Context, f BookingFilter, page model.PageRequest) ([]model.Booking, int, error) {
	w := bookingWhere(f)
	total, err := r.count(ctx, `SELECT COUNT(*) FROM bookings`+w.sql(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(page)
	rows, err := r.q.Query(ctx, `SELECT `+bookingCols+` FROM bookings`+w.sql()+` ORDER BY created_at DESC`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanBooking)
	return items, total, err
}

func (r queries) TransitionBooking(ctx context.Context, id string, from []model.BookingStatus, to model.BookingStatus, reason string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	return r.execAffected(ctx, `
		UPDATE bookings
		SET status = $3,
			cancellation_reason = CASE WHEN $3 = 'CANCELLED' THEN $4 ELSE cancellation_reason END,
			updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND status = ANY($2)
	`, id, states, string(to), reason)
}

func (r queries) MoveBooking(ctx context.Context, id, slotID, consultantID string) (bool, error) {
	if lookupIDs(id, slotID, consultantID) != nil {
		return false, nil
	}
	return r.execAffected(ctx, `
		UPDATE bookings
		SET slot_id = $2, consultant_id = $3, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND status <> 'CANCELLED'
	`, id, slotID, consultantID)
}

func (r queries) MarkConfirmationSent(ctx context.Context, bookingID string, at time.Time) error {
	if err := lookupIDs(bookingID); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx, `UPDATE bookings SET confirmation_sent_at = $2 WHERE id = $1`, bookingID, at)
	return err
}

func (r queries) MarkBookingReminderSent(ctx context.Context, bookingID string, at time.Time) error {
	if err := lookupIDs(bookingID); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx, `UPDATE bookings SET reminder_sent_at = $2 WHERE id = $1`, bookingID, at)
	return err
}

func (r queries) InsertCancellation(ctx context.Context, c *model.Cancellation) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if err := lookupIDs(c.BookingID); err != nil {
		return err
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO cancellations (id, booking_id, reason, cancelled_at, cancelled_by_user_id)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.BookingID, c.Reason, c.CancelledAt, c.CancelledByUserID)
	return mapErr(err)
}

func (r queries) InsertReschedule(ctx context.Context, rs *model.Reschedule) error {
	if rs.ID == "" {
		rs.ID = uuid.NewString()
	}
	if err := lookupIDs(rs.BookingID, rs.OldTimeSlotID, rs.NewTimeSlotID); err != nil {
		return err
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO reschedules (id, booking_id, old_time_slot_id, new_time_slot_id, reason, status, requested_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, rs.ID, rs.BookingID, rs.OldTimeSlotID, rs.NewTimeSlotID, rs.Reason, string(rs.Status), rs.RequestedBy).Scan(&rs.CreatedAt)
	return mapErr(err)
}
