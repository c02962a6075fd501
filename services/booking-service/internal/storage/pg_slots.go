package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const slotCols = `id, consultant_id, showroom_id, COALESCE(availability_id::text, ''), start_at, end_at,
	duration_minutes, is_available, is_blocked, block_reason, max_bookings, current_bookings,
	created_at, updated_at, deleted_at`

func scanSlot(row pgx.Row) (model.TimeSlot, error) {
	var s model.TimeSlot
	var deletedAt *time.Time
	err := row.Scan(&s.ID, &s.ConsultantID, &s.ShowroomID, &s.AvailabilityID, &s.StartAt, &s.EndAt,
		&s.DurationMinutes, &s.IsAvailable, &s.IsBlocked, &s.BlockReason, &s.MaxBookings, &s.CurrentBookings,
		&s.CreatedAt, &s.UpdatedAt, &deletedAt)
	if err != nil {
		return model.TimeSlot{}, mapErr(err)
	}
	s.Lifecycle = model.LifecycleFrom(deletedAt)
	return s, nil
}

func (r queries) InsertSlot(ctx context.Context, s *model.TimeSlot) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.MaxBookings <= 0 {
		s.MaxBookings = 1
	}
	if err := lookupIDs(s.ConsultantID); err != nil {
		return err
	}
	if s.AvailabilityID != "" && !ValidID(s.AvailabilityID) {
		return ErrNotFound
	}
	s.DurationMinutes = int(s.EndAt.Sub(s.StartAt) / time.Minute)
	err := r.q.QueryRow(ctx, `
		INSERT INTO time_slots (id, consultant_id, showroom_id, availability_id, start_at, end_at,
			duration_minutes, is_available, is_blocked, block_reason, max_bookings)
		VALUES ($1, $2, $3, NULLIF($4, '')::uuid, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`, s.ID, s.ConsultantID, s.ShowroomID, s.AvailabilityID, s.StartAt, s.EndAt,
		s.DurationMinutes, s.IsAvailable, s.IsBlocked, s.BlockReason, s.MaxBookings).Scan(&s.CreatedAt, &s.UpdatedAt)
	return mapErr(err)
}

func (r queries) GetSlot(ctx context.Context, id string) (model.TimeSlot, error) {
	if err := lookupIDs(id); err != nil {
		return model.TimeSlot{}, err
	}
	return scanSlot(r.q.QueryRow(ctx, `SELECT `+slotCols+` FROM time_slots WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r queries) ListSlotsOverlapping(ctx context.Context, consultantID string, rg interval.Range, excludeID string) ([]model.TimeSlot, error) {
	if !ValidID(consultantID) {
		return nil, nil
	}
	rows, err := r.q.Query(ctx, `
		SELECT `+slotCols+` FROM time_slots
		WHERE consultant_id = $1 AND deleted_at IS NULL
			AND start_at < $3 AND end_at > $2
			AND ($4 = '' OR id::text <> $4)
		ORDER BY start_at
	`, consultantID, rg.Start, rg.End, excludeID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanSlot)
}

func (r queries) ListSlots(ctx context.Context, f SlotFilter, page model.PageRequest) ([]model.TimeSlot, int, error) {
	w := slotWhere(f)
	total, err := r.count(ctx, `SELECT COUNT(*) FROM time_slots`+w.sql(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(page)
	rows, err := r.q.Query(ctx, `SELECT `+slotCols+` FROM time_slots`+w.sql()+` ORDER BY start_at`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanSlot)
	return items, total, err
}

func (r queries) UpdateSlotTimes(ctx context.Context, s *model.TimeSlot) (bool, error) {
	if !ValidID(s.ID) {
		return false, nil
	}
	s.DurationMinutes = int(s.EndAt.Sub(s.StartAt) / time.Minute)
	err := r.q.QueryRow(ctx, `
		UPDATE time_slots
		SET start_at = $2, end_at = $3, duration_minutes = $4, showroom_id = $5, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND current_bookings = 0
		RETURNING updated_at
	`, s.ID, s.StartAt, s.EndAt, s.DurationMinutes, s.ShowroomID).Scan(&s.UpdatedAt)
	if err := mapErr(err); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r queries) ClaimSlot(ctx context.Context, id string, now time.Time) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	return r.execAffected(ctx, `
		UPDATE time_slots
		SET is_available = FALSE, current_bookings = current_bookings + 1, updated_at = now()
		WHERE id = $1
			AND is_available
			AND NOT is_blocked
			AND deleted_at IS NULL
			AND current_bookings < max_bookings
			AND start_at > $2
	`, id, now)
}

func (r queries) ReleaseSlot(ctx context.Context, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	return r.execAffected(ctx, `
		UPDATE time_slots
		SET current_bookings = current_bookings - 1, is_available = NOT is_blocked, updated_at = now()
		WHERE id = $1 AND current_bookings > 0
	`, id)
}

func (r queries) BlockSlot(ctx context.Context, id, reason string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	return r.execAffected(ctx, `
		UPDATE time_slots
		SET is_blocked = TRUE, is_available = FALSE, block_reason = $2, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND current_bookings = 0
	`, id, reason)
}

func (r queries) UnblockSlot(ctx context.Context, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	return r.execAffected(ctx, `
		UPDATE time_slots
		SET is_blocked = FALSE, block_reason = '', is_available = (current_bookings = 0), updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL AND is_blocked
	`, id)
}

func (r queries) SoftDeleteSlot(ctx context.Context, id string, at time.Time) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	return r.execAffected(ctx, `
		UPDATE time_slots
		SET deleted_at = $2, is_available = FALSE, updated_at = $2
		WHERE id = $1 AND deleted_at IS NULL AND current_bookings = 0
	`, id, at)
}
