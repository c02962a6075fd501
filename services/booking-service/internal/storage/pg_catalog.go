package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

func (r queries) UpsertConsultant(ctx context.Context, c model.Consultant) error {
	if !ValidID(c.ID) {
		return fmt.Errorf("%w: consultant %q", ErrInvalidID, c.ID)
	}
	_, err := r.q.Exec(ctx, `
		INSERT INTO consultants (id, name, email, timezone, active)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, email = EXCLUDED.email, timezone = EXCLUDED.timezone,
			active = EXCLUDED.active, updated_at = now()
	`, c.ID, c.Name, c.Email, c.Timezone, c.Active)
	return mapErr(err)
}

const consultantCols = `id, name, email, timezone, active`

func scanConsultant(row pgx.Row) (model.Consultant, error) {
	var c model.Consultant
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Timezone, &c.Active)
	return c, mapErr(err)
}

func (r queries) GetConsultant(ctx context.Context, id string) (model.Consultant, error) {
	if err := lookupIDs(id); err != nil {
		return model.Consultant{}, err
	}
	return scanConsultant(r.q.QueryRow(ctx, `SELECT `+consultantCols+` FROM consultants WHERE id = $1`, id))
}

func (r queries) LockConsultant(ctx context.Context, id string) (model.Consultant, error) {
	if err := lookupIDs(id); err != nil {
		return model.Consultant{}, err
	}
	return scanConsultant(r.q.QueryRow(ctx, `SELECT `+consultantCols+` FROM consultants WHERE id = $1 FOR UPDATE`, id))
}

const availabilityCols = `id, consultant_id, day_of_week, COALESCE(specific_date::text, ''), start_time, end_time,
	is_recurring, is_blocked, block_reason, created_at, updated_at, deleted_at`

func scanAvailability(row pgx.Row) (model.Availability, error) {
	var a model.Availability
	var dow *int16
	var deletedAt *time.Time
	err := row.Scan(&a.ID, &a.ConsultantID, &dow, &a.SpecificDate, &a.StartTime, &a.EndTime,
		&a.IsRecurring, &a.IsBlocked, &a.BlockReason, &a.CreatedAt, &a.UpdatedAt, &deletedAt)
	if err != nil {
		return model.Availability{}, mapErr(err)
	}
	if dow != nil {
		d := int(*dow)
		a.DayOfWeek = &d
	}
	a.Lifecycle = model.LifecycleFrom(deletedAt)
	return a, nil
}

func (r queries) InsertAvailability(ctx context.Context, a *model.Availability) error {
	if err := lookupIDs(a.ConsultantID); err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO availability (id, consultant_id, day_of_week, specific_date, start_time, end_time,
			is_recurring, is_blocked, block_reason)
		VALUES ($1, $2, $3, NULLIF($4, '')::date, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`, a.ID, a.ConsultantID, a.DayOfWeek, a.SpecificDate, a.StartTime, a.EndTime,
		a.IsRecurring, a.IsBlocked, a.BlockReason).Scan(&a.CreatedAt, &a.UpdatedAt)
	return mapErr(err)
}

func (r queries) GetAvailability(ctx context.Context, id string) (model.Availability, error) {
	if err := lookupIDs(id); err != nil {
		return model.Availability{}, err
	}
	return scanAvailability(r.q.QueryRow(ctx,
		`SELECT `+availabilityCols+` FROM availability WHERE id = $1 AND deleted_at IS NULL`, id))
}

func (r queries) ListAvailabilityForDay(ctx context.Context, consultantID string, key model.DayKey) ([]model.Availability, error) {
	if !ValidID(consultantID) {
		return nil, nil
	}
	sql := `SELECT ` + availabilityCols + ` FROM availability
		WHERE consultant_id = $1 AND deleted_at IS NULL AND `
	var arg any
	if key.Weekly {
		sql += `specific_date IS NULL AND day_of_week = $2`
		arg = key.DayOfWeek
	} else {
		sql += `specific_date = $2::date`
		arg = key.Date
	}
	rows, err := r.q.Query(ctx, sql+` ORDER BY start_time`, consultantID, arg)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAvailability)
}

func (r queries) ListAvailability(ctx context.Context, f AvailabilityFilter, page model.PageRequest) ([]model.Availability, int, error) {
	w := availabilityWhere(f)
	total, err := r.count(ctx, `SELECT COUNT(*) FROM availability`+w.sql(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(page)
	rows, err := r.q.Query(ctx, `SELECT `+availabilityCols+` FROM availability`+w.sql()+
		` ORDER BY specific_date NULLS FIRST, day_of_week, start_time`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanAvailability)
	return items, total, err
}

func (r queries) UpdateAvailability(ctx context.Context, a *model.Availability) error {
	if err := lookupIDs(a.ID); err != nil {
		return err
	}
	err := r.q.QueryRow(ctx, `
		UPDATE availability
		SET day_of_week = $2, specific_date = NULLIF($3, '')::date, start_time = $4, end_time = $5,
			is_recurring = $6, is_blocked = $7, block_reason = $8, updated_at = now()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING updated_at
	`, a.ID, a.DayOfWeek, a.SpecificDate, a.StartTime, a.EndTime, a.IsRecurring, a.IsBlocked, a.BlockReason).Scan(&a.UpdatedAt)
	return mapErr(err)
}

func (r queries) SoftDeleteAvailability(ctx context.Context, id string, at time.Time) error {
	if err := lookupIDs(id); err != nil {
		return err
	}
	ok, err := r.execAffected(ctx,
		`UPDATE availability SET deleted_at = $2, updated_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, at)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
