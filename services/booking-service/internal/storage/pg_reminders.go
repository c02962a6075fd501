package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const reminderCols = `id, booking_id, customer_id, channel, status, scheduled_at, sent_at, failed_at,
	failure_reason, retry_count, traceparent, tracestate, created_at, updated_at`

func scanReminder(row pgx.Row) (model.Reminder, error) {
	var m model.Reminder
	var channel, status string
	err := row.Scan(&m.ID, &m.BookingID, &m.CustomerID, &channel, &status, &m.ScheduledAt, &m.SentAt, &m.FailedAt,
		&m.FailureReason, &m.RetryCount, &m.Traceparent, &m.Tracestate, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return model.Reminder{}, mapErr(err)
	}
	m.Channel = model.Channel(channel)
	m.Status = model.ReminderStatus(status)
	return m, nil
}

func (r queries) InsertReminder(ctx context.Context, m *model.Reminder) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.Status == "" {
		m.Status = model.ReminderPending
	}
	if err := lookupIDs(m.BookingID); err != nil {
		return err
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO reminders (id, booking_id, customer_id, channel, status, scheduled_at, traceparent, tracestate)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`, m.ID, m.BookingID, m.CustomerID, string(m.Channel), string(m.Status), m.ScheduledAt,
		m.Traceparent, m.Tracestate).Scan(&m.CreatedAt, &m.UpdatedAt)
	return mapErr(err)
}

func (r queries) GetReminder(ctx context.Context, id string) (model.Reminder, error) {
	if err := lookupIDs(id); err != nil {
		return model.Reminder{}, err
	}
	return scanReminder(r.q.QueryRow(ctx, `SELECT `+reminderCols+` FROM reminders WHERE id = $1`, id))
}

func (r queries) ListReminders(ctx context.Context, f ReminderFilter, page model.PageRequest) ([]model.Reminder, int, error) {
	w := reminderWhere(f)
	total, err := r.count(ctx, `SELECT COUNT(*) FROM reminders`+w.sql(), w.args...)
	if err != nil {
		return nil, 0, err
	}
	limit, args := w.page(page)
	rows, err := r.q.Query(ctx, `SELECT `+reminderCols+` FROM reminders`+w.sql()+` ORDER BY scheduled_at`+limit, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collect(rows, scanReminder)
	return items, total, err
}

func (r queries) UpdateReminder(ctx context.Context, m *model.Reminder) (bool, error) {
	if !ValidID(m.ID) {
		return false, nil
	}
	err := r.q.QueryRow(ctx, `
		UPDATE reminders
		SET scheduled_at = $2, channel = $3, status = $4, retry_count = $5,
			failed_at = NULL, failure_reason = '', updated_at = now()
		WHERE id = $1 AND status <> 'SENT'
		RETURNING updated_at
	`, m.ID, m.ScheduledAt, string(m.Channel), string(m.Status), m.RetryCount).Scan(&m.UpdatedAt)
	if err := mapErr(err); err != nil {
		if IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (r queries) SetReminderStatus(ctx context.Context, id string, from []model.ReminderStatus, to model.ReminderStatus) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}
	return r.execAffected(ctx, `
		UPDATE reminders SET status = $3, updated_at = now()
		WHERE id = $1 AND status = ANY($2)
	`, id, states, string(to))
}

func (r queries) DeleteReminder(ctx context.Context, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	return r.execAffected(ctx, `DELETE FROM reminders WHERE id = $1 AND status <> 'SENT'`, id)
}

// dueClause binds $1 to now, $2 to the retry limit and $3 to the backoff in seconds.
const dueClause = `((status = 'PENDING' AND scheduled_at <= $1)
	OR (status = 'FAILED' AND retry_count < $2
		AND failed_at + make_interval(secs => $3 * retry_count) <= $1))`

func (r queries) FetchDueReminders(ctx context.Context, q DueQuery) ([]model.Reminder, error) {
	rows, err := r.q.Query(ctx, `
		SELECT `+reminderCols+` FROM reminders
		WHERE `+dueClause+`
		ORDER BY scheduled_at
		LIMIT $4
		FOR UPDATE SKIP LOCKED
	`, q.Now, q.MaxRetries, q.RetryBackoff.Seconds(), q.Limit)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanReminder)
}

func (r queries) LockDueReminder(ctx context.Context, id string, q DueQuery) (model.Reminder, bool, error) {
	if !ValidID(id) {
		return model.Reminder{}, false, nil
	}
	m, err := scanReminder(r.q.QueryRow(ctx, `
		SELECT `+reminderCols+` FROM reminders
		WHERE id = $4 AND `+dueClause+`
		FOR UPDATE SKIP LOCKED
	`, q.Now, q.MaxRetries, q.RetryBackoff.Seconds(), id))
	switch {
	case IsNotFound(err):
		return model.Reminder{}, false, nil
	case err != nil:
		return model.Reminder{}, false, err
	}
	return m, true, nil
}

func (r queries) MarkReminderSent(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE reminders SET status = 'SENT', sent_at = $2, failure_reason = '', updated_at = $2
		WHERE id = $1
	`, id, at)
	return err
}

func (r queries) MarkReminderFailed(ctx context.Context, id string, at time.Time, reason string) error {
	_, err := r.q.Exec(ctx, `
		UPDATE reminders
		SET status = 'FAILED', failed_at = $2, failure_reason = $3, retry_count = retry_count + 1, updated_at = $2
		WHERE id = $1
	`, id, at, reason)
	return err
}
