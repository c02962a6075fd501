package reminders

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// brokenStamp fails the first booking reminder stamp written through a transaction.
type brokenStamp struct {
	storage.Store
	failed bool
}

func (s *brokenStamp) InTx(ctx context.Context, fn func(storage.Queries) error) error {
	return s.Store.InTx(ctx, func(q storage.Queries) error {
		return fn(&brokenStampQueries{Queries: q, store: s})
	})
}

type brokenStampQueries struct {
	storage.Queries
	store *brokenStamp
}

func (q *brokenStampQueries) MarkBookingReminderSent(ctx context.Context, bookingID string, at time.Time) error {
	if !q.store.failed {
		q.store.failed = true
		return errors.New("connection reset")
	}
	return q.Queries.MarkBookingReminderSent(ctx, bookingID, at)
}

func TestProcessCommitsEachReminderSeparately(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.svc.Create(ctx, owner, CreateInput{BookingID: f.booking.ID, Channel: model.ChannelEmail, ScheduledAt: now.Add(time.Minute)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := f.svc.Create(ctx, owner, CreateInput{BookingID: f.booking.ID, Channel: model.ChannelSMS, ScheduledAt: now.Add(2 * time.Minute)})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	svc := NewService(&brokenStamp{Store: f.store}, f.sender, slog.New(slog.NewTextHandler(io.Discard, nil)),
		Config{RetryBackoff: time.Minute, MaxRetries: 2})
	svc.SetClock(func() time.Time { return now.Add(5 * time.Minute) })
	res, err := svc.Process(ctx)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Sent != 1 || res.Errors != 1 {
		t.Fatalf("expected one sent and one error, got %+v", res)
	}
	if got, _ := f.store.GetReminder(ctx, first.ID); got.Status != model.ReminderPending {
		t.Fatalf("reminder whose commit failed should stay PENDING, got %s", got.Status)
	}
	if got, _ := f.store.GetReminder(ctx, second.ID); got.Status != model.ReminderSent || got.SentAt == nil {
		t.Fatalf("other reminder lost its SENT mark: %+v", got)
	}

	// The rolled-back reminder goes out on the next pass; the sent one is not repeated.
	sentBefore := len(f.sender.sent)
	res, err = svc.Process(ctx)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Sent != 1 || len(f.sender.sent) != sentBefore+1 {
		t.Fatalf("expected only the rolled-back reminder to be resent, got %+v", res)
	}
}
