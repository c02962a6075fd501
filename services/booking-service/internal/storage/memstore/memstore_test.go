package memstore

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

const (
	dana       = "6f1c2a0e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"
	ravi       = "9d8e7f60-5a4b-4c3d-9e2f-1a0b9c8d7e6f"
	slotKey    = "3a2b1c0d-9e8f-4a7b-8c6d-5e4f3a2b1c0d"
	bookingKey = "b0a1c2d3-e4f5-4a6b-9c7d-8e9f0a1b2c3d"
)

var base = time.Date(2030, 1, 7, 9, 0, 0, 0, time.UTC)

func seedSlot(t *testing.T, s *Store, startMin, endMin int) model.TimeSlot {
	t.Helper()
	slot := model.TimeSlot{
		ConsultantID: dana,
		StartAt:      base.Add(time.Duration(startMin) * time.Minute),
		EndAt:        base.Add(time.Duration(endMin) * time.Minute),
		IsAvailable:  true,
	}
	if err := s.InsertSlot(context.Background(), &slot); err != nil {
		t.Fatalf("InsertSlot: %v", err)
	}
	return slot
}

func TestInsertSlotRejectsOverlap(t *testing.T) {
	s := New()
	seedSlot(t, s, 0, 30)
	seedSlot(t, s, 30, 60)

	clash := model.TimeSlot{ConsultantID: dana, StartAt: base.Add(15 * time.Minute), EndAt: base.Add(45 * time.Minute)}
	if err := s.InsertSlot(context.Background(), &clash); !storage.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	other := model.TimeSlot{ConsultantID: ravi, StartAt: base, EndAt: base.Add(30 * time.Minute)}
	if err := s.InsertSlot(context.Background(), &other); err != nil {
		t.Fatalf("other consultant should not clash: %v", err)
	}
}

func TestClaimSlotSingleWinner(t *testing.T) {
	s := New()
	slot := seedSlot(t, s, 0, 30)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.ClaimSlot(context.Background(), slot.ID, base.Add(-time.Hour))
			if err != nil {
				t.Errorf("ClaimSlot: %v", err)
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one claim, got %d", wins.Load())
	}

	got, _ := s.GetSlot(context.Background(), slot.ID)
	if got.IsAvailable || got.CurrentBookings != 1 {
		t.Fatalf("unexpected slot state %+v", got)
	}
	if ok, _ := s.ClaimSlot(context.Background(), slot.ID, base.Add(-time.Hour)); ok {
		t.Fatal("occupied slot must not be claimable")
	}
}

func TestClaimSlotRejectsPastAndBlocked(t *testing.T) {
	s := New()
	slot := seedSlot(t, s, 0, 30)
	if ok, _ := s.ClaimSlot(context.Background(), slot.ID, base); ok {
		t.Fatal("slot starting now is not in the future")
	}
	if ok, _ := s.BlockSlot(context.Background(), slot.ID, "maintenance"); !ok {
		t.Fatal("BlockSlot should succeed on a free slot")
	}
	if ok, _ := s.ClaimSlot(context.Background(), slot.ID, base.Add(-time.Hour)); ok {
		t.Fatal("blocked slot must not be claimable")
	}
}

func TestReleaseKeepsBlockedSlotUnavailable(t *testing.T) {
	s := New()
	slot := seedSlot(t, s, 0, 30)
	ctx := context.Background()
	if ok, _ := s.ClaimSlot(ctx, slot.ID, base.Add(-time.Hour)); !ok {
		t.Fatal("claim failed")
	}
	if ok, _ := s.BlockSlot(ctx, slot.ID, "x"); ok {
		t.Fatal("occupied slot must not be blockable")
	}
	if ok, _ := s.SoftDeleteSlot(ctx, slot.ID, base); ok {
		t.Fatal("occupied slot must not be deletable")
	}

	// Force the blocked+occupied state a direct admin edit could produce, then release.
	_ = s.InTx(ctx, func(q storage.Queries) error {
		v := q.(*view)
		row := v.st.slots[slot.ID]
		row.IsBlocked = true
		v.st.slots[slot.ID] = row
		return nil
	})
	if ok, _ := s.ReleaseSlot(ctx, slot.ID); !ok {
		t.Fatal("release failed")
	}
	got, _ := s.GetSlot(ctx, slot.ID)
	if got.IsAvailable {
		t.Fatal("blocked slot must stay unavailable after release")
	}
	if ok, _ := s.ReleaseSlot(ctx, slot.ID); ok {
		t.Fatal("second release must not match")
	}
}

func TestInTxRollsBack(t *testing.T) {
	s := New()
	slot := seedSlot(t, s, 0, 30)
	boom := errors.New("boom")
	err := s.InTx(context.Background(), func(q storage.Queries) error {
		if ok, err := q.ClaimSlot(context.Background(), slot.ID, base.Add(-time.Hour)); !ok || err != nil {
			t.Fatalf("claim in tx: %v %v", ok, err)
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	got, _ := s.GetSlot(context.Background(), slot.ID)
	if !got.IsAvailable || got.CurrentBookings != 0 {
		t.Fatalf("rollback did not restore slot: %+v", got)
	}
}

func TestOneLiveBookingPerSlot(t *testing.T) {
	s := New()
	ctx := context.Background()
	b1 := model.Booking{CustomerID: "u1", ConsultantID: dana, SlotID: slotKey, Status: model.BookingPending}
	if err := s.InsertBooking(ctx, &b1); err != nil {
		t.Fatal(err)
	}
	b2 := model.Booking{CustomerID: "u2", ConsultantID: dana, SlotID: slotKey, Status: model.BookingPending}
	if err := s.InsertBooking(ctx, &b2); !storage.IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if ok, _ := s.TransitionBooking(ctx, b1.ID, []model.BookingStatus{model.BookingPending}, model.BookingCancelled, "r"); !ok {
		t.Fatal("cancel transition failed")
	}
	if ok, _ := s.TransitionBooking(ctx, b1.ID, []model.BookingStatus{model.BookingPending, model.BookingConfirmed}, model.BookingCancelled, "r"); ok {
		t.Fatal("cancelled booking must not transition again")
	}
	if err := s.InsertBooking(ctx, &b2); err != nil {
		t.Fatalf("slot should accept a new booking after cancel: %v", err)
	}
}

func TestListSlotsOverlappingAndPaging(t *testing.T) {
	s := New()
	for i := 0; i < 5; i++ {
		seedSlot(t, s, i*30, i*30+30)
	}
	ctx := context.Background()
	got, err := s.ListSlotsOverlapping(ctx, dana, interval.Range{Start: base.Add(29 * time.Minute), End: base.Add(61 * time.Minute)}, "")
	if err != nil || len(got) != 3 {
		t.Fatalf("expected 3 overlapping slots, got %d (%v)", len(got), err)
	}

	page, total, err := s.ListSlots(ctx, storage.SlotFilter{ConsultantID: dana}, model.PageRequest{Page: 2, Limit: 2})
	if err != nil || total != 5 || len(page) != 2 {
		t.Fatalf("unexpected page: %d items, total %d, %v", len(page), total, err)
	}
	if !page[0].StartAt.Equal(base.Add(60 * time.Minute)) {
		t.Fatalf("page not ordered by start: %s", page[0].StartAt)
	}
}

func TestFetchDueReminders(t *testing.T) {
	s := New()
	ctx := context.Background()
	now := base
	due := model.Reminder{BookingID: bookingKey, Channel: model.ChannelEmail, ScheduledAt: now.Add(-time.Minute)}
	future := model.Reminder{BookingID: bookingKey, Channel: model.ChannelSMS, ScheduledAt: now.Add(time.Hour)}
	for _, r := range []*model.Reminder{&due, &future} {
		if err := s.InsertReminder(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	q := storage.DueQuery{Now: now, Limit: 10, MaxRetries: 2, RetryBackoff: time.Minute}
	got, _ := s.FetchDueReminders(ctx, q)
	if len(got) != 1 || got[0].ID != due.ID {
		t.Fatalf("expected only the due reminder, got %+v", got)
	}

	if _, ok, err := s.LockDueReminder(ctx, due.ID, q); !ok || err != nil {
		t.Fatalf("due reminder should lock: %v %v", ok, err)
	}
	if _, ok, _ := s.LockDueReminder(ctx, future.ID, q); ok {
		t.Fatal("future reminder must not lock")
	}

	_ = s.MarkReminderFailed(ctx, due.ID, now, "smtp down")
	if _, ok, _ := s.LockDueReminder(ctx, due.ID, q); ok {
		t.Fatal("failed reminder must not lock before its backoff")
	}
	if got, _ := s.FetchDueReminders(ctx, q); len(got) != 0 {
		t.Fatal("failed reminder must wait for its backoff")
	}
	q.Now = now.Add(time.Minute)
	if got, _ := s.FetchDueReminders(ctx, q); len(got) != 1 {
		t.Fatal("failed reminder should be retried after backoff")
	}
	_ = s.MarkReminderFailed(ctx, due.ID, q.Now, "smtp down")
	q.Now = now.Add(time.Hour - time.Second)
	if got, _ := s.FetchDueReminders(ctx, q); len(got) != 0 {
		t.Fatal("retry budget exhausted")
	}
}
