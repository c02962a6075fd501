package booking

import (
	"context"
	"testing"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/slots"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
)

// generateMonday creates a Monday 09:00-17:00 window and slices it into 30 minute slots.
func generateMonday(t *testing.T, f *fixture) (*slots.Service, []model.TimeSlot) {
	t.Helper()
	ctx := context.Background()
	avail := availability.NewService(f.store, f.layer, f.logger)
	slotSvc := slots.NewService(f.store, f.layer, f.logger, slots.Config{})
	slotSvc.SetClock(func() time.Time { return now })

	dow := int(time.Monday)
	window, err := avail.Create(ctx, admin, availability.Input{ConsultantID: dana, DayOfWeek: &dow, StartTime: "09:00", EndTime: "17:00"})
	if err != nil {
		t.Fatalf("availability.Create: %v", err)
	}
	generated, err := slotSvc.GenerateFromAvailability(ctx, admin, window.ID, slots.GenerateRequest{From: "2030-01-07", To: "2030-01-07"})
	if err != nil {
		t.Fatalf("GenerateFromAvailability: %v", err)
	}
	if len(generated) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(generated))
	}
	return slotSvc, generated
}

func availableCount(t *testing.T, slotSvc *slots.Service) int {
	t.Helper()
	yes := true
	page, err := slotSvc.ListSlots(context.Background(), storage.SlotFilter{ConsultantID: dana, Available: &yes}, model.PageRequest{Limit: 100})
	if err != nil {
		t.Fatalf("ListSlots: %v", err)
	}
	return page.Meta.Total
}

func TestScenarioBookCancelRebook(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slotSvc, generated := generateMonday(t, f)
	first := generated[0]

	// Warm the cache before any booking.
	if n := availableCount(t, slotSvc); n != 16 {
		t.Fatalf("expected 16 available, got %d", n)
	}

	b, err := f.svc.Create(ctx, customer, CreateInput{SlotID: first.ID, Customer: ana})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.svc.Create(ctx, other, CreateInput{SlotID: first.ID, Customer: ana}); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("second booking: expected conflict, got %v", err)
	}
	if n := availableCount(t, slotSvc); n != 15 {
		t.Fatalf("listing stale after booking: %d available", n)
	}
	if s, err := slotSvc.GetSlot(ctx, first.ID); err != nil || s.IsAvailable {
		t.Fatalf("slot should read as booked: %+v err=%v", s, err)
	}

	if _, err := f.svc.Cancel(ctx, customer, b.ID, "schedule conflict"); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if s, err := slotSvc.GetSlot(ctx, first.ID); err != nil || !s.IsAvailable {
		t.Fatalf("slot should be bookable again: %+v err=%v", s, err)
	}
	if n := availableCount(t, slotSvc); n != 16 {
		t.Fatalf("listing stale after cancel: %d available", n)
	}

	again, err := f.svc.Create(ctx, other, CreateInput{SlotID: first.ID, Customer: ana})
	if err != nil {
		t.Fatalf("rebook: %v", err)
	}
	if again.ID == b.ID || again.SlotID != first.ID {
		t.Fatalf("unexpected rebooking: %+v", again)
	}
}

func TestScenarioRescheduleSwapsSlots(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	slotSvc, generated := generateMonday(t, f)
	first, second := generated[0], generated[1]

	b, err := f.svc.Create(ctx, customer, CreateInput{SlotID: first.ID, Customer: ana})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	// Cache both entries before the move.
	for _, id := range []string{first.ID, second.ID} {
		if _, err := slotSvc.GetSlot(ctx, id); err != nil {
			t.Fatalf("GetSlot: %v", err)
		}
	}

	moved, err := f.svc.Reschedule(ctx, customer, b.ID, second.ID, "running late")
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if moved.SlotID != second.ID {
		t.Fatalf("booking references %s, want %s", moved.SlotID, second.ID)
	}
	s1, err := slotSvc.GetSlot(ctx, first.ID)
	if err != nil || !s1.IsAvailable {
		t.Fatalf("slot #1 should be available: %+v err=%v", s1, err)
	}
	s2, err := slotSvc.GetSlot(ctx, second.ID)
	if err != nil || s2.IsAvailable {
		t.Fatalf("slot #2 should be unavailable: %+v err=%v", s2, err)
	}
}
