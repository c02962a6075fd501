package availability

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/md-rashed-zaman/slotbook/libs/auth"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/apperr"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/cache"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/storage/memstore"
)

const (
	dana = "6f1c2a0e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"
	lee  = "9d8e7f60-5a4b-4c3d-9e2f-1a0b9c8d7e6f"
)

var admin = auth.Identity{UserID: "admin-1", Role: auth.RoleAdmin}

func newTestService(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memstore.New()
	if err := store.UpsertConsultant(context.Background(), model.Consultant{ID: dana, Name: "Dana", Timezone: "UTC", Active: true}); err != nil {
		t.Fatalf("UpsertConsultant: %v", err)
	}
	layer := cache.NewLayer(cache.NewRedis(rdb), 0, logger)
	return NewService(store, layer, logger), store
}

func weekday(d int) *int { return &d }

func TestCreateRejectsOverlap(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, admin, Input{ConsultantID: dana, DayOfWeek: weekday(1), StartTime: "09:00", EndTime: "12:00"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !first.IsRecurring {
		t.Fatalf("expected recurring window")
	}

	_, err = svc.Create(ctx, admin, Input{ConsultantID: dana, DayOfWeek: weekday(1), StartTime: "11:00", EndTime: "13:00"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if e := apperr.As(err); e == nil || e.ConflictID != first.ID {
		t.Fatalf("expected conflicting id %s, got %+v", first.ID, e)
	}

	// Touching windows and other days are fine.
	if _, err := svc.Create(ctx, admin, Input{ConsultantID: dana, DayOfWeek: weekday(1), StartTime: "12:00", EndTime: "14:00"}); err != nil {
		t.Fatalf("adjacent window: %v", err)
	}
	if _, err := svc.Create(ctx, admin, Input{ConsultantID: dana, DayOfWeek: weekday(2), StartTime: "09:00", EndTime: "12:00"}); err != nil {
		t.Fatalf("other weekday: %v", err)
	}
	if _, err := svc.Create(ctx, admin, Input{ConsultantID: dana, SpecificDate: "2030-01-07", StartTime: "09:00", EndTime: "12:00"}); err != nil {
		t.Fatalf("specific date is its own day key: %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   Input
		kind apperr.Kind
	}{
		{"both keys", Input{ConsultantID: dana, DayOfWeek: weekday(1), SpecificDate: "2030-01-07", StartTime: "09:00", EndTime: "10:00"}, apperr.KindValidation},
		{"no key", Input{ConsultantID: dana, StartTime: "09:00", EndTime: "10:00"}, apperr.KindValidation},
		{"bad weekday", Input{ConsultantID: dana, DayOfWeek: weekday(7), StartTime: "09:00", EndTime: "10:00"}, apperr.KindValidation},
		{"end before start", Input{ConsultantID: dana, DayOfWeek: weekday(1), StartTime: "10:00", EndTime: "09:00"}, apperr.KindValidation},
		{"empty range", Input{ConsultantID: dana, DayOfWeek: weekday(1), StartTime: "10:00", EndTime: "10:00"}, apperr.KindValidation},
		{"unknown consultant", Input{ConsultantID: "nope", DayOfWeek: weekday(1), StartTime: "09:00", EndTime: "10:00"}, apperr.KindNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(ctx, admin, tc.in)
			if got := apperr.KindOf(err); got != tc.kind {
				t.Fatalf("expected %s, got %s (%v)", tc.kind, got, err)
			}
		})
	}
}

func TestCreateRequiresAdmin(t *testing.T) {
	svc, _ := newTestService(t)
	customer := auth.Identity{UserID: "u1", Role: auth.RoleCustomer}
	_, err := svc.Create(context.Background(), customer, Input{ConsultantID: dana, DayOfWeek: weekday(1), StartTime: "09:00", EndTime: "10:00"})
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestUpdateExcludesSelf(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, admin, Input{ConsultantID: dana, DayOfWeek: weekday(3), StartTime: "09:00", EndTime: "11:00"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	b, err := svc.Create(ctx, admin, Input{ConsultantID: dana, DayOfWeek: weekday(3), StartTime: "13:00", EndTime: "15:00"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	end := "12:00"
	got, err := svc.Update(ctx, admin, a.ID, Patch{EndTime: &end})
	if err != nil {
		t.Fatalf("extend own window: %v", err)
	}
	if got.EndTime != "12:00" {
		t.Fatalf("expected end 12:00, got %s", got.EndTime)
	}

	start := "11:30"
	_, err = svc.Update(ctx, admin, b.ID, Patch{StartTime: &start})
	if e := apperr.As(err); e == nil || e.Kind != apperr.KindConflict || e.ConflictID != a.ID {
		t.Fatalf("expected conflict with %s, got %v", a.ID, err)
	}
}

func TestSoftDeleteHidesWindowAndFreesRange(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, admin, Input{ConsultantID: dana, DayOfWeek: weekday(4), StartTime: "09:00", EndTime: "11:00"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.SoftDelete(ctx, admin, a.ID); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if _, err := svc.Get(ctx, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found after delete, got %v", err)
	}
	if err := svc.SoftDelete(ctx, admin, a.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	if _, err := svc.Create(ctx, admin, Input{ConsultantID: dana, DayOfWeek: weekday(4), StartTime: "10:00", EndTime: "12:00"}); err != nil {
		t.Fatalf("deleted window should not block: %v", err)
	}
}

func TestFindByConsultantInvalidatesOnWrite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	page := model.PageRequest{Page: 1, Limit: 10}

	if _, err := svc.Create(ctx, admin, Input{ConsultantID: dana, DayOfWeek: weekday(1), StartTime: "09:00", EndTime: "10:00"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	first, err := svc.FindByConsultant(ctx, filterFor(dana), page)
	if err != nil {
		t.Fatalf("FindByConsultant: %v", err)
	}
	if first.Meta.Total != 1 {
		t.Fatalf("expected 1 window, got %d", first.Meta.Total)
	}

	if _, err := svc.Create(ctx, admin, Input{ConsultantID: dana, DayOfWeek: weekday(1), StartTime: "10:00", EndTime: "11:00"}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	second, err := svc.FindByConsultant(ctx, filterFor(dana), page)
	if err != nil {
		t.Fatalf("FindByConsultant: %v", err)
	}
	if second.Meta.Total != 2 || len(second.Data) != 2 {
		t.Fatalf("expected fresh listing with 2 windows, got %+v", second.Meta)
	}
}

func TestFindByConsultantRejectsBadRange(t *testing.T) {
	svc, _ := newTestService(t)
	f := filterFor(dana)
	f.FromDate, f.ToDate = "2030-02-01", "2030-01-01"
	if _, err := svc.FindByConsultant(context.Background(), f, model.PageRequest{}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func filterFor(consultantID string) storage.AvailabilityFilter {
	return storage.AvailabilityFilter{ConsultantID: consultantID}
}

func TestUpsertConsultantValidatesZone(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.UpsertConsultant(ctx, admin, model.Consultant{ID: lee, Name: "Lee", Timezone: "Mars/Base"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := svc.UpsertConsultant(ctx, admin, model.Consultant{ID: "c2", Name: "Lee", Timezone: "UTC"}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error for non-UUID id, got %v", err)
	}
	upper, err := svc.UpsertConsultant(ctx, admin, model.Consultant{ID: strings.ToUpper(lee), Name: "Lee", Timezone: "UTC"})
	if err != nil || upper.ID != lee {
		t.Fatalf("expected canonical id %s, got %+v (%v)", lee, upper, err)
	}
	c, err := svc.UpsertConsultant(ctx, admin, model.Consultant{ID: lee, Name: "Lee", Timezone: "Europe/Berlin", Active: true})
	if err != nil {
		t.Fatalf("UpsertConsultant: %v", err)
	}
	got, err := svc.GetConsultant(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetConsultant: %v", err)
	}
	if got.Location().String() != "Europe/Berlin" {
		t.Fatalf("expected Europe/Berlin, got %s", got.Location())
	}
}
