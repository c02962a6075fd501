package storage

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/interval"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const consultant = "6f1c2a0e-3b4d-4e5f-8a9b-0c1d2e3f4a5b"

func TestSlotWhere(t *testing.T) {
	from := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	avail := true
	w := slotWhere(SlotFilter{ConsultantID: consultant, From: &from, Available: &avail})
	want := " WHERE deleted_at IS NULL AND consultant_id = $1 AND start_at >= $2 AND is_available = $3"
	if w.sql() != want {
		t.Fatalf("got %q", w.sql())
	}
	limit, args := w.page(model.PageRequest{Page: 3, Limit: 10})
	if limit != " LIMIT $4 OFFSET $5" || len(args) != 5 || args[3] != 10 || args[4] != 20 {
		t.Fatalf("unexpected paging %q %v", limit, args)
	}
	if len(w.args) != 3 {
		t.Fatal("page must not mutate the where args")
	}
}

func TestAvailabilityWhereWithRange(t *testing.T) {
	w := availabilityWhere(AvailabilityFilter{ConsultantID: consultant, FromDate: "2030-01-07", ToDate: "2030-01-08"})
	want := " WHERE deleted_at IS NULL AND consultant_id = $1 AND ((specific_date IS NOT NULL AND specific_date >= $2::date AND specific_date <= $3::date) OR (specific_date IS NULL AND day_of_week = ANY($4)))"
	if w.sql() != want {
		t.Fatalf("got %q", w.sql())
	}
	if !reflect.DeepEqual(w.args[3], []int{1, 2}) {
		t.Fatalf("expected Monday and Tuesday, got %v", w.args[3])
	}
}

func TestMalformedIDFilterMatchesNothing(t *testing.T) {
	w := bookingWhere(BookingFilter{CustomerID: "cust-1", SlotID: "abc"})
	want := " WHERE deleted_at IS NULL AND customer_id = $1 AND FALSE"
	if w.sql() != want || len(w.args) != 1 {
		t.Fatalf("got %q %v", w.sql(), w.args)
	}
	if w := reminderWhere(ReminderFilter{BookingID: "nope"}); w.sql() != " WHERE FALSE" {
		t.Fatalf("got %q", w.sql())
	}
}

func TestValidID(t *testing.T) {
	cases := map[string]bool{
		consultant:                               true,
		"":                                       false,
		"c1":                                     false,
		"6f1c2a0e3b4d4e5f8a9b0c1d2e3f4a5b":       false,
		"{6f1c2a0e-3b4d-4e5f-8a9b-0c1d2e3f4a5b}": false,
		"6f1c2a0e-3b4d-4e5f-8a9b-0c1d2e3f4a5z":   false,
	}
	for id, want := range cases {
		if got := ValidID(id); got != want {
			t.Fatalf("ValidID(%q) = %v", id, got)
		}
	}
}

func TestMapErr(t *testing.T) {
	if err := mapErr(&pgconn.PgError{Code: codeInvalidText, Message: "invalid input syntax for type uuid"}); !IsNotFound(err) {
		t.Fatalf("expected not found for invalid text, got %v", err)
	}
	if err := mapErr(&pgconn.PgError{Code: codeExclusionViolation, ConstraintName: "time_slots_no_overlap"}); !IsConflict(err) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if err := mapErr(pgx.ErrNoRows); !IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := mapErr(&pgconn.PgError{Code: "57014"}); IsNotFound(err) || IsConflict(err) {
		t.Fatalf("unrelated codes pass through, got %v", err)
	}
}

func TestPGRejectsMalformedIDsBeforeQuerying(t *testing.T) {
	ctx := context.Background()
	r := queries{}
	if _, err := r.GetSlot(ctx, "nope"); !IsNotFound(err) {
		t.Fatalf("GetSlot: %v", err)
	}
	if _, err := r.GetBookingForUpdate(ctx, "abc"); !IsNotFound(err) {
		t.Fatalf("GetBookingForUpdate: %v", err)
	}
	if err := r.UpsertConsultant(ctx, model.Consultant{ID: "c1"}); !IsInvalidID(err) {
		t.Fatalf("UpsertConsultant: %v", err)
	}
	if err := r.InsertBooking(ctx, &model.Booking{ConsultantID: consultant, SlotID: "x"}); !IsNotFound(err) {
		t.Fatalf("InsertBooking: %v", err)
	}
	if ok, err := r.ClaimSlot(ctx, "x", time.Now()); ok || err != nil {
		t.Fatalf("ClaimSlot: %v %v", ok, err)
	}
	if got, err := r.ListSlotsOverlapping(ctx, "c1", interval.Range{}, ""); got != nil || err != nil {
		t.Fatalf("ListSlotsOverlapping: %v %v", got, err)
	}
}

func TestAvailabilityFilterMatch(t *testing.T) {
	mon, sun := 1, 0
	f := AvailabilityFilter{FromDate: "2030-01-07", ToDate: "2030-01-08"}
	cases := []struct {
		name string
		a    model.Availability
		want bool
	}{
		{"weekly in range", model.Availability{DayOfWeek: &mon}, true},
		{"weekly out of range", model.Availability{DayOfWeek: &sun}, false},
		{"date in range", model.Availability{SpecificDate: "2030-01-08"}, true},
		{"date out of range", model.Availability{SpecificDate: "2030-01-09"}, false},
		{"deleted", model.Availability{DayOfWeek: &mon, Lifecycle: model.Deleted(time.Now())}, false},
	}
	for _, tc := range cases {
		if got := f.Match(tc.a); got != tc.want {
			t.Fatalf("%s: got %v", tc.name, got)
		}
	}
	if (AvailabilityFilter{}).Weekdays() != nil {
		t.Fatal("unbounded range has no weekday restriction")
	}
	if len((AvailabilityFilter{FromDate: "2030-01-01", ToDate: "2030-03-01"}).Weekdays()) != 7 {
		t.Fatal("long range covers every weekday")
	}
}

func TestDueQuery(t *testing.T) {
	now := time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC)
	failedAt := now.Add(-3 * time.Minute)
	recent := now.Add(-time.Minute)
	q := DueQuery{Now: now, MaxRetries: 3, RetryBackoff: time.Minute}
	cases := []struct {
		name string
		r    model.Reminder
		want bool
	}{
		{"pending due", model.Reminder{Status: model.ReminderPending, ScheduledAt: now}, true},
		{"pending future", model.Reminder{Status: model.ReminderPending, ScheduledAt: now.Add(time.Second)}, false},
		{"failed after backoff", model.Reminder{Status: model.ReminderFailed, RetryCount: 2, FailedAt: &failedAt}, true},
		{"failed in backoff", model.Reminder{Status: model.ReminderFailed, RetryCount: 2, FailedAt: &recent}, false},
		{"failed exhausted", model.Reminder{Status: model.ReminderFailed, RetryCount: 3, FailedAt: &failedAt}, false},
		{"sent", model.Reminder{Status: model.ReminderSent, ScheduledAt: now.Add(-time.Hour)}, false},
	}
	for _, tc := range cases {
		if got := q.Due(tc.r); got != tc.want {
			t.Fatalf("%s: got %v", tc.name, got)
		}
	}
}
