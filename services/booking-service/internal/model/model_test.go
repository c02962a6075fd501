package model

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to BookingStatus
		want     bool
	}{
		{BookingPending, BookingConfirmed, true},
		{BookingPending, BookingCancelled, true},
		{BookingConfirmed, BookingCancelled, true},
		{BookingConfirmed, BookingPending, false},
		{BookingCancelled, BookingPending, false},
		{BookingCancelled, BookingConfirmed, false},
		{BookingCancelled, BookingCancelled, false},
	}
	for _, tc := range cases {
		if got := CanTransition(tc.from, tc.to); got != tc.want {
			t.Fatalf("%s -> %s: got %v want %v", tc.from, tc.to, got, tc.want)
		}
	}
}

func TestLifecycle(t *testing.T) {
	if Active().IsDeleted() {
		t.Fatal("active lifecycle reported deleted")
	}
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	l := Deleted(at)
	got, ok := l.DeletedAt()
	if !ok || !got.Equal(at) {
		t.Fatalf("unexpected deleted at %v %v", got, ok)
	}
	if LifecycleFrom(nil).IsDeleted() || !LifecycleFrom(&at).IsDeleted() {
		t.Fatal("LifecycleFrom mismatch")
	}
}

func TestAvailabilityMatches(t *testing.T) {
	monday := 1
	weekly := Availability{DayOfWeek: &monday, IsRecurring: true}
	if !weekly.Matches(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("2026-03-02 is a Monday")
	}
	if weekly.Matches(time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("Tuesday must not match")
	}
	oneOff := Availability{SpecificDate: "2026-03-04"}
	if !oneOff.Matches(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)) {
		t.Fatal("specific date should match")
	}
	if oneOff.Key().String() != "date:2026-03-04" || weekly.Key().String() != "dow:1" {
		t.Fatalf("unexpected keys %s %s", oneOff.Key(), weekly.Key())
	}
}

func TestNewPage(t *testing.T) {
	p := NewPage[int](nil, PageRequest{Page: 0, Limit: 500}, 101)
	if p.Meta.Page != 1 || p.Meta.Limit != MaxPageLimit || p.Meta.TotalPages != 2 {
		t.Fatalf("unexpected meta %+v", p.Meta)
	}
	if p.Data == nil {
		t.Fatal("data must serialize as an empty array")
	}
	if (PageRequest{Page: 3, Limit: 10}).Offset() != 20 {
		t.Fatal("offset mismatch")
	}
}
