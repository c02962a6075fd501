package interval

import (
	"testing"
	"time"
)

func TestOverlapsExhaustive(t *testing.T) {
	// Every interval with integer bounds in [0, 6) against every other.
	for s1 := 0; s1 < 6; s1++ {
		for e1 := s1 + 1; e1 <= 6; e1++ {
			for s2 := 0; s2 < 6; s2++ {
				for e2 := s2 + 1; e2 <= 6; e2++ {
					got := Overlaps(s1, e1, s2, e2)
					if got != Overlaps(s2, e2, s1, e1) {
						t.Fatalf("not symmetric for [%d,%d) [%d,%d)", s1, e1, s2, e2)
					}
					want := !(e1 <= s2 || e2 <= s1)
					if got != want {
						t.Fatalf("[%d,%d) vs [%d,%d): got %v want %v", s1, e1, s2, e2, got, want)
					}
					// Agreement with a point-wise sweep of the shared integer axis.
					shared := false
					for p := 0; p < 6; p++ {
						if p >= s1 && p < e1 && p >= s2 && p < e2 {
							shared = true
						}
					}
					if got != shared {
						t.Fatalf("[%d,%d) vs [%d,%d): predicate %v, sweep %v", s1, e1, s2, e2, got, shared)
					}
				}
			}
		}
	}
}

func TestOverlapsCases(t *testing.T) {
	cases := []struct {
		name           string
		s1, e1, s2, e2 string
		want           bool
	}{
		{"touching end to start", "09:00", "10:00", "10:00", "11:00", false},
		{"touching start to end", "10:00", "11:00", "09:00", "10:00", false},
		{"starts during", "09:00", "10:00", "09:30", "10:30", true},
		{"ends during", "09:30", "10:30", "09:00", "10:00", true},
		{"contains", "09:00", "12:00", "10:00", "11:00", true},
		{"contained", "10:00", "11:00", "09:00", "12:00", true},
		{"identical", "09:00", "10:00", "09:00", "10:00", true},
		{"disjoint", "09:00", "10:00", "13:00", "14:00", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.s1, tc.e1, tc.s2, tc.e2); got != tc.want {
				t.Fatalf("got %v want %v", got, tc.want)
			}
		})
	}
}

func TestRangeHelpers(t *testing.T) {
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	r := func(startMin, endMin int) Range {
		return Range{Start: base.Add(time.Duration(startMin) * time.Minute), End: base.Add(time.Duration(endMin) * time.Minute)}
	}
	if FirstOverlap(r(0, 30), []Range{r(30, 60), r(15, 45)}) != 1 {
		t.Fatal("expected second range to overlap")
	}
	if FirstOverlap(r(0, 30), []Range{r(30, 60)}) != -1 {
		t.Fatal("touching ranges must not overlap")
	}
	i, j := FirstOverlappingPair([]Range{r(0, 30), r(30, 60), r(45, 90)})
	if i != 1 || j != 2 {
		t.Fatalf("expected pair (1,2), got (%d,%d)", i, j)
	}
	i, j = FirstOverlappingPair([]Range{r(0, 30), r(30, 60)})
	if i != -1 || j != -1 {
		t.Fatal("expected no pair")
	}
	if r(30, 30).Valid() || !r(0, 1).Valid() {
		t.Fatal("Valid mismatch")
	}
}

func TestSlices(t *testing.T) {
	day := time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC)
	window := Range{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)}
	busy := []Range{{Start: day.Add(9*time.Hour + 15*time.Minute), End: day.Add(9*time.Hour + 45*time.Minute)}}

	got := Slices(window, 15*time.Minute, 15*time.Minute, busy, day)
	if len(got) != 2 {
		t.Fatalf("expected 2 slices, got %d", len(got))
	}
	if !got[0].Start.Equal(day.Add(9*time.Hour)) || !got[1].Start.Equal(day.Add(9*time.Hour+45*time.Minute)) {
		t.Fatalf("unexpected slices %v", got)
	}

	now := day.Add(9*time.Hour + 31*time.Minute)
	got = Slices(window, 15*time.Minute, 15*time.Minute, nil, now)
	if len(got) != 1 || !got[0].Start.Equal(day.Add(9*time.Hour+45*time.Minute)) {
		t.Fatalf("expected only 09:45, got %v", got)
	}

	if Slices(window, 0, time.Minute, nil, day) != nil {
		t.Fatal("zero duration yields nothing")
	}
	if got := Slices(window, 45*time.Minute, 45*time.Minute, nil, day); len(got) != 1 {
		t.Fatalf("trailing partial slice must be dropped, got %d", len(got))
	}
}

func TestParseClock(t *testing.T) {
	ok := map[string]Clock{"00:00": 0, "09:30": 570, "23:59": 1439, "24:00": 1440}
	for in, want := range ok {
		got, err := ParseClock(in)
		if err != nil || got != want {
			t.Fatalf("%s: got %d, %v", in, got, err)
		}
		if got.String() != in {
			t.Fatalf("round trip %s -> %s", in, got)
		}
	}
	for _, bad := range []string{"", "9:30", "09:60", "24:01", "ab:cd", "0930"} {
		if _, err := ParseClock(bad); err == nil {
			t.Fatalf("%q should fail", bad)
		}
	}
	if _, _, err := ParseClockRange("10:00", "10:00"); err == nil {
		t.Fatal("empty range should fail")
	}
	if _, _, err := ParseClockRange("17:00", "09:00"); err == nil {
		t.Fatal("inverted range should fail")
	}
}

func TestClockOnUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Dhaka")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	c, _ := ParseClock("09:00")
	got := c.On(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), loc)
	if got.UTC().Hour() != 3 {
		t.Fatalf("09:00 Dhaka should be 03:00 UTC, got %s", got.UTC())
	}
	end, _ := ParseClock("24:00")
	if got := end.On(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), time.UTC); got.Day() != 3 {
		t.Fatalf("24:00 should roll to next day, got %s", got)
	}
}
