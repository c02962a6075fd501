package interval

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Clock is a local time of day in minutes after midnight. 24:00 is allowed as an end bound.
type Clock int

const endOfDay Clock = 24 * 60

// ParseClock parses "HH:MM".
func ParseClock(s string) (Clock, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("time %q must be HH:MM", s)
	}
	c := Clock(h*60 + m)
	if h < 0 || m < 0 || m > 59 || c > endOfDay {
		return 0, fmt.Errorf("time %q out of range", s)
	}
	return c, nil
}

// ParseClockRange parses a start/end pair and checks start < end.
func ParseClockRange(start, end string) (Clock, Clock, error) {
	s, err := ParseClock(start)
	if err != nil {
		return 0, 0, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return 0, 0, err
	}
	if s >= e {
		return 0, 0, fmt.Errorf("start time %s must be before end time %s", start, end)
	}
	if s == endOfDay {
		return 0, 0, fmt.Errorf("start time %s out of range", start)
	}
	return s, e, nil
}

func (c Clock) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// On places the clock on the calendar date of day in loc.
func (c Clock) On(day time.Time, loc *time.Location) time.Time {
	y, m, d := day.Date()
	return time.Date(y, m, d, int(c)/60, int(c)%60, 0, 0, loc)
}
