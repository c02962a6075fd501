package model

import (
	"strconv"
	"time"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Availability is a weekly recurring or one-off window in which a consultant can be booked.
// StartTime and EndTime are "HH:MM" in the consultant's time zone.
type Availability struct {
	ID           string    `json:"id"`
	ConsultantID string    `json:"consultantId"`
	DayOfWeek    *int      `json:"dayOfWeek,omitempty"`
	SpecificDate string    `json:"specificDate,omitempty"`
	StartTime    string    `json:"startTime"`
	EndTime      string    `json:"endTime"`
	IsRecurring  bool      `json:"isRecurring"`
	IsBlocked    bool      `json:"isBlocked"`
	BlockReason  string    `json:"blockReason,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	Lifecycle    Lifecycle `json:"-"`
}

// Key returns the day key the window belongs to.
func (a Availability) Key() DayKey {
	if a.SpecificDate != "" {
		return DayKey{Date: a.SpecificDate}
	}
	if a.DayOfWeek != nil {
		return DayKey{DayOfWeek: *a.DayOfWeek, Weekly: true}
	}
	return DayKey{}
}

// Matches reports whether the window applies on the given calendar date.
func (a Availability) Matches(date time.Time) bool {
	if a.SpecificDate != "" {
		return date.Format(DateLayout) == a.SpecificDate
	}
	return a.DayOfWeek != nil && int(date.Weekday()) == *a.DayOfWeek
}

// DayKey groups windows that may not overlap: either a weekday or a specific date.
type DayKey struct {
	Weekly    bool
	DayOfWeek int
	Date      string
}

func (k DayKey) Valid() bool {
	if k.Weekly {
		return k.DayOfWeek >= 0 && k.DayOfWeek <= 6 && k.Date == ""
	}
	_, err := time.Parse(DateLayout, k.Date)
	return err == nil
}

func (k DayKey) String() string {
	if k.Weekly {
		return "dow:" + strconv.Itoa(k.DayOfWeek)
	}
	return "date:" + k.Date
}
