package model

import "time"

// TimeSlot is a concrete bookable unit of time. IsAvailable is true exactly when a new
// booking may claim it.
type TimeSlot struct {
	ID              string    `json:"id"`
	ConsultantID    string    `json:"consultantId"`
	ShowroomID      string    `json:"showroomId,omitempty"`
	AvailabilityID  string    `json:"availabilityId,omitempty"`
	StartAt         time.Time `json:"startAt"`
	EndAt           time.Time `json:"endAt"`
	DurationMinutes int       `json:"durationMinutes"`
	IsAvailable     bool      `json:"isAvailable"`
	IsBlocked       bool      `json:"isBlocked"`
	BlockReason     string    `json:"blockReason,omitempty"`
	MaxBookings     int       `json:"maxBookings"`
	CurrentBookings int       `json:"currentBookings"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
	Lifecycle       Lifecycle `json:"-"`
}

// Occupied reports whether an active booking holds the slot.
func (s TimeSlot) Occupied() bool { return s.CurrentBookings > 0 }

// Bookable reports whether the slot can be claimed at now.
func (s TimeSlot) Bookable(now time.Time) bool {
	return s.IsAvailable && !s.IsBlocked && !s.Lifecycle.IsDeleted() && s.StartAt.After(now)
}
