package model

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Terminal reports whether no transition leaves the status.
func (s BookingStatus) Terminal() bool { return s == BookingCancelled }

// CanTransition reports whether from -> to is a legal booking transition.
func CanTransition(from, to BookingStatus) bool {
	switch from {
	case BookingPending:
		return to == BookingConfirmed || to == BookingCancelled
	case BookingConfirmed:
		return to == BookingCancelled
	default:
		return false
	}
}

type Customer struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

// Booking is a customer's claim on one slot. A reschedule moves SlotID in place.
type Booking struct {
	ID                 string        `json:"id"`
	CustomerID         string        `json:"customerId"`
	Customer           Customer      `json:"customer"`
	AppointmentType    string        `json:"appointmentType,omitempty"`
	ConsultantID       string        `json:"consultantId"`
	SlotID             string        `json:"slotId"`
	Status             BookingStatus `json:"status"`
	CancellationReason string        `json:"cancellationReason,omitempty"`
	ConfirmationSentAt *time.Time    `json:"confirmationSentAt,omitempty"`
	ReminderSentAt     *time.Time    `json:"reminderSentAt,omitempty"`
	CreatedAt          time.Time     `json:"createdAt"`
	UpdatedAt          time.Time     `json:"updatedAt"`
	Lifecycle          Lifecycle     `json:"-"`
}

type Cancellation struct {
	ID                string    `json:"id"`
	BookingID         string    `json:"bookingId"`
	Reason            string    `json:"reason"`
	CancelledAt       time.Time `json:"cancelledAt"`
	CancelledByUserID string    `json:"cancelledByUserId"`
}

type RescheduleStatus string

const RescheduleCompleted RescheduleStatus = "COMPLETED"

type Reschedule struct {
	ID            string           `json:"id"`
	BookingID     string           `json:"bookingId"`
	OldTimeSlotID string           `json:"oldTimeSlotId"`
	NewTimeSlotID string           `json:"newTimeSlotId"`
	Reason        string           `json:"reason"`
	Status        RescheduleStatus `json:"status"`
	RequestedBy   string           `json:"requestedBy"`
	CreatedAt     time.Time        `json:"createdAt"`
}
