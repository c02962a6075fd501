package notify

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

const whenLayout = "Mon 2 Jan 2006 15:04 MST"

// ConfirmationMessage is sent once a booking is created. Email is preferred over SMS.
func ConfirmationMessage(b model.Booking, slot model.TimeSlot, loc *time.Location) (Message, bool) {
	msg := Message{
		Subject:   "Your appointment request is received",
		Body:      fmt.Sprintf("Hi %s, your appointment on %s is booked and awaiting confirmation. Reference: %s.", b.Customer.Name, slot.StartAt.In(loc).Format(whenLayout), b.ID),
		BookingID: b.ID,
	}
	switch {
	case b.Customer.Email != "":
		msg.Channel, msg.To = model.ChannelEmail, b.Customer.Email
	case b.Customer.Phone != "":
		msg.Channel, msg.To = model.ChannelSMS, b.Customer.Phone
	default:
		return Message{}, false
	}
	return msg, true
}

// ReminderMessage renders a reminder for the booking's current slot.
func ReminderMessage(r model.Reminder, b model.Booking, slot model.TimeSlot, loc *time.Location) Message {
	to := b.Customer.Email
	if r.Channel == model.ChannelSMS {
		to = b.Customer.Phone
	}
	return Message{
		Channel:   r.Channel,
		To:        to,
		Subject:   "Appointment reminder",
		Body:      fmt.Sprintf("Hi %s, this is a reminder of your appointment on %s. Reference: %s.", b.Customer.Name, slot.StartAt.In(loc).Format(whenLayout), b.ID),
		BookingID: b.ID,
	}
}
