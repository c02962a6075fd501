package model

import "time"

type Channel string

const (
	ChannelEmail Channel = "EMAIL"
	ChannelSMS   Channel = "SMS"
)

func (c Channel) Valid() bool { return c == ChannelEmail || c == ChannelSMS }

type ReminderStatus string

const (
	ReminderPending   ReminderStatus = "PENDING"
	ReminderSent      ReminderStatus = "SENT"
	ReminderCancelled ReminderStatus = "CANCELLED"
	ReminderFailed    ReminderStatus = "FAILED"
)

type Reminder struct {
	ID            string         `json:"id"`
	BookingID     string         `json:"bookingId"`
	CustomerID    string         `json:"customerId"`
	Channel       Channel        `json:"channel"`
	Status        ReminderStatus `json:"status"`
	ScheduledAt   time.Time      `json:"scheduledAt"`
	SentAt        *time.Time     `json:"sentAt,omitempty"`
	FailedAt      *time.Time     `json:"failedAt,omitempty"`
	FailureReason string         `json:"failureReason,omitempty"`
	RetryCount    int            `json:"retryCount"`
	Traceparent   string         `json:"-"`
	Tracestate    string         `json:"-"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}
