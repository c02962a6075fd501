// Package notify delivers customer messages and publishes booking lifecycle events.
// Delivery is best-effort: callers log failures and never roll back on them.
package notify

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

// Message is one outbound customer notification.
type Message struct {
	Channel   model.Channel
	To        string
	Subject   string
	Body      string
	BookingID string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Router dispatches a message to the sender registered for its channel.
type Router struct {
	Email Sender
	SMS   Sender
}

func (r Router) Send(ctx context.Context, msg Message) error {
	var s Sender
	switch msg.Channel {
	case model.ChannelEmail:
		s = r.Email
	case model.ChannelSMS:
		s = r.SMS
	}
	if s == nil {
		return fmt.Errorf("no sender configured for channel %s", msg.Channel)
	}
	if msg.To == "" {
		return fmt.Errorf("booking %s has no %s recipient", msg.BookingID, msg.Channel)
	}
	return s.Send(ctx, msg)
}

// LogSender records messages in the log instead of delivering them.
type LogSender struct {
	Logger *slog.Logger
}

func (s LogSender) Send(ctx context.Context, msg Message) error {
	s.Logger.InfoContext(ctx, "notification (log only)",
		"channel", msg.Channel, "to", msg.To, "subject", msg.Subject, "booking_id", msg.BookingID)
	return nil
}
