package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/slotbook/libs/kafkax"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/slotbook/services/booking-service/internal/model"
)

type EventType string

const (
	BookingCreated     EventType = "booking.created"
	BookingConfirmed   EventType = "booking.confirmed"
	BookingCancelled   EventType = "booking.cancelled"
	BookingRescheduled EventType = "booking.rescheduled"
)

// Event is the payload published after a booking transaction commits.
type Event struct {
	Type         EventType           `json:"type"`
	BookingID    string              `json:"booking_id"`
	CustomerID   string              `json:"customer_id"`
	ConsultantID string              `json:"consultant_id"`
	SlotID       string              `json:"slot_id"`
	OldSlotID    string              `json:"old_slot_id,omitempty"`
	Status       model.BookingStatus `json:"status"`
	StartAt      time.Time           `json:"start_at"`
	Reason       string              `json:"reason,omitempty"`
	OccurredAt   time.Time           `json:"occurred_at"`
}

// NewEvent fills an event from the booking and its current slot.
func NewEvent(t EventType, b model.Booking, slot model.TimeSlot, at time.Time) Event {
	return Event{
		Type:         t,
		BookingID:    b.ID,
		CustomerID:   b.CustomerID,
		ConsultantID: b.ConsultantID,
		SlotID:       b.SlotID,
		Status:       b.Status,
		StartAt:      slot.StartAt,
		OccurredAt:   at.UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes events to "<prefix>.<type>.v1" keyed by booking id, so the events
// of one booking stay ordered within a partition.
type KafkaPublisher struct {
	w      messageWriter
	prefix string
}

func NewKafkaPublisher(w messageWriter, prefix string) *KafkaPublisher {
	prefix = strings.Trim(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = "slotbook"
	}
	return &KafkaPublisher{w: w, prefix: prefix}
}

func (p *KafkaPublisher) Topic(t EventType) string {
	return p.prefix + "." + string(t) + ".v1"
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return err
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Topic:   p.Topic(e.Type),
		Key:     []byte(e.BookingID),
		Value:   payload,
		Headers: kafkax.InjectTraceHeaders(ctx, kafkax.MetaHeaders(uuid.NewString(), string(e.Type))),
	})
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.NotificationsPublished.WithLabelValues(string(e.Type), result).Inc()
	return err
}

// LogPublisher logs events when no broker is configured.
type LogPublisher struct {
	Logger *slog.Logger
}

func (p LogPublisher) Publish(ctx context.Context, e Event) error {
	p.Logger.InfoContext(ctx, "booking event", "type", e.Type, "booking_id", e.BookingID, "slot_id", e.SlotID)
	return nil
}
