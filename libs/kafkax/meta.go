package kafkax

import "github.com/segmentio/kafka-go"

const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// MetaHeaders builds the event_id and event_type headers every published message carries.
func MetaHeaders(eventID, eventType string) []kafka.Header {
	return []kafka.Header{
		{Key: HeaderEventID, Value: []byte(eventID)},
		{Key: HeaderEventType, Value: []byte(eventType)},
	}
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
