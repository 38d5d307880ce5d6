package bookings

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"docassist/internal/booking"
)

// EventBookingConfirmed is the event type published for each confirmation.
const EventBookingConfirmed = "booking_confirmed"

// Event is the JSON payload published to Kafka.
type Event struct {
	Type      string            `json:"type"`
	Reference string            `json:"reference"`
	Kind      string            `json:"kind"`
	Fields    map[string]string `json:"fields"`
	CreatedAt time.Time         `json:"created_at"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaRecorder publishes a booking_confirmed event per confirmation, keyed
// by reference.
type KafkaRecorder struct {
	writer messageWriter
}

func NewKafkaRecorder(brokers []string, topic string) *KafkaRecorder {
	return &KafkaRecorder{writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}}
}

func (k *KafkaRecorder) Record(ctx context.Context, c *booking.Confirmation) error {
	data, err := json.Marshal(Event{
		Type:      EventBookingConfirmed,
		Reference: c.Reference,
		Kind:      string(c.Kind),
		Fields:    c.Values(),
		CreatedAt: c.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	msg := kafka.Message{Key: []byte(c.Reference), Value: data, Time: c.CreatedAt}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

func (k *KafkaRecorder) Close() error {
	return k.writer.Close()
}
