// README: Publishes booking lifecycle notifications to Kafka for the notification service.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"shuttle/internal/modules/booking"
)

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type KafkaPublisher struct {
	writer MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// Message is the wire shape of a booking notification.
type Message struct {
	Type        string    `json:"type"`
	BookingID   string    `json:"booking_id"`
	StudentID   string    `json:"student_id"`
	RouteID     string    `json:"route_id"`
	From        string    `json:"from_status"`
	To          string    `json:"to_status"`
	At          time.Time `json:"at"`
	NotifyEmail string    `json:"notify_email,omitempty"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, n booking.Notification) error {
	body, err := json.Marshal(Message{
		Type:        n.Type,
		BookingID:   string(n.BookingID),
		StudentID:   string(n.StudentID),
		RouteID:     string(n.RouteID),
		From:        string(n.From),
		To:          string(n.To),
		At:          n.At.UTC(),
		NotifyEmail: n.NotifyEmail,
	})
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	// Keyed by booking so one booking's events stay ordered within a partition.
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.BookingID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(n.Type)},
		},
	})
}

// Discard drops notifications; used when no brokers are configured.
type Discard struct{}

func (Discard) Publish(context.Context, booking.Notification) error { return nil }
