package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/hristiyandudev55/nurblifebg/internal/domain/reservation"
)

type Type string

const (
	HoldPlaced       Type = "reservation.hold_placed"
	PaymentInitiated Type = "reservation.payment_initiated"
	Confirmed        Type = "reservation.confirmed"
	Cancelled        Type = "reservation.cancelled"
	Expired          Type = "reservation.expired"
	PaymentFailed    Type = "reservation.payment_failed"
)

// ForStatus maps the status a reservation just entered to its event type.
func ForStatus(s reservation.Status) Type {
	switch s {
	case reservation.StatusTemporaryHold:
		return HoldPlaced
	case reservation.StatusPendingPayment:
		return PaymentInitiated
	case reservation.StatusConfirmed:
		return Confirmed
	case reservation.StatusExpired:
		return Expired
	case reservation.StatusPaymentFailed:
		return PaymentFailed
	default:
		return Cancelled
	}
}

type Event struct {
	ID            uuid.UUID          `json:"id"`
	Type          Type               `json:"type"`
	ReservationID uuid.UUID          `json:"reservation_id"`
	CarID         uuid.UUID          `json:"car_id"`
	Status        reservation.Status `json:"status"`
	WindowStart   time.Time          `json:"window_start"`
	WindowEnd     time.Time          `json:"window_end"`
	Reason        string             `json:"reason,omitempty"`
	OccurredAt    time.Time          `json:"occurred_at"`
}

func New(r reservation.Reservation, at time.Time) Event {
	return Event{
		ID:            uuid.New(),
		Type:          ForStatus(r.Status),
		ReservationID: r.ID,
		CarID:         r.CarID,
		Status:        r.Status,
		WindowStart:   r.Window.Start,
		WindowEnd:     r.Window.End,
		Reason:        r.CancellationReason,
		OccurredAt:    at.UTC(),
	}
}

type Config struct {
	Brokers []string
	Topic   string

	// BatchTimeout caps how long a message waits for a batch to fill.
	// Zero means 10ms rather than the kafka-go default of one second.
	BatchTimeout time.Duration

	// Async makes Publish return before the broker acknowledges.
	Async bool
}

const defaultBatchTimeout = 10 * time.Millisecond

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer writes lifecycle events to Kafka keyed by reservation id,
// so all events of one reservation land on the same partition in order.
type Producer struct {
	writer messageWriter
	topic  string
}

func NewProducer(cfg Config) *Producer {
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = defaultBatchTimeout
	}
	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		MaxAttempts:            5,
		BatchTimeout:           cfg.BatchTimeout,
		Async:                  cfg.Async,
		ReadTimeout:            10 * time.Second,
		WriteTimeout:           10 * time.Second,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &Producer{writer: w, topic: cfg.Topic}
}

func (p *Producer) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.ID, err)
	}
	msg := kafka.Message{
		Key:   []byte(e.ReservationID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.Type)},
		},
		Time: e.OccurredAt,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

func (p *Producer) Topic() string { return p.topic }

func (p *Producer) Close() error {
	return p.writer.Close()
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
