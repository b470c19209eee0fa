// Package events ships committed domain events to Kafka as JSON envelopes.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"stockflow/internal/service"
)

const envelopeVersion = 1

// Envelope wraps every event written to the topic.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher implements service.Publisher on top of a kafka-go writer.
// Writes are synchronous so the caller sees broker failures.
type Publisher struct {
	w        messageWriter
	producer string
	newID    func() string
}

func NewPublisher(brokers []string, topic, producer string) *Publisher {
	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 10 * time.Millisecond,
	}, producer)
}

func newPublisher(w messageWriter, producer string) *Publisher {
	return &Publisher{w: w, producer: producer, newID: uuid.NewString}
}

func (p *Publisher) Publish(ctx context.Context, evs ...service.Event) error {
	if len(evs) == 0 {
		return nil
	}
	msgs, err := p.BuildMessages(evs...)
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d kafka messages: %w", len(msgs), err)
	}
	return nil
}

// BuildMessages wraps each event in an Envelope keyed by the event's
// aggregate id, so events for one sale or product stay on one partition.
func (p *Publisher) BuildMessages(evs ...service.Event) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, len(evs))
	for _, ev := range evs {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", ev.Type, err)
		}
		env := Envelope{
			EventID:       p.newID(),
			EventType:     string(ev.Type),
			EventVersion:  envelopeVersion,
			OccurredAt:    ev.OccurredAt.UTC(),
			Producer:      p.producer,
			CorrelationID: ev.Key,
			Payload:       payload,
		}
		value, err := json.Marshal(env)
		if err != nil {
			return nil, fmt.Errorf("marshal %s envelope: %w", ev.Type, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(ev.Key),
			Value: value,
			Time:  env.OccurredAt,
			Headers: []kafka.Header{
				{Key: "x-event-type", Value: []byte(ev.Type)},
				{Key: "x-event-version", Value: []byte(strconv.Itoa(envelopeVersion))},
			},
		})
	}
	return msgs, nil
}

func (p *Publisher) Close() error {
	return p.w.Close()
}
