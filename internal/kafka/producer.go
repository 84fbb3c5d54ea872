package kafka

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"

	"github.com/psds-microservice/apihub-support/internal/model"
)

const (
	EventTicketCreated = "ticket.created"
	EventTicketClosed  = "ticket.closed"
	EventTicketUpdated = "ticket.updated"
)

// TicketEventProducer publishes ticket lifecycle events. Implementations never fail the caller.
type TicketEventProducer interface {
	ProduceTicketEvent(ctx context.Context, event string, t *model.Ticket)
}

// TicketEvent is the message value written to the topic.
type TicketEvent struct {
	Event     string     `json:"event"`
	TicketID  uint64     `json:"ticket_id"`
	Query     string     `json:"query"`
	Contact   string     `json:"contact"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

func NewTicketEvent(event string, t *model.Ticket) TicketEvent {
	return TicketEvent{
		Event:     event,
		TicketID:  t.ID,
		Query:     t.Query,
		Contact:   t.Contact,
		Status:    string(t.Status),
		CreatedAt: t.CreatedAt,
		ClosedAt:  t.ClosedAt,
	}
}

// Producer writes ticket events to a Kafka topic (best-effort).
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer returns a producer; with no brokers or no topic every call is a no-op.
func NewProducer(brokers []string, topic string) *Producer {
	if len(brokers) == 0 || topic == "" {
		return &Producer{}
	}
	return &Producer{
		topic: topic,
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			BatchTimeout: 10 * time.Millisecond,
		},
	}
}

func (p *Producer) Enabled() bool { return p.writer != nil }

func (p *Producer) ProduceTicketEvent(ctx context.Context, event string, t *model.Ticket) {
	if p.writer == nil || t == nil {
		return
	}
	body, err := json.Marshal(NewTicketEvent(event, t))
	if err != nil {
		log.Error().Err(err).Msg("kafka: marshal ticket event")
		return
	}
	msg := kafka.Message{
		Key:   []byte(strconv.FormatUint(t.ID, 10)),
		Value: body,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		log.Warn().Err(err).Str("event", event).Uint64("ticket_id", t.ID).Msg("kafka: write ticket event")
	}
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
