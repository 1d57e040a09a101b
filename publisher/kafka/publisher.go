// Package kafka streams ledger notifications to a Kafka topic.
//
// Each journaled transfer and approval becomes one JSON message keyed by
// token ID, so a partition sees a token's notifications in sequence order.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"github.com/xraph/tokenledger/event"
	"github.com/xraph/tokenledger/plugin"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "tokenledger.notifications"

var (
	_ plugin.Plugin     = (*Publisher)(nil)
	_ plugin.OnTransfer = (*Publisher)(nil)
	_ plugin.OnApproval = (*Publisher)(nil)
	_ plugin.OnShutdown = (*Publisher)(nil)
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Message is the JSON payload written for each notification.
type Message struct {
	TokenID   string          `json:"token_id"`
	Seq       uint64          `json:"seq"`
	Kind      event.Kind      `json:"kind"`
	Caller    string          `json:"caller"`
	Delegated bool            `json:"delegated,omitempty"`
	Transfer  *event.Transfer `json:"transfer,omitempty"`
	Approval  *event.Approval `json:"approval,omitempty"`
	At        int64           `json:"at"`
}

// Publisher is a plugin that writes notifications to Kafka.
type Publisher struct {
	writer Writer
	topic  string
	logger *slog.Logger
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) { p.logger = logger }
}

// WithWriter replaces the Kafka writer.
func WithWriter(w Writer) Option {
	return func(p *Publisher) { p.writer = w }
}

// NewPublisher creates a Publisher writing to topic on brokers.
func NewPublisher(brokers []string, topic string, opts ...Option) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	p := &Publisher{
		topic:  topic,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.writer == nil {
		p.writer = &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		}
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "kafka-publisher" }

// Topic returns the destination topic.
func (p *Publisher) Topic() string { return p.topic }

// OnTransfer implements plugin.OnTransfer.
func (p *Publisher) OnTransfer(ctx context.Context, rec *event.Record) error {
	return p.publish(ctx, rec)
}

// OnApproval implements plugin.OnApproval.
func (p *Publisher) OnApproval(ctx context.Context, rec *event.Record) error {
	return p.publish(ctx, rec)
}

// OnShutdown implements plugin.OnShutdown.
func (p *Publisher) OnShutdown(_ context.Context) error {
	return p.writer.Close()
}

func (p *Publisher) publish(ctx context.Context, rec *event.Record) error {
	msg, err := encode(rec)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("kafka publisher: write failed",
			"token_id", rec.TokenID.String(),
			"seq", rec.Seq,
			"error", err,
		)
		return fmt.Errorf("kafka publisher: write seq %d: %w", rec.Seq, err)
	}
	return nil
}

// encode builds the Kafka message for rec.
func encode(rec *event.Record) (kafka.Message, error) {
	data, err := json.Marshal(Message{
		TokenID:   rec.TokenID.String(),
		Seq:       rec.Seq,
		Kind:      rec.Kind,
		Caller:    rec.Caller.String(),
		Delegated: rec.Delegated,
		Transfer:  rec.Transfer,
		Approval:  rec.Approval,
		At:        rec.OccurredAt.UnixMilli(),
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka publisher: encode seq %d: %w", rec.Seq, err)
	}
	return kafka.Message{
		Key:   []byte(rec.TokenID.String()),
		Value: data,
		Headers: []kafka.Header{
			{Key: "kind", Value: []byte(rec.Kind)},
		},
		Time: rec.OccurredAt,
	}, nil
}
