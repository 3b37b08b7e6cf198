package events

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaSink writes every published event to a Kafka topic, keyed by
// ticket ID, so external notifiers can consume the stream.
type KafkaSink struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaSink builds the sink over the given brokers and topic.
func NewKafkaSink(brokers []string, topic string, logger *zap.Logger) *KafkaSink {
	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

// Write sends one event. Failures are logged, not propagated: event
// delivery is best-effort and must never fail the originating operation.
func (s *KafkaSink) Write(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal event for kafka", zap.Error(err), zap.String("event_id", event.ID))
		return nil
	}
	msg := kafka.Message{
		Key:   []byte(event.TicketID),
		Value: data,
	}
	if err := s.writer.WriteMessages(ctx, msg); err != nil {
		s.logger.Warn("write event to kafka",
			zap.Error(err),
			zap.String("event_id", event.ID),
			zap.String("event_type", string(event.Type)))
	}
	return nil
}

// Close closes the underlying writer.
func (s *KafkaSink) Close() error {
	return s.writer.Close()
}

// sinkDispatcher tees every event to a sink before delegating to the
// inner dispatcher.
type sinkDispatcher struct {
	inner Dispatcher
	sink  *KafkaSink
}

// WithKafkaSink decorates a dispatcher so every publish also reaches Kafka.
func WithKafkaSink(inner Dispatcher, sink *KafkaSink) Dispatcher {
	return &sinkDispatcher{inner: inner, sink: sink}
}

func (d *sinkDispatcher) Publish(ctx context.Context, event Event) error {
	_ = d.sink.Write(ctx, event)
	return d.inner.Publish(ctx, event)
}

func (d *sinkDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}
