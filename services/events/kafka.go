package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/trezcool/tutordesk/core"
)

// batchTimeout bounds how long a synchronous write waits for its batch to fill.
const batchTimeout = 10 * time.Millisecond

type kafkaPublisher struct {
	writer *kafka.Writer
}

var _ core.EventPublisher = (*kafkaPublisher)(nil)

// NewKafkaPublisher publishes events as JSON messages keyed by Event.Key on the configured topic.
func NewKafkaPublisher(conf *core.Config) core.EventPublisher {
	return &kafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(conf.Kafka.Brokers...),
			Topic:        conf.Kafka.Topic,
			Balancer:     &kafka.Hash{}, // same student, same partition
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: batchTimeout,
			WriteTimeout: 10 * time.Second,
		},
	}
}

func (p *kafkaPublisher) Publish(ctx context.Context, events ...core.Event) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		value, err := json.Marshal(evt)
		if err != nil {
			return errors.Wrapf(err, "encoding %s event", evt.Type)
		}
		msgs = append(msgs, kafka.Message{
			Key:     []byte(evt.Key),
			Value:   value,
			Time:    evt.OccurredAt,
			Headers: []kafka.Header{{Key: "type", Value: []byte(evt.Type)}},
		})
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return errors.Wrap(err, "writing kafka messages")
	}
	return nil
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
