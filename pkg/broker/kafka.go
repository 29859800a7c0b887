package broker

import (
	"context"
	"fmt"
	"log/slog"

	kafkago "github.com/segmentio/kafka-go"
)

// PropPartitionKey routes messages carrying the same value to the same
// partition, keeping one field's notifications ordered. It becomes the Kafka
// message key, not a header.
const PropPartitionKey = "partition_key"

// KafkaPublisher produces messages with native headers. The destination topic
// is chosen per message, so one writer serves every queue.
type KafkaPublisher struct {
	writer *kafkago.Writer
	log    *slog.Logger
}

func NewKafkaPublisher(brokers []string, log *slog.Logger) *KafkaPublisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &KafkaPublisher{writer: w, log: log}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, payload []byte, props map[string]string) error {
	if err := p.writer.WriteMessages(ctx, buildKafkaMessage(topic, payload, props)); err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}
	p.log.Debug("published", "topic", topic, "bytes", len(payload))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// buildKafkaMessage maps properties onto native headers, lifting the
// partition key out into the message key.
func buildKafkaMessage(topic string, payload []byte, props map[string]string) kafkago.Message {
	msg := kafkago.Message{Topic: topic, Value: payload}
	for k, v := range props {
		if k == PropPartitionKey {
			msg.Key = []byte(v)
			continue
		}
		msg.Headers = append(msg.Headers, kafkago.Header{Key: k, Value: []byte(v)})
	}
	return msg
}
