package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTConfig describes the broker connection.
type MQTTConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	ClientID string
}

// NewMQTTConn dials the broker with exponential backoff and disconnects when
// the context ends. The client is shared between publishers and consumers.
func NewMQTTConn(ctx context.Context, cfg MQTTConfig, log *slog.Logger) (mqtt.Client, error) {
	addr := fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)

	opts := mqtt.NewClientOptions()
	opts.AddBroker(addr)
	opts.SetUsername(cfg.User)
	opts.SetPassword(cfg.Password)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 10 * time.Second
	const maxRetries = 5

	var client mqtt.Client
	err := backoff.Retry(func() error {
		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			log.Warn("mqtt connect failed, retrying", "broker", addr, "error", token.Error())
			return token.Error()
		}
		return nil
	}, backoff.WithMaxRetries(bo, maxRetries-1))
	if err != nil {
		return nil, fmt.Errorf("connect to mqtt broker %s: %w", addr, err)
	}
	log.Info("connected to mqtt broker", "broker", addr)

	go func() {
		<-ctx.Done()
		client.Disconnect(250)
		log.Info("mqtt connection closed")
	}()

	return client, nil
}

// envelope carries message properties over MQTT 3.1.1, which has no native
// user properties. The payload must be valid JSON.
type envelope struct {
	Properties map[string]string `json:"properties,omitempty"`
	Payload    json.RawMessage   `json:"payload"`
}

func encodeEnvelope(payload []byte, props map[string]string) ([]byte, error) {
	body, err := json.Marshal(envelope{Properties: props, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("encode mqtt envelope: %w", err)
	}
	return body, nil
}

// decodeMQTT unwraps an envelope. Bodies produced outside this module arrive
// without one and pass through as bare payloads.
func decodeMQTT(body []byte) Message {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil || len(env.Payload) == 0 {
		return Message{Payload: body}
	}
	return Message{Payload: env.Payload, Properties: env.Properties}
}

// qosFor picks the delivery guarantee by topic family: measurements and
// alerts must survive reconnects, everything else is fire-and-forget.
func qosFor(topic string) byte {
	t := strings.TrimSpace(topic)
	if strings.HasPrefix(t, "measurement/") || strings.HasPrefix(t, "alert/") {
		return 1
	}
	return 0
}

// MQTTPublisher publishes through a shared client, wrapping each payload in
// the property envelope.
type MQTTPublisher struct {
	client mqtt.Client
	log    *slog.Logger
}

func NewMQTTPublisher(client mqtt.Client, log *slog.Logger) *MQTTPublisher {
	return &MQTTPublisher{client: client, log: log}
}

func (p *MQTTPublisher) Publish(ctx context.Context, topic string, payload []byte, props map[string]string) error {
	body, err := encodeEnvelope(payload, props)
	if err != nil {
		return err
	}

	token := p.client.Publish(topic, qosFor(topic), false, body)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
	case <-ctx.Done():
		return ctx.Err()
	}
	p.log.Debug("published", "topic", topic, "bytes", len(body))
	return nil
}

// Close is a no-op: the underlying client is shared and owned by the context
// given to NewMQTTConn.
func (p *MQTTPublisher) Close() error { return nil }

// MQTTConsumer subscribes to one topic filter and hands every delivery to the
// handler. Handler errors are logged, not redelivered; at-least-once safety
// comes from QoS 1 plus the ingest-side dedup.
type MQTTConsumer struct {
	client  mqtt.Client
	topic   string
	handler func(topic string, msg Message) error
	log     *slog.Logger
}

func NewMQTTConsumer(client mqtt.Client, topic string, log *slog.Logger) *MQTTConsumer {
	return &MQTTConsumer{client: client, topic: topic, log: log}
}

func (c *MQTTConsumer) SetHandler(handler func(topic string, msg Message) error) {
	c.handler = handler
}

// Start subscribes and blocks until the context ends, then unsubscribes.
func (c *MQTTConsumer) Start(ctx context.Context) error {
	token := c.client.Subscribe(c.topic, qosFor(c.topic), func(_ mqtt.Client, m mqtt.Message) {
		if c.handler == nil {
			c.log.Warn("message dropped, no handler set", "topic", m.Topic())
			return
		}
		if err := c.handler(m.Topic(), decodeMQTT(m.Payload())); err != nil {
			c.log.Error("message handling failed", "topic", m.Topic(), "error", err)
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, token.Error())
	}
	c.log.Info("subscribed", "topic", c.topic)

	<-ctx.Done()

	unsub := c.client.Unsubscribe(c.topic)
	unsub.Wait()
	return nil
}

// Close drops the subscription. Safe after Start has already unsubscribed;
// the shared client stays connected, its lifetime belongs to the context
// given to NewMQTTConn.
func (c *MQTTConsumer) Close() error {
	token := c.client.Unsubscribe(c.topic)
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("unsubscribe from %s: %w", c.topic, token.Error())
	}
	return nil
}
