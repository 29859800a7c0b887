// Package broker abstracts the message transports alerts leave through. The
// transport set is closed: publishers are registered under a known name at
// startup and resolved by that name, so a misconfigured destination fails
// when the service boots instead of on the first alert.
package broker

import (
	"context"
	"errors"
	"fmt"
)

// Transport names one of the supported broker technologies.
type Transport string

const (
	TransportMQTT  Transport = "mqtt"
	TransportKafka Transport = "kafka"
)

// ErrUnknownTransport marks a transport name outside the closed set or one
// nothing was registered under.
var ErrUnknownTransport = errors.New("unknown transport")

func (t Transport) known() bool {
	return t == TransportMQTT || t == TransportKafka
}

// Message is one inbound delivery, transport-neutral.
type Message struct {
	Payload    []byte
	Properties map[string]string
}

// IPublisher publishes one payload with transport message properties to a
// destination (an MQTT topic or a Kafka topic).
type IPublisher interface {
	Publish(ctx context.Context, destination string, payload []byte, props map[string]string) error
	Close() error
}

// IConsumer delivers inbound messages to a handler. Start blocks until the
// context is cancelled.
type IConsumer interface {
	SetHandler(handler func(topic string, msg Message) error)
	Start(ctx context.Context) error
	Close() error
}

// Registry resolves publishers by transport name.
type Registry struct {
	publishers map[Transport]IPublisher
}

// NewRegistry validates every transport name at construction.
func NewRegistry(publishers map[Transport]IPublisher) (*Registry, error) {
	reg := make(map[Transport]IPublisher, len(publishers))
	for name, pub := range publishers {
		if !name.known() {
			return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, string(name))
		}
		if pub == nil {
			return nil, fmt.Errorf("transport %q registered without a publisher", string(name))
		}
		reg[name] = pub
	}
	return &Registry{publishers: reg}, nil
}

// Get returns the publisher registered under the transport name.
func (r *Registry) Get(t Transport) (IPublisher, error) {
	pub, ok := r.publishers[t]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTransport, string(t))
	}
	return pub, nil
}

// CloseAll closes every registered publisher and reports the first failure.
func (r *Registry) CloseAll() error {
	var first error
	for _, pub := range r.publishers {
		if err := pub.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
