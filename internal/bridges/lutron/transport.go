package lutron

import (
	"context"
	"errors"
	"fmt"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/config"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/mqtt"
)

// Endpoint identifies one broker session.
type Endpoint struct {
	URL      string
	ClientID string
}

// healthChecker is implemented by transports that can verify their link.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

var errNoSubscriptions = errors.New("no active subscriptions")

// MessageHandler receives an inbound payload. Returned errors are logged
// by the transport.
type MessageHandler func(topic string, payload []byte) error

// Transport is a single connected broker session.
type Transport interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler MessageHandler) error
	Unsubscribe(topic string) error
	Close() error
	IsConnected() bool
}

// Dialer opens broker sessions. onLost is called at most once, when an
// established session drops without Close having been called.
type Dialer interface {
	Dial(ctx context.Context, ep Endpoint, onLost func(err error)) (Transport, error)
}

// DialerFunc adapts a function to Dialer.
type DialerFunc func(ctx context.Context, ep Endpoint, onLost func(err error)) (Transport, error)

// Dial calls f.
func (f DialerFunc) Dial(ctx context.Context, ep Endpoint, onLost func(err error)) (Transport, error) {
	return f(ctx, ep, onLost)
}

// MQTTDialer dials the hub broker with the paho-backed client.
type MQTTDialer struct {
	hub    config.HubConfig
	logger mqtt.Logger
}

// NewMQTTDialer creates a Dialer using the hub's credentials and timeouts.
// logger may be nil.
func NewMQTTDialer(hub config.HubConfig, logger mqtt.Logger) *MQTTDialer {
	return &MQTTDialer{hub: hub, logger: logger}
}

// Dial connects to ep.URL.
//
// Returns:
//   - Transport: connected session
//   - error: wraps ErrConfiguration for an unusable URL, ErrTransportConnect otherwise
func (d *MQTTDialer) Dial(ctx context.Context, ep Endpoint, onLost func(err error)) (Transport, error) {
	opts := mqtt.OptionsFromConfig(d.hub, ep.URL, ep.ClientID)

	extra := []mqtt.Option{mqtt.WithOnDisconnect(onLost)}
	if d.logger != nil {
		extra = append(extra, mqtt.WithLogger(d.logger))
	}

	client, err := mqtt.Connect(ctx, opts, extra...)
	if err != nil {
		if errors.Is(err, mqtt.ErrInvalidBrokerURL) {
			return nil, fmt.Errorf("%w: %w", ErrConfiguration, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrTransportConnect, err)
	}
	return &mqttTransport{client: client, qos: opts.QoS}, nil
}

type mqttTransport struct {
	client *mqtt.Client
	qos    byte
}

func (t *mqttTransport) Publish(topic string, payload []byte) error {
	return t.client.PublishCommand(topic, payload)
}

func (t *mqttTransport) Subscribe(topic string, handler MessageHandler) error {
	return t.client.Subscribe(topic, t.qos, mqtt.MessageHandler(handler))
}

func (t *mqttTransport) Unsubscribe(topic string) error {
	return t.client.Unsubscribe(topic)
}

func (t *mqttTransport) Close() error {
	return t.client.Close()
}

func (t *mqttTransport) IsConnected() bool {
	return t.client.IsConnected()
}

// HealthCheck fails when the broker link is down or no subscription is held.
func (t *mqttTransport) HealthCheck(ctx context.Context) error {
	if err := t.client.HealthCheck(ctx); err != nil {
		return err
	}
	if t.client.SubscriptionCount() == 0 {
		return errNoSubscriptions
	}
	return nil
}
