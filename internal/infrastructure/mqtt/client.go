package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// Client wraps paho.mqtt.golang for a single hub session.
//
// A Client never reconnects on its own. When the link drops, the
// WithOnDisconnect callback fires and the Client stays disconnected; the
// owner decides when to dial a fresh one.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
type Client struct {
	client pahomqtt.Client
	opts   Options

	// subscriptions tracks active subscriptions for introspection.
	subscriptions map[string]subscription
	subMu         sync.RWMutex

	// connected tracks current connection state.
	connected bool
	closed    bool
	connMu    sync.RWMutex

	// Set once by Option functions before the session starts.
	onConnect    func()
	onDisconnect func(err error)
	logger       Logger
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds subscription details.
type subscription struct {
	topic   string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked in separate goroutines by the paho library.
// They should not block for extended periods.
//
// Parameters:
//   - topic: The topic the message was received on (wildcards expanded)
//   - payload: The raw message payload (typically JSON)
//
// Returns:
//   - error: Logged but does not affect message acknowledgment
type MessageHandler func(topic string, payload []byte) error

// Connect establishes a session with the broker.
//
// Parameters:
//   - ctx: Cancels the connection attempt
//   - opts: Broker endpoint, credentials and timeouts
//   - extra: Callbacks and logger
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: ErrInvalidBrokerURL for a malformed endpoint, ErrConnectionFailed otherwise
func Connect(ctx context.Context, opts Options, extra ...Option) (*Client, error) {
	if err := ValidateBrokerURL(opts.BrokerURL); err != nil {
		return nil, err
	}

	c := &Client{
		opts:          opts,
		subscriptions: make(map[string]subscription),
	}
	for _, o := range extra {
		o(c)
	}

	pahoOpts := buildClientOptions(opts)
	pahoOpts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})
	pahoOpts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	c.client = pahomqtt.NewClient(pahoOpts)
	token := c.client.Connect()

	timeout := opts.connectTimeout()
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
	case <-timer.C:
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, timeout)
	case <-ctx.Done():
		c.client.Disconnect(0)
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, ctx.Err())
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// The OnConnectHandler runs asynchronously and may not have executed
	// yet, so mark the session connected here.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	return c, nil
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	if c.closed {
		c.connMu.Unlock()
		return
	}
	c.connected = true
	c.connMu.Unlock()

	if c.onConnect != nil {
		c.onConnect()
	}
}

// handleDisconnect is called when the connection is lost.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	wasClosed := c.closed
	c.connected = false
	c.connMu.Unlock()

	if wasClosed {
		return
	}
	if c.onDisconnect != nil {
		c.onDisconnect(err)
	}
}

// Close disconnects from the broker, waiting up to the configured
// disconnect timeout for in-flight work. It is safe to call more than once.
func (c *Client) Close() error {
	c.connMu.Lock()
	if c.closed || c.client == nil {
		c.closed = true
		c.connMu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	c.connMu.Unlock()

	c.client.Disconnect(c.opts.disconnectQuiesce())

	c.subMu.Lock()
	c.subscriptions = make(map[string]subscription)
	c.subMu.Unlock()

	return nil
}

// HealthCheck verifies the MQTT connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client != nil && c.client.IsConnected()
}

// ClientID returns the identifier presented to the broker.
func (c *Client) ClientID() string {
	return c.opts.ClientID
}

// wrapHandler wraps a MessageHandler with panic recovery and optional logging.
func (c *Client) wrapHandler(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(handler, msg.Topic(), msg.Payload())
	}
}

func (c *Client) dispatch(handler MessageHandler, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			if c.logger != nil {
				c.logger.Error("MQTT handler panic recovered",
					"topic", topic,
					"panic", r,
				)
			}
		}
	}()

	if err := handler(topic, payload); err != nil {
		if c.logger != nil {
			c.logger.Warn("MQTT handler returned error",
				"topic", topic,
				"error", err,
			)
		}
	}
}
