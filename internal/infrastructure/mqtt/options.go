package mqtt

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"strings"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/config"
)

// Connection constants.
const (
	// defaultConnectTimeout is used when Options.ConnectTimeout is zero.
	defaultConnectTimeout = 10 * time.Second

	// defaultPublishTimeout is the maximum time to wait for publish or
	// subscribe acknowledgment.
	defaultPublishTimeout = 5 * time.Second

	// defaultDisconnectQuiesce is used when Options.DisconnectTimeout is zero.
	defaultDisconnectQuiesce = 3 * time.Second

	// defaultKeepAlive is the keepalive interval for the connection.
	defaultKeepAlive = 30 * time.Second

	// maxQoS is the maximum QoS level supported.
	maxQoS = 2

	// tlsMinVersion is the minimum TLS version for secure connections.
	tlsMinVersion = tls.VersionTLS12
)

// secureSchemes are broker URL schemes that imply TLS.
var secureSchemes = map[string]bool{
	"ssl":   true,
	"tls":   true,
	"mqtts": true,
	"wss":   true,
}

// plainSchemes are accepted broker URL schemes without TLS.
var plainSchemes = map[string]bool{
	"tcp":  true,
	"mqtt": true,
	"ws":   true,
}

// Options describes a single broker session.
type Options struct {
	BrokerURL string
	ClientID  string
	Username  string
	Password  string
	QoS       byte

	ConnectTimeout    time.Duration
	DisconnectTimeout time.Duration
	KeepAlive         time.Duration
}

// OptionsFromConfig builds session options from hub configuration.
//
// brokerURL overrides cfg.URL when non-empty (a discovered endpoint).
// The hub token is presented as the MQTT password.
func OptionsFromConfig(cfg config.HubConfig, brokerURL, clientID string) Options {
	if brokerURL == "" {
		brokerURL = cfg.URL
	}
	return Options{
		BrokerURL:         brokerURL,
		ClientID:          clientID,
		Username:          cfg.Username,
		Password:          cfg.Token,
		QoS:               byte(cfg.QoS),
		ConnectTimeout:    cfg.ConnectTimeoutDuration(),
		DisconnectTimeout: cfg.DisconnectTimeoutDuration(),
	}
}

// ValidateBrokerURL checks that raw is a usable broker endpoint.
//
// Returns:
//   - error: wraps ErrInvalidBrokerURL if the scheme or host is missing or unsupported
func ValidateBrokerURL(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidBrokerURL)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBrokerURL, err)
	}
	scheme := strings.ToLower(u.Scheme)
	if !secureSchemes[scheme] && !plainSchemes[scheme] {
		return fmt.Errorf("%w: unsupported scheme %q", ErrInvalidBrokerURL, u.Scheme)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("%w: missing host", ErrInvalidBrokerURL)
	}
	return nil
}

func (o Options) connectTimeout() time.Duration {
	if o.ConnectTimeout <= 0 {
		return defaultConnectTimeout
	}
	return o.ConnectTimeout
}

func (o Options) disconnectQuiesce() uint {
	d := o.DisconnectTimeout
	if d <= 0 {
		d = defaultDisconnectQuiesce
	}
	return uint(d.Milliseconds())
}

// buildClientOptions creates paho MQTT options for one session.
//
// This configures:
//   - Broker URL and client ID
//   - Authentication credentials (if provided)
//   - Clean session mode
//   - TLS for secure schemes
//
// Reconnection is disabled: the caller owns the retry policy.
func buildClientOptions(o Options) *pahomqtt.ClientOptions {
	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(o.BrokerURL)
	opts.SetClientID(o.ClientID)

	if o.Username != "" || o.Password != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	opts.SetCleanSession(true)
	opts.SetAutoReconnect(false)
	opts.SetConnectRetry(false)
	opts.SetConnectTimeout(o.connectTimeout())

	keepAlive := o.KeepAlive
	if keepAlive <= 0 {
		keepAlive = defaultKeepAlive
	}
	opts.SetKeepAlive(keepAlive)

	if u, err := url.Parse(o.BrokerURL); err == nil && secureSchemes[strings.ToLower(u.Scheme)] {
		opts.SetTLSConfig(&tls.Config{
			MinVersion: tlsMinVersion,
		})
	}

	return opts
}

// Option customises a Client at connect time.
type Option func(*Client)

// WithOnConnect sets a callback invoked once the session is established.
func WithOnConnect(callback func()) Option {
	return func(c *Client) { c.onConnect = callback }
}

// WithOnDisconnect sets a callback invoked when the session is lost
// unexpectedly. It is not invoked by Close.
func WithOnDisconnect(callback func(err error)) Option {
	return func(c *Client) { c.onDisconnect = callback }
}

// WithLogger sets a logger for handler errors and panics.
func WithLogger(logger Logger) Option {
	return func(c *Client) { c.logger = logger }
}
