// Package discovery finds the Lutron hub's MQTT broker on the local network
// over mDNS. It is used at startup when no broker URL is configured.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/config"
)

// Defaults used when the configuration leaves a field empty.
const (
	DefaultService = "_lutron_mqtt._tcp"
	DefaultDomain  = "local."
	DefaultTimeout = 10 * time.Second
)

// Sentinel errors.
var (
	// ErrHubNotFound is returned when no hub answered before the timeout.
	ErrHubNotFound = errors.New("discovery: hub not found")

	// ErrBrowseFailed is returned when the mDNS browse could not start.
	ErrBrowseFailed = errors.New("discovery: browse failed")
)

// Logger is the logging interface used by the browser.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}

// Hub is one advertised hub broker.
type Hub struct {
	Instance  string   `json:"instance"`
	UUID      string   `json:"uuid,omitempty"`
	Host      string   `json:"host"`
	Port      int      `json:"port"`
	Addresses []string `json:"addresses"`
}

// BrokerURL returns tcp://<address>:<port>, preferring an IPv4 address,
// then the host name, then an IPv6 address.
func (h Hub) BrokerURL() string {
	host := h.Host
	for _, a := range h.Addresses {
		if ip := net.ParseIP(a); ip != nil && ip.To4() != nil {
			host = a
			break
		}
	}
	if host == "" && len(h.Addresses) > 0 {
		host = h.Addresses[0]
	}
	return "tcp://" + net.JoinHostPort(host, strconv.Itoa(h.Port))
}

// browseFunc matches zeroconf.Browse.
type browseFunc func(ctx context.Context, service, domain string,
	entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error

func zeroconfBrowse(ctx context.Context, service, domain string,
	entries, removed chan *zeroconf.ServiceEntry, opts ...zeroconf.ClientOption) error {
	return zeroconf.Browse(ctx, service, domain, entries, removed, opts...)
}

// Browser looks up the hub service.
type Browser struct {
	service string
	domain  string
	iface   string
	timeout time.Duration
	logger  Logger
	browse  browseFunc
}

// NewBrowser creates a browser from the discovery configuration. logger
// may be nil.
func NewBrowser(cfg config.DiscoveryConfig, logger Logger) *Browser {
	b := &Browser{
		service: cfg.Service,
		domain:  cfg.Domain,
		iface:   cfg.Interface,
		timeout: time.Duration(cfg.Timeout) * time.Second,
		logger:  logger,
		browse:  zeroconfBrowse,
	}
	if b.service == "" {
		b.service = DefaultService
	}
	if b.domain == "" {
		b.domain = DefaultDomain
	}
	if b.timeout <= 0 {
		b.timeout = DefaultTimeout
	}
	if b.logger == nil {
		b.logger = noopLogger{}
	}
	return b
}

// FindHub browses until the first usable hub answers or the timeout
// passes.
//
// Returns:
//   - Hub: the first advertised hub with a port
//   - error: ErrHubNotFound on timeout, ErrBrowseFailed if browsing could not start,
//     or the caller's context error
func (b *Browser) FindHub(ctx context.Context) (Hub, error) {
	browseCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()

	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	errCh := make(chan error, 1)

	b.logger.Debug("browsing for hub", "service", b.service, "domain", b.domain, "timeout", b.timeout)
	go func() {
		errCh <- b.browse(browseCtx, b.service, b.domain, entries, removed, b.options()...)
	}()

	for {
		select {
		case entry, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			hub, ok := hubFromEntry(entry)
			if !ok {
				continue
			}
			b.logger.Info("hub discovered",
				"instance", hub.Instance,
				"host", hub.Host,
				"port", hub.Port,
				"uuid", hub.UUID,
			)
			return hub, nil

		case <-removed:

		case err := <-errCh:
			errCh = nil
			if err != nil && browseCtx.Err() == nil {
				return Hub{}, fmt.Errorf("%w: %w", ErrBrowseFailed, err)
			}

		case <-browseCtx.Done():
			if err := ctx.Err(); err != nil {
				return Hub{}, err
			}
			return Hub{}, fmt.Errorf("%w: %s in %s after %s", ErrHubNotFound, b.service, b.domain, b.timeout)
		}
	}
}

func (b *Browser) options() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption
	if b.iface != "" {
		if iface, err := net.InterfaceByName(b.iface); err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		} else {
			b.logger.Debug("discovery interface not found, using all", "interface", b.iface, "error", err)
		}
	}
	return opts
}

// hubFromEntry converts a browse result. Entries without a port are not
// usable.
func hubFromEntry(entry *zeroconf.ServiceEntry) (Hub, bool) {
	if entry == nil || entry.Port <= 0 {
		return Hub{}, false
	}

	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return Hub{
		Instance:  entry.Instance,
		UUID:      txtValue(entry.Text, "uuid"),
		Host:      strings.TrimSuffix(entry.HostName, "."),
		Port:      entry.Port,
		Addresses: addrs,
	}, true
}

// txtValue returns the value of key in key=value TXT records.
func txtValue(records []string, key string) string {
	for _, r := range records {
		k, v, ok := strings.Cut(r, "=")
		if ok && strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}
