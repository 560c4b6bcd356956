package discovery

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/enbility/zeroconf/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/config"
)

func entry(instance, host string, port int, v4 ...string) *zeroconf.ServiceEntry {
	e := zeroconf.NewServiceEntry(instance, DefaultService, DefaultDomain)
	e.HostName = host
	e.Port = port
	e.Text = []string{"uuid=2f1c9a", "fw=1.4"}
	for _, a := range v4 {
		e.AddrIPv4 = append(e.AddrIPv4, net.ParseIP(a))
	}
	return e
}

// fakeBrowse emits the given entries, then blocks until cancelled.
func fakeBrowse(found ...*zeroconf.ServiceEntry) browseFunc {
	return func(ctx context.Context, _, _ string, entries, _ chan *zeroconf.ServiceEntry, _ ...zeroconf.ClientOption) error {
		for _, e := range found {
			select {
			case entries <- e:
			case <-ctx.Done():
				return nil
			}
		}
		<-ctx.Done()
		return nil
	}
}

func testBrowser(browse browseFunc) *Browser {
	b := NewBrowser(config.DiscoveryConfig{}, nil)
	b.timeout = 50 * time.Millisecond
	b.browse = browse
	return b
}

func TestNewBrowser_Defaults(t *testing.T) {
	b := NewBrowser(config.DiscoveryConfig{}, nil)
	assert.Equal(t, DefaultService, b.service)
	assert.Equal(t, DefaultDomain, b.domain)
	assert.Equal(t, DefaultTimeout, b.timeout)

	b = NewBrowser(config.DiscoveryConfig{Service: "_hub._tcp", Domain: "lan.", Timeout: 3}, nil)
	assert.Equal(t, "_hub._tcp", b.service)
	assert.Equal(t, "lan.", b.domain)
	assert.Equal(t, 3*time.Second, b.timeout)
}

func TestFindHub_FirstUsableEntry(t *testing.T) {
	b := testBrowser(fakeBrowse(
		entry("no-port", "nope.local.", 0, "10.0.0.9"),
		entry("Lutron Hub", "lutron-hub.local.", 1883, "192.168.1.40"),
		entry("Second", "other.local.", 1883, "192.168.1.41"),
	))

	hub, err := b.FindHub(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Lutron Hub", hub.Instance)
	assert.Equal(t, "lutron-hub.local", hub.Host)
	assert.Equal(t, 1883, hub.Port)
	assert.Equal(t, "2f1c9a", hub.UUID)
	assert.Equal(t, []string{"192.168.1.40"}, hub.Addresses)
	assert.Equal(t, "tcp://192.168.1.40:1883", hub.BrokerURL())
}

func TestFindHub_Timeout(t *testing.T) {
	b := testBrowser(fakeBrowse())

	_, err := b.FindHub(context.Background())
	assert.ErrorIs(t, err, ErrHubNotFound)
}

func TestFindHub_CallerCancelled(t *testing.T) {
	b := testBrowser(fakeBrowse())
	b.timeout = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.FindHub(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFindHub_BrowseError(t *testing.T) {
	b := testBrowser(func(context.Context, string, string, chan *zeroconf.ServiceEntry, chan *zeroconf.ServiceEntry, ...zeroconf.ClientOption) error {
		return errors.New("no multicast interfaces")
	})

	_, err := b.FindHub(context.Background())
	assert.ErrorIs(t, err, ErrBrowseFailed)
}

func TestFindHub_NonBlockingBrowse(t *testing.T) {
	b := testBrowser(func(ctx context.Context, _, _ string, entries, _ chan *zeroconf.ServiceEntry, _ ...zeroconf.ClientOption) error {
		go func() {
			select {
			case entries <- entry("Hub", "hub.local.", 8883, "10.1.1.1"):
			case <-ctx.Done():
			}
		}()
		return nil
	})

	hub, err := b.FindHub(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 8883, hub.Port)
}

func TestHub_BrokerURL(t *testing.T) {
	tests := []struct {
		name string
		hub  Hub
		want string
	}{
		{"ipv4 preferred", Hub{Host: "hub.local", Port: 1883, Addresses: []string{"fe80::1", "10.0.0.2"}}, "tcp://10.0.0.2:1883"},
		{"host fallback", Hub{Host: "hub.local", Port: 1883, Addresses: []string{"fe80::1"}}, "tcp://hub.local:1883"},
		{"ipv6 only", Hub{Port: 1883, Addresses: []string{"fe80::1"}}, "tcp://[fe80::1]:1883"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.hub.BrokerURL())
		})
	}
}

func TestTXTValue(t *testing.T) {
	records := []string{"fw=1.4", "UUID=abc=def", "flag"}
	assert.Equal(t, "abc=def", txtValue(records, "uuid"))
	assert.Equal(t, "1.4", txtValue(records, "fw"))
	assert.Equal(t, "", txtValue(records, "flag"))
	assert.Equal(t, "", txtValue(nil, "uuid"))
}
