package lutron

import (
	"sync"
	"time"
)

// ConnectionState is the engine's link state to the hub.
//
//	Disconnected -> Connecting -> Connected
//	Connected -> Reconnecting -> Connecting -> Connected
//
// Disconnected is only re-entered on Stop or a configuration error.
type ConnectionState int

// Connection states.
const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
)

// String returns the lowercase state name.
func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s ConnectionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Status is the connectivity reported to the host platform.
type Status string

// Status values.
const (
	StatusOnline             Status = "online"
	StatusOffline            Status = "offline"
	StatusConnecting         Status = "connecting"
	StatusConfigurationError Status = "configuration_error"
)

// Detail qualifies a Status.
type Detail string

// Status details.
const (
	DetailNone               Detail = "none"
	DetailBridgeOffline      Detail = "bridge_offline"
	DetailHeartbeatTimeout   Detail = "heartbeat_timeout"
	DetailCommunicationError Detail = "communication_error"
	DetailConfigurationError Detail = "configuration_error"
)

// StatusReport is one connectivity update.
type StatusReport struct {
	Status Status    `json:"status"`
	Detail Detail    `json:"detail"`
	Reason string    `json:"reason,omitempty"`
	At     time.Time `json:"at"`
}

// StatusSink receives connectivity updates. Implementations must not call
// back into the engine's Start or Stop.
type StatusSink interface {
	ReportStatus(r StatusReport)
}

// StatusSinkFunc adapts a function to StatusSink.
type StatusSinkFunc func(r StatusReport)

// ReportStatus calls f(r).
func (f StatusSinkFunc) ReportStatus(r StatusReport) { f(r) }

// MultiStatusSink fans a report out to several sinks in order.
type MultiStatusSink struct {
	mu    sync.RWMutex
	sinks []StatusSink
}

// NewMultiStatusSink creates a sink that forwards to every non-nil sink.
func NewMultiStatusSink(sinks ...StatusSink) *MultiStatusSink {
	m := &MultiStatusSink{}
	for _, s := range sinks {
		m.Add(s)
	}
	return m
}

// Add appends a sink. Nil is ignored.
func (m *MultiStatusSink) Add(s StatusSink) {
	if s == nil {
		return
	}
	m.mu.Lock()
	m.sinks = append(m.sinks, s)
	m.mu.Unlock()
}

// ReportStatus forwards r to every sink.
func (m *MultiStatusSink) ReportStatus(r StatusReport) {
	m.mu.RLock()
	sinks := append([]StatusSink(nil), m.sinks...)
	m.mu.RUnlock()

	for _, s := range sinks {
		s.ReportStatus(r)
	}
}
