package lutron

import "errors"

// Domain errors for the Lutron hub engine.
var (
	// ErrTransportConnect is returned when a broker connection attempt
	// fails. The engine retries after the reconnect delay.
	ErrTransportConnect = errors.New("lutron: transport connect failed")

	// ErrConfiguration is returned when the broker endpoint is unusable.
	// It is not retried.
	ErrConfiguration = errors.New("lutron: invalid configuration")

	// ErrMalformedDevice marks a ListDevices record that could not be
	// decoded. The record is skipped and the rest of the batch is kept.
	ErrMalformedDevice = errors.New("lutron: malformed device record")

	// ErrMalformedMessage is returned when an inbound payload is not a
	// valid envelope.
	ErrMalformedMessage = errors.New("lutron: malformed message")

	// ErrUnknownDevice is returned for an update or request that names an
	// object ID not in the registry.
	ErrUnknownDevice = errors.New("lutron: unknown device")

	// ErrHeartbeatTimeout is the cause recorded when the hub stays silent
	// for longer than the heartbeat window.
	ErrHeartbeatTimeout = errors.New("lutron: heartbeat timeout")

	// ErrNotConnected is returned by outbound operations while the engine
	// is not connected to the hub.
	ErrNotConnected = errors.New("lutron: not connected")

	// ErrEngineStopped is returned by Start after Stop.
	ErrEngineStopped = errors.New("lutron: engine stopped")

	// ErrUnsupportedCommand is returned when a level command targets a
	// device that cannot take one (remotes, unsupported classes).
	ErrUnsupportedCommand = errors.New("lutron: unsupported command for device")
)
