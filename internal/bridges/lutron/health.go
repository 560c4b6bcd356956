package lutron

import (
	"context"
	"fmt"
	"time"
)

// Health is a point-in-time summary of the engine.
type Health struct {
	State            ConnectionState `json:"state"`
	Status           StatusReport    `json:"status"`
	Devices          int             `json:"devices"`
	Listeners        int             `json:"listeners"`
	ConnectedSince   time.Time       `json:"connected_since,omitzero"`
	LastHeartbeat    time.Time       `json:"last_heartbeat,omitzero"`
	Reconnects       uint64          `json:"reconnects"`
	MalformedDevices uint64          `json:"malformed_devices"`
	UnknownDevices   uint64          `json:"unknown_devices"`
	CommandsSent     uint64          `json:"commands_sent"`
}

// Health returns the current engine summary.
func (e *Engine) Health() Health {
	e.mu.Lock()
	h := Health{
		State:          e.state,
		Status:         e.status,
		ConnectedSince: e.connectedAt,
		LastHeartbeat:  e.lastHeartbeat,
	}
	e.mu.Unlock()

	h.Devices = e.registry.Len()
	h.Listeners = e.listeners.len()
	h.Reconnects = e.reconnects.Load()
	h.MalformedDevices = e.malformedDevices.Load()
	h.UnknownDevices = e.unknownDevices.Load()
	h.CommandsSent = e.commandsSent.Load()
	return h
}

// HealthCheck returns nil while the engine is connected to the hub and the
// transport, when it can tell, reports a live link.
func (e *Engine) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("lutron health check: %w", ctx.Err())
	default:
	}

	e.mu.Lock()
	state, tr := e.state, e.transport
	e.mu.Unlock()

	if state != StateConnected {
		return fmt.Errorf("%w: %s", ErrNotConnected, state)
	}
	if hc, ok := tr.(healthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("hub transport: %w", err)
		}
	}
	return nil
}
