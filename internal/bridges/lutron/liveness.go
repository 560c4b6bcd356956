package lutron

import "fmt"

// armHeartbeat (re)starts the liveness window for a session. Only one
// heartbeat job exists at a time; re-arming replaces it.
func (e *Engine) armHeartbeat(epoch uint64) {
	e.sched.Reschedule(keyHeartbeat, e.hub.HeartbeatWindow(), func() {
		e.heartbeatExpired(epoch)
	})
}

// handleStatus processes the status topic. A "running" state is the hub
// heartbeat; anything else is logged and ignored.
func (e *Engine) handleStatus(epoch uint64, payload []byte) error {
	st, err := decodeStatus(payload)
	if err != nil {
		e.logger.Debug("ignoring status payload", "error", err)
		return err
	}
	if st.State != stateRunning {
		e.logger.Debug("hub status", "state", st.State)
		return nil
	}

	e.mu.Lock()
	live := e.epoch == epoch && e.state == StateConnected
	if live {
		e.lastHeartbeat = e.clock.Now()
		e.armHeartbeat(epoch)
	}
	e.mu.Unlock()
	return nil
}

func (e *Engine) heartbeatExpired(epoch uint64) {
	window := e.hub.HeartbeatWindow()
	e.logger.Warn("hub heartbeat missed", "window", window, "error", ErrHeartbeatTimeout)
	e.drop(epoch, DetailHeartbeatTimeout, fmt.Sprintf("no heartbeat for %s", window))
}
