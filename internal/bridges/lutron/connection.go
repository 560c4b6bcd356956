package lutron

import (
	"errors"
	"fmt"
	"time"
)

// Scheduler keys. Everything under keyConnPrefix lives only as long as one
// connected session and is cancelled when the engine leaves Connected.
const (
	keyConnPrefix = "conn/"
	keyHeartbeat  = keyConnPrefix + "heartbeat"
	keyRefresh    = keyConnPrefix + "refresh"
	keyPollPrefix = keyConnPrefix + "poll/"
	keyReconnect  = "reconnect"
)

func pollKey(id int) string {
	return fmt.Sprintf("%s%d", keyPollPrefix, id)
}

// connect makes one connection attempt. It is a no-op unless the engine
// is Disconnected (first start) or Reconnecting.
func (e *Engine) connect() {
	e.mu.Lock()
	if e.stopped || (e.state != StateDisconnected && e.state != StateReconnecting) {
		e.mu.Unlock()
		return
	}
	e.epoch++
	epoch := e.epoch
	e.setStateLocked(StateConnecting)
	ctx := e.ctx
	e.mu.Unlock()

	ep := Endpoint{URL: e.brokerURL, ClientID: e.newClientID()}
	e.logger.Info("connecting to hub", "url", ep.URL, "client_id", ep.ClientID)

	tr, err := e.dialer.Dial(ctx, ep, func(err error) {
		e.connectionLost(epoch, err)
	})
	if err == nil {
		// Subscribing is part of the transition to Connected.
		if err = e.subscribe(epoch, tr); err != nil {
			tr.Close() //nolint:errcheck // Best-effort, the session is being abandoned
		}
	}
	if err != nil {
		e.connectFailed(epoch, err)
		return
	}

	e.mu.Lock()
	if e.stopped || e.epoch != epoch {
		e.mu.Unlock()
		tr.Close() //nolint:errcheck // Superseded session
		return
	}
	if e.lostEpoch == epoch {
		e.mu.Unlock()
		tr.Close() //nolint:errcheck // The link is already gone
		e.connectFailed(epoch, fmt.Errorf("%w: connection lost while subscribing", ErrTransportConnect))
		return
	}
	e.transport = tr
	e.setStateLocked(StateConnected)
	e.connectedAt = e.clock.Now()
	e.lastHeartbeat = time.Time{}
	// Armed under e.mu so a concurrent drop cannot cancel before arming.
	e.armHeartbeat(epoch)
	e.armSync(epoch)
	e.mu.Unlock()

	e.logger.Info("connected to hub", "url", ep.URL)
	e.reportFor(epoch, StatusOnline, DetailNone, "")
}

func (e *Engine) subscribe(epoch uint64, tr Transport) error {
	handlers := []struct {
		topic   string
		handler func(epoch uint64, payload []byte) error
	}{
		{e.topics.Status(), e.handleStatus},
		{e.topics.Events(), e.handleEvents},
		{e.topics.Remote(), e.handleRemote},
	}

	for _, h := range handlers {
		handle := h.handler
		err := tr.Subscribe(h.topic, func(_ string, payload []byte) error {
			if !e.isEpoch(epoch) {
				return nil
			}
			return handle(epoch, payload)
		})
		if err != nil {
			return fmt.Errorf("%w: subscribing to %s: %w", ErrTransportConnect, h.topic, err)
		}
	}
	return nil
}

func (e *Engine) connectFailed(epoch uint64, err error) {
	if isConfigError(err) {
		e.mu.Lock()
		if e.epoch == epoch && !e.stopped {
			e.setStateLocked(StateDisconnected)
		}
		e.mu.Unlock()
		e.logger.Error("hub endpoint rejected", "url", e.brokerURL, "error", err)
		e.reportFor(epoch, StatusConfigurationError, DetailConfigurationError, err.Error())
		return
	}
	if !errors.Is(err, ErrTransportConnect) {
		err = fmt.Errorf("%w: %w", ErrTransportConnect, err)
	}

	e.mu.Lock()
	if e.stopped || e.epoch != epoch {
		e.mu.Unlock()
		return
	}
	e.setStateLocked(StateReconnecting)
	e.mu.Unlock()

	e.logger.Warn("hub connection attempt failed",
		"url", e.brokerURL,
		"error", err,
		"retry_in", e.hub.ReconnectDelayDuration(),
	)
	e.reportFor(epoch, StatusOffline, DetailCommunicationError, err.Error())
	e.scheduleReconnect()
}

// connectionLost is the transport's link-loss callback. A loss during
// Connecting is recorded for connect to act on before it enters Connected.
func (e *Engine) connectionLost(epoch uint64, err error) {
	reason := "connection lost"
	if err != nil {
		reason = err.Error()
	}

	e.mu.Lock()
	if e.epoch == epoch && e.state == StateConnecting {
		e.lostEpoch = epoch
		e.mu.Unlock()
		e.logger.Warn("hub connection lost before subscribing finished", "reason", reason)
		return
	}
	e.mu.Unlock()

	e.drop(epoch, DetailBridgeOffline, reason)
}

// drop leaves Connected: it cancels the session's jobs, tears the
// transport down, reports Offline and schedules a reconnect. Stale or
// repeated calls for the same session are ignored.
func (e *Engine) drop(epoch uint64, detail Detail, reason string) {
	e.mu.Lock()
	if e.stopped || e.epoch != epoch || e.state != StateConnected {
		e.mu.Unlock()
		return
	}
	e.epoch++
	next := e.epoch
	tr := e.transport
	e.transport = nil
	e.connectedAt = time.Time{}
	e.setStateLocked(StateReconnecting)
	e.mu.Unlock()

	e.sched.CancelPrefix(keyConnPrefix)
	e.logger.Warn("hub connection dropped", "detail", string(detail), "reason", reason)

	e.reportFor(next, StatusOffline, detail, reason)
	if tr != nil {
		e.teardown(tr)
	}
	e.scheduleReconnect()
}

// teardown unsubscribes and closes a transport. Close is bounded by the
// configured disconnect timeout; errors are logged only.
func (e *Engine) teardown(tr Transport) {
	if tr.IsConnected() {
		for _, topic := range e.topics.Inbound() {
			if err := tr.Unsubscribe(topic); err != nil {
				e.logger.Debug("unsubscribe failed", "topic", topic, "error", err)
			}
		}
	}
	if err := tr.Close(); err != nil {
		e.logger.Warn("closing hub transport", "error", err)
	}
}

// scheduleReconnect arms the single pending reconnect attempt.
func (e *Engine) scheduleReconnect() {
	delay := e.hub.ReconnectDelayDuration()
	if _, ok := e.sched.Schedule(keyReconnect, delay, e.reconnect); !ok {
		e.logger.Debug("reconnect already pending")
	}
}

func (e *Engine) reconnect() {
	e.reconnects.Add(1)
	e.connect()
}
