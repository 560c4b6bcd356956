package lutron

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/config"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/mqtt"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/scheduler"
)

// Logger defines the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options holds the dependencies of an Engine.
type Options struct {
	// Config is the loaded gateway configuration. Required.
	Config *config.Config

	// Dialer opens broker sessions. Required.
	Dialer Dialer

	// BrokerURL overrides Config.Hub.URL, e.g. with a discovered endpoint.
	BrokerURL string

	// Registry holds device state. A new one is created when nil.
	Registry *device.Registry

	// Scheduler runs timed jobs. When nil the engine creates and owns one
	// driven by Clock.
	Scheduler *scheduler.Scheduler

	// Clock is used only when Scheduler is nil.
	Clock scheduler.Clock

	// StatusSink receives connectivity reports. Optional.
	StatusSink StatusSink

	// RemoteHandler receives decoded remote button events. Optional.
	RemoteHandler func(ev RemoteEvent)

	// Logger is an optional structured logger.
	Logger Logger
}

// Engine owns the hub connection and keeps the device registry in sync.
//
// It connects to the hub broker, watches the status topic for heartbeats,
// reconnects with a fixed backoff, refreshes the inventory periodically
// and fans device events out to registered listeners.
//
// Thread Safety: All methods are safe for concurrent use.
type Engine struct {
	hub       config.HubConfig
	sync      config.SyncConfig
	brokerURL string
	topics    mqtt.Topics

	dialer    Dialer
	registry  *device.Registry
	sched     *scheduler.Scheduler
	ownsSched bool
	clock     scheduler.Clock
	sink      StatusSink
	remote    func(ev RemoteEvent)
	listeners listenerSet
	logger    Logger

	mu            sync.Mutex
	state         ConnectionState
	transport     Transport
	epoch         uint64
	lostEpoch     uint64 // session whose link dropped before it reached Connected
	started       bool
	stopped       bool
	status        StatusReport
	connectedAt   time.Time
	lastHeartbeat time.Time
	ctx           context.Context
	cancel        context.CancelFunc

	// reportMu orders status reports against connection transitions.
	reportMu sync.Mutex

	// pubMu serialises outbound commands.
	pubMu sync.Mutex

	reconnects       atomic.Uint64
	malformedDevices atomic.Uint64
	unknownDevices   atomic.Uint64
	commandsSent     atomic.Uint64
}

// New creates an engine. Call Start to connect.
func New(opts Options) (*Engine, error) {
	if opts.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if opts.Dialer == nil {
		return nil, fmt.Errorf("dialer is required")
	}

	e := &Engine{
		hub:       opts.Config.Hub,
		sync:      opts.Config.Sync,
		brokerURL: opts.BrokerURL,
		topics:    mqtt.NewTopics(opts.Config.Hub.TopicPrefix),
		dialer:    opts.Dialer,
		registry:  opts.Registry,
		sched:     opts.Scheduler,
		sink:      opts.StatusSink,
		remote:    opts.RemoteHandler,
		logger:    opts.Logger,
		state:     StateDisconnected,
	}
	if e.brokerURL == "" {
		e.brokerURL = opts.Config.Hub.URL
	}
	if e.logger == nil {
		e.logger = noopLogger{}
	}
	if e.registry == nil {
		e.registry = device.NewRegistry()
	}
	if e.sched == nil {
		e.sched = scheduler.New(opts.Clock)
		e.sched.SetLogger(e.logger)
		e.ownsSched = true
	}
	e.clock = e.sched.Clock()
	e.listeners.logger = e.logger
	e.ctx, e.cancel = context.WithCancel(context.Background())

	return e, nil
}

// Start validates the broker endpoint and makes the first connection
// attempt. A failed attempt is retried in the background; an invalid
// endpoint is reported as a configuration error and not retried.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrEngineStopped
	}
	if e.started {
		e.mu.Unlock()
		return nil
	}
	e.mu.Unlock()

	if err := mqtt.ValidateBrokerURL(e.brokerURL); err != nil {
		e.logger.Error("invalid hub broker url", "url", e.brokerURL, "error", err)
		e.report(StatusConfigurationError, DetailConfigurationError, err.Error())
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return ErrEngineStopped
	}
	e.started = true
	// Stop cancels dials; the caller's ctx bounds them too.
	prev := e.cancel
	e.ctx, e.cancel = context.WithCancel(ctx)
	e.mu.Unlock()
	prev()

	e.report(StatusConnecting, DetailNone, "")
	e.connect()
	return nil
}

// Stop unsubscribes, closes the transport within the disconnect timeout,
// cancels every job the engine owns and clears the registry. It always
// ends in StateDisconnected. Safe to call multiple times.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	e.epoch++
	tr := e.transport
	e.transport = nil
	e.setStateLocked(StateDisconnected)
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.sched.CancelPrefix(keyConnPrefix)
	e.sched.Cancel(keyReconnect)
	if tr != nil {
		e.teardown(tr)
	}
	if e.ownsSched {
		e.sched.Close()
	}
	e.registry.Clear()

	e.report(StatusOffline, DetailNone, "stopped")
	e.logger.Info("lutron engine stopped")
}

// State returns the current connection state.
func (e *Engine) State() ConnectionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Status returns the last reported connectivity.
func (e *Engine) Status() StatusReport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Registry returns the engine's device registry.
func (e *Engine) Registry() *device.Registry { return e.registry }

// Topics returns the hub topic names in use.
func (e *Engine) Topics() mqtt.Topics { return e.topics }

// GetDevices returns a snapshot of every known device.
func (e *Engine) GetDevices() []device.Device {
	return e.registry.Snapshot()
}

// GetDeviceByObjectID returns one device or device.ErrDeviceNotFound.
func (e *Engine) GetDeviceByObjectID(id int) (device.Device, error) {
	return e.registry.Get(id)
}

// RegisterListener adds a device listener. Returns false if it was
// already registered.
func (e *Engine) RegisterListener(l DeviceListener) bool {
	return e.listeners.add(l)
}

// UnregisterListener removes a device listener. Removing a listener that
// is not registered is a no-op returning false.
func (e *Engine) UnregisterListener(l DeviceListener) bool {
	return e.listeners.remove(l)
}

// RequestUpdateForDevice asks the hub for the device's current level.
// The answer arrives later as a state change.
func (e *Engine) RequestUpdateForDevice(id int) error {
	if !e.registry.Known(id) {
		return fmt.Errorf("%w: object %d", ErrUnknownDevice, id)
	}
	return e.send(RuntimePropertyQuery(id, device.PropertyLevel))
}

// SetDesiredState publishes a command to the hub. It does not wait for the
// hub to act on it.
//
// Returns:
//   - error: ErrNotConnected unless the engine is connected, or the publish error
func (e *Engine) SetDesiredState(cmd Command) error {
	return e.send(cmd)
}

// RemoveDevice drops a device from the registry and notifies listeners.
func (e *Engine) RemoveDevice(id int) error {
	d, err := e.registry.Remove(id)
	if err != nil {
		return err
	}
	e.sched.Cancel(pollKey(id))
	e.listeners.notify(eventRemoved, d)
	return nil
}

// send publishes one command on the commands topic.
func (e *Engine) send(cmd Command) error {
	payload, err := cmd.Marshal()
	if err != nil {
		return fmt.Errorf("encoding %s: %w", cmd.Cmd, err)
	}

	e.mu.Lock()
	tr := e.transport
	connected := e.state == StateConnected && tr != nil
	e.mu.Unlock()
	if !connected {
		return ErrNotConnected
	}

	e.pubMu.Lock()
	defer e.pubMu.Unlock()
	if err := tr.Publish(e.topics.Commands(), payload); err != nil {
		return fmt.Errorf("publishing %s: %w", cmd.Cmd, err)
	}
	e.commandsSent.Add(1)
	e.logger.Debug("command sent", "cmd", cmd.Cmd)
	return nil
}

// report records and forwards a status report.
func (e *Engine) report(status Status, detail Detail, reason string) {
	e.reportMu.Lock()
	defer e.reportMu.Unlock()
	e.reportLocked(status, detail, reason)
}

// reportFor reports only if epoch is still the current connection.
func (e *Engine) reportFor(epoch uint64, status Status, detail Detail, reason string) {
	e.reportMu.Lock()
	defer e.reportMu.Unlock()
	if !e.isEpoch(epoch) {
		return
	}
	e.reportLocked(status, detail, reason)
}

func (e *Engine) reportLocked(status Status, detail Detail, reason string) {
	r := StatusReport{Status: status, Detail: detail, Reason: reason, At: e.clock.Now()}

	e.mu.Lock()
	e.status = r
	e.mu.Unlock()

	e.logger.Info("hub status",
		"status", string(status),
		"detail", string(detail),
		"reason", reason,
	)
	if e.sink != nil {
		e.sink.ReportStatus(r)
	}
}

func (e *Engine) isEpoch(epoch uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch == epoch
}

// current reports whether epoch is the live, connected session.
func (e *Engine) current(epoch uint64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.epoch == epoch && e.state == StateConnected
}

// setStateLocked must be called with e.mu held.
func (e *Engine) setStateLocked(to ConnectionState) {
	if e.state == to {
		return
	}
	e.logger.Debug("connection state", "from", e.state.String(), "to", to.String())
	e.state = to
}

// newClientID returns prefix + unix seconds + "-" + 8 hex chars.
func (e *Engine) newClientID() string {
	suffix := uuid.NewString()[:8]
	return fmt.Sprintf("%s%d-%s", e.hub.ClientIDPrefix, e.clock.Now().Unix(), suffix)
}

// isConfigError reports whether err means the endpoint itself is unusable.
func isConfigError(err error) bool {
	return errors.Is(err, ErrConfiguration) || errors.Is(err, mqtt.ErrInvalidBrokerURL)
}
