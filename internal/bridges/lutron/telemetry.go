package lutron

import (
	"time"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/influxdb"
)

// TelemetryWriter is satisfied by *influxdb.Client.
type TelemetryWriter interface {
	WriteLevel(s influxdb.LevelSample)
	WriteConnectionState(state, detail string, at time.Time)
	WriteRemoteEvent(serial, button, action string, at time.Time)
}

var (
	_ TelemetryWriter = (*influxdb.Client)(nil)
	_ DeviceListener  = (*TelemetryListener)(nil)
	_ StatusSink      = (*TelemetryListener)(nil)
)

// TelemetryListener records level changes, connectivity and remote
// presses as time-series points. Register it as a DeviceListener, a
// StatusSink and the engine's RemoteHandler.
type TelemetryListener struct {
	w   TelemetryWriter
	now func() time.Time
}

// NewTelemetryListener creates a listener writing to w.
func NewTelemetryListener(w TelemetryWriter) *TelemetryListener {
	return &TelemetryListener{w: w, now: time.Now}
}

// OnDeviceFound records the level of a device that arrives with state.
func (t *TelemetryListener) OnDeviceFound(d device.Device) {
	t.writeLevel(d)
}

// OnDeviceRemoved is a no-op.
func (t *TelemetryListener) OnDeviceRemoved(device.Device) {}

// OnDeviceStateChanged records the new level.
func (t *TelemetryListener) OnDeviceStateChanged(d device.Device) {
	t.writeLevel(d)
}

// ReportStatus records a connectivity change using the Status vocabulary.
func (t *TelemetryListener) ReportStatus(r StatusReport) {
	t.w.WriteConnectionState(string(r.Status), string(r.Detail), r.At)
}

// HandleRemote records a remote button event.
func (t *TelemetryListener) HandleRemote(ev RemoteEvent) {
	t.w.WriteRemoteEvent(ev.Serial, ev.Button, ev.Action, t.now())
}

func (t *TelemetryListener) writeLevel(d device.Device) {
	lvl, ok := d.Level()
	if !ok {
		return
	}
	at := d.LastUpdated
	if at.IsZero() {
		at = t.now()
	}
	t.w.WriteLevel(influxdb.LevelSample{
		ObjectID: d.ObjectID,
		Name:     d.Name,
		Category: string(d.Category()),
		Level:    lvl,
		Percent:  device.ToPercent(lvl),
		At:       at,
	})
}
