package lutron

import (
	"time"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
)

// armSync schedules the first inventory request after the settle delay
// and repeats it every refresh interval while the session lasts.
func (e *Engine) armSync(epoch uint64) {
	e.sched.Every(keyRefresh, e.sync.SettleDelayDuration(), e.sync.RefreshIntervalDuration(), func() {
		e.refresh(epoch)
	})
}

func (e *Engine) refresh(epoch uint64) {
	if !e.current(epoch) {
		return
	}
	if err := e.send(GetDevices()); err != nil {
		e.logger.Warn("inventory request failed", "error", err)
	}
}

// schedulePolls queries each listed device once, spreading the queries
// round-robin over the stagger window. A device with a poll still pending
// is not queued twice.
func (e *Engine) schedulePolls(epoch uint64, devices []device.Device) {
	window := e.sync.StaggerWindow
	if window <= 0 {
		window = 1
	}

	for i, d := range devices {
		id := d.ObjectID
		delay := time.Duration(i%window) * time.Second
		e.sched.Schedule(pollKey(id), delay, func() {
			if !e.current(epoch) {
				return
			}
			if err := e.send(RuntimePropertyQuery(id, device.PropertyLevel)); err != nil {
				e.logger.Warn("property query failed", "object_id", id, "error", err)
			}
		})
	}
}
