package lutron

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
)

// handleEvents dispatches the events topic by envelope command.
func (e *Engine) handleEvents(epoch uint64, payload []byte) error {
	env, err := decodeEnvelope(payload)
	if err != nil {
		return err
	}

	switch env.Cmd {
	case CmdListDevices:
		return e.handleListDevices(epoch, env.Args)
	case CmdRuntimePropertyUpdate:
		return e.handlePropertyUpdate(env.Args)
	default:
		e.logger.Debug("ignoring hub event", "cmd", env.Cmd)
		return nil
	}
}

// handleListDevices merges a full inventory, announces new devices and
// queues a state query for every listed device.
func (e *Engine) handleListDevices(epoch uint64, args json.RawMessage) error {
	devices, skipped, err := decodeListDevices(args)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		e.malformedDevices.Add(1)
		e.logger.Warn("skipping device record", "error", s)
	}
	devices = dedupe(devices)

	diff := e.registry.UpsertAll(devices, e.clock.Now())
	e.logger.Info("device inventory received",
		"devices", len(devices),
		"added", len(diff.Added),
		"updated", len(diff.Updated),
		"missing", len(diff.Missing),
		"skipped", len(skipped),
	)

	if e.sync.EvictMissing && len(diff.Missing) > 0 {
		for _, d := range e.registry.Evict(diff.Missing) {
			e.sched.Cancel(pollKey(d.ObjectID))
			e.logger.Info("device evicted", "object_id", d.ObjectID, "name", d.Name)
			e.listeners.notify(eventRemoved, d)
		}
	}
	for _, d := range diff.Added {
		e.logger.Info("device found",
			"object_id", d.ObjectID,
			"name", d.Name,
			"category", string(d.Category()),
		)
		e.listeners.notify(eventFound, d)
	}

	e.schedulePolls(epoch, devices)
	return nil
}

// handlePropertyUpdate applies runtime properties to a known device. An
// unknown object ID is counted, logged and dropped.
func (e *Engine) handlePropertyUpdate(args json.RawMessage) error {
	id, props, err := decodePropertyUpdate(args)
	if err != nil {
		return err
	}

	d, err := e.registry.MergeProperties(id, props, e.clock.Now())
	if errors.Is(err, device.ErrDeviceNotFound) {
		e.unknownDevices.Add(1)
		err = fmt.Errorf("%w: object %d", ErrUnknownDevice, id)
		e.logger.Warn("dropping property update", "object_id", id, "error", err)
		return err
	}
	if err != nil {
		return err
	}

	if e.State() != StateConnected {
		return nil
	}
	if lvl, ok := d.Level(); ok {
		e.logger.Debug("device state changed",
			"object_id", id,
			"level", lvl,
			"percent", device.ToPercent(lvl),
		)
	}
	e.listeners.notify(eventChanged, d)
	return nil
}

// handleRemote decodes a remote button event. It has no effect on device
// state; the optional handler sees it for telemetry.
func (e *Engine) handleRemote(_ uint64, payload []byte) error {
	ev, err := decodeRemoteEvent(payload)
	if err != nil {
		return err
	}
	e.logger.Debug("remote event",
		"serial", ev.Serial,
		"button", ev.Button,
		"action", ev.Action,
	)
	if e.remote != nil {
		e.remote(ev)
	}
	return nil
}

// dedupe keeps the last record for each object ID, at the position of
// its first occurrence.
func dedupe(devices []device.Device) []device.Device {
	index := make(map[int]int, len(devices))
	out := make([]device.Device, 0, len(devices))
	for _, d := range devices {
		if i, ok := index[d.ObjectID]; ok {
			out[i] = d
			continue
		}
		index[d.ObjectID] = len(out)
		out = append(out, d)
	}
	return slices.Clip(out)
}
