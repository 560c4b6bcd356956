package device

import (
	"slices"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Diff describes what an inventory merge changed.
type Diff struct {
	// Added holds devices not known before the merge, in payload order.
	Added []Device
	// Updated holds known devices whose descriptive fields changed.
	Updated []Device
	// Missing holds known object IDs absent from the payload, ascending.
	Missing []int
}

// Empty reports whether the merge changed nothing.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Updated) == 0 && len(d.Missing) == 0
}

// Registry is the in-memory device table keyed by hub object ID.
//
// Reads hand out clones so callers can never mutate registry state.
// All public methods are thread-safe.
type Registry struct {
	devices map[int]Device
	// restored holds IDs loaded from a snapshot that the hub has not
	// listed yet in this process.
	restored map[int]bool
	mu       sync.RWMutex
	logger   Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		devices:  make(map[int]Device),
		restored: make(map[int]bool),
		logger:   noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	if logger == nil {
		logger = noopLogger{}
	}
	r.mu.Lock()
	r.logger = logger
	r.mu.Unlock()
}

// UpsertAll merges a full inventory listing.
//
// New devices are inserted. Known devices keep their accumulated
// properties; descriptive fields are replaced and any properties carried in
// the listing are merged on top. Devices absent from the listing are kept
// and reported in Diff.Missing. Duplicate IDs in one listing collapse to
// the last occurrence. A device restored by Load is reported in Diff.Added
// the first time the hub lists it, keeping its restored properties.
func (r *Registry) UpsertAll(devices []Device, now time.Time) Diff {
	r.mu.Lock()
	defer r.mu.Unlock()

	var diff Diff
	seen := make(map[int]bool, len(devices))
	addedAt := make(map[int]int)

	for _, in := range devices {
		existing, known := r.devices[in.ObjectID]
		merged := in.Clone()

		switch {
		case known && r.restored[in.ObjectID]:
			merged.Properties = mergeProps(existing.Properties, in.Properties)
			merged.LastUpdated = existing.LastUpdated
			delete(r.restored, in.ObjectID)
			addedAt[in.ObjectID] = len(diff.Added)
			diff.Added = append(diff.Added, merged.Clone())
		case known && !seen[in.ObjectID]:
			merged.Properties = mergeProps(existing.Properties, in.Properties)
			merged.LastUpdated = existing.LastUpdated
			if !existing.sameIdentity(in) {
				diff.Updated = append(diff.Updated, merged.Clone())
			}
		case known:
			merged.Properties = mergeProps(existing.Properties, in.Properties)
			merged.LastUpdated = existing.LastUpdated
			if i, ok := addedAt[in.ObjectID]; ok {
				diff.Added[i] = merged.Clone()
			}
		default:
			if merged.Properties == nil {
				merged.Properties = make(map[int]int)
			}
			merged.LastUpdated = time.Time{}
			addedAt[in.ObjectID] = len(diff.Added)
			diff.Added = append(diff.Added, merged.Clone())
		}
		if len(in.Properties) > 0 {
			merged.LastUpdated = now
		}

		r.devices[in.ObjectID] = merged
		seen[in.ObjectID] = true
	}

	for id := range r.devices {
		if !seen[id] {
			diff.Missing = append(diff.Missing, id)
		}
	}
	slices.Sort(diff.Missing)

	r.logger.Debug("inventory merged",
		"listed", len(devices),
		"added", len(diff.Added),
		"updated", len(diff.Updated),
		"missing", len(diff.Missing),
	)
	return diff
}

// Get returns a clone of the device with the given object ID.
// Returns ErrDeviceNotFound if the device is not known.
func (r *Registry) Get(id int) (Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	return d.Clone(), nil
}

// Known reports whether the object ID is in the registry.
func (r *Registry) Known(id int) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.devices[id]
	return ok
}

// MergeProperties overwrites the given runtime properties on a known device
// and stamps it with now. Properties not named keep their values.
// Returns the updated device, or ErrDeviceNotFound.
func (r *Registry) MergeProperties(id int, props map[int]int, now time.Time) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	d.Properties = mergeProps(d.Properties, props)
	d.LastUpdated = now
	r.devices[id] = d
	return d.Clone(), nil
}

// MergeProperty sets a single runtime property.
func (r *Registry) MergeProperty(id, property, value int, now time.Time) (Device, error) {
	return r.MergeProperties(id, map[int]int{property: value}, now)
}

// Remove deletes a device. Returns ErrDeviceNotFound if it was not known.
func (r *Registry) Remove(id int) (Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, ok := r.devices[id]
	if !ok {
		return Device{}, ErrDeviceNotFound
	}
	delete(r.devices, id)
	delete(r.restored, id)
	r.logger.Info("device removed", "object_id", id, "name", d.Name)
	return d, nil
}

// Evict removes every listed device that is present and returns them in
// the order given. Unknown IDs are ignored.
func (r *Registry) Evict(ids []int) []Device {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []Device
	for _, id := range ids {
		d, ok := r.devices[id]
		if !ok {
			continue
		}
		delete(r.devices, id)
		delete(r.restored, id)
		out = append(out, d)
	}
	if len(out) > 0 {
		r.logger.Info("devices evicted", "count", len(out))
	}
	return out
}

// Snapshot returns clones of every device ordered by object ID.
func (r *Registry) Snapshot() []Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d.Clone())
	}
	slices.SortFunc(out, func(a, b Device) int { return a.ObjectID - b.ObjectID })
	return out
}

// Len returns the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}

// Clear drops every device.
func (r *Registry) Clear() {
	r.mu.Lock()
	r.devices = make(map[int]Device)
	r.restored = make(map[int]bool)
	r.mu.Unlock()
}

// Load replaces the registry contents with a previously saved inventory.
// It is used on startup to restore the last known state before the hub
// has been reached. Loaded devices are announced as added when the hub
// first lists them.
func (r *Registry) Load(devices []Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.devices = make(map[int]Device, len(devices))
	r.restored = make(map[int]bool, len(devices))
	for _, d := range devices {
		c := d.Clone()
		if c.Properties == nil {
			c.Properties = make(map[int]int)
		}
		r.devices[d.ObjectID] = c
		r.restored[d.ObjectID] = true
	}
	r.logger.Info("device registry loaded", "count", len(devices))
}

// mergeProps returns base overwritten by overlay, without modifying either.
func mergeProps(base, overlay map[int]int) map[int]int {
	out := make(map[int]int, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}
