package lutron

import (
	"sync"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
)

// DeviceListener observes device lifecycle and state.
//
// Callbacks run synchronously on the goroutine that produced the event.
// A listener may register or unregister listeners, itself included, from
// inside a callback. Implementations must be comparable (use a pointer).
type DeviceListener interface {
	OnDeviceFound(d device.Device)
	OnDeviceRemoved(d device.Device)
	OnDeviceStateChanged(d device.Device)
}

// ListenerFuncs adapts optional functions to DeviceListener. Register a
// pointer to it.
type ListenerFuncs struct {
	Found   func(d device.Device)
	Removed func(d device.Device)
	Changed func(d device.Device)
}

// OnDeviceFound calls Found if set.
func (l *ListenerFuncs) OnDeviceFound(d device.Device) {
	if l.Found != nil {
		l.Found(d)
	}
}

// OnDeviceRemoved calls Removed if set.
func (l *ListenerFuncs) OnDeviceRemoved(d device.Device) {
	if l.Removed != nil {
		l.Removed(d)
	}
}

// OnDeviceStateChanged calls Changed if set.
func (l *ListenerFuncs) OnDeviceStateChanged(d device.Device) {
	if l.Changed != nil {
		l.Changed(d)
	}
}

type eventKind int

const (
	eventFound eventKind = iota
	eventRemoved
	eventChanged
)

func (k eventKind) String() string {
	switch k {
	case eventFound:
		return "found"
	case eventRemoved:
		return "removed"
	default:
		return "changed"
	}
}

// listenerSet is an insertion-ordered set of listeners. Delivery iterates
// over a snapshot, so the set may change while an event is in flight.
type listenerSet struct {
	mu        sync.RWMutex
	listeners []DeviceListener
	logger    Logger
}

func (s *listenerSet) add(l DeviceListener) bool {
	if l == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, x := range s.listeners {
		if x == l {
			return false
		}
	}
	s.listeners = append(s.listeners, l)
	return true
}

func (s *listenerSet) remove(l DeviceListener) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, x := range s.listeners {
		if x == l {
			s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
			return true
		}
	}
	return false
}

func (s *listenerSet) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.listeners)
}

func (s *listenerSet) snapshot() []DeviceListener {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]DeviceListener(nil), s.listeners...)
}

// notify delivers one event to every listener registered at call time.
// Each listener gets its own copy of d.
func (s *listenerSet) notify(kind eventKind, d device.Device) {
	for _, l := range s.snapshot() {
		s.deliver(l, kind, d.Clone())
	}
}

func (s *listenerSet) deliver(l DeviceListener, kind eventKind, d device.Device) {
	defer func() {
		if r := recover(); r != nil && s.logger != nil {
			s.logger.Error("device listener panic recovered",
				"event", kind.String(),
				"object_id", d.ObjectID,
				"panic", r,
			)
		}
	}()

	switch kind {
	case eventFound:
		l.OnDeviceFound(d)
	case eventRemoved:
		l.OnDeviceRemoved(d)
	case eventChanged:
		l.OnDeviceStateChanged(d)
	}
}
