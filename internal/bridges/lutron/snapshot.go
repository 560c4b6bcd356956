package lutron

import (
	"context"
	"time"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
)

// snapshotTimeout bounds one repository write.
const snapshotTimeout = 5 * time.Second

var _ DeviceListener = (*SnapshotListener)(nil)

// SnapshotListener mirrors registry changes into a device.Repository so
// the last known inventory survives restarts.
type SnapshotListener struct {
	repo   device.Repository
	logger Logger
}

// NewSnapshotListener creates a listener writing to repo. logger may be nil.
func NewSnapshotListener(repo device.Repository, logger Logger) *SnapshotListener {
	if logger == nil {
		logger = noopLogger{}
	}
	return &SnapshotListener{repo: repo, logger: logger}
}

// OnDeviceFound stores the new device.
func (s *SnapshotListener) OnDeviceFound(d device.Device) { s.save(d) }

// OnDeviceStateChanged stores the updated properties.
func (s *SnapshotListener) OnDeviceStateChanged(d device.Device) { s.save(d) }

// OnDeviceRemoved deletes the stored device.
func (s *SnapshotListener) OnDeviceRemoved(d device.Device) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	if err := s.repo.Delete(ctx, d.ObjectID); err != nil {
		s.logger.Warn("deleting device snapshot", "object_id", d.ObjectID, "error", err)
	}
}

// Restore loads the stored inventory into reg. Restored devices are not
// announced as found.
func (s *SnapshotListener) Restore(ctx context.Context, reg *device.Registry) (int, error) {
	devices, err := s.repo.List(ctx)
	if err != nil {
		return 0, err
	}
	reg.Load(devices)
	return len(devices), nil
}

func (s *SnapshotListener) save(d device.Device) {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	if err := s.repo.Save(ctx, d); err != nil {
		s.logger.Warn("saving device snapshot", "object_id", d.ObjectID, "error", err)
	}
}
