package lutron

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/infrastructure/config"
)

type memoryRepo struct {
	mu      sync.Mutex
	devices map[int]device.Device
	err     error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{devices: make(map[int]device.Device)}
}

func (r *memoryRepo) List(context.Context) ([]device.Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	out := make([]device.Device, 0, len(r.devices))
	for _, d := range r.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObjectID < out[j].ObjectID })
	return out, nil
}

func (r *memoryRepo) Save(_ context.Context, d device.Device) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.devices[d.ObjectID] = d
	return nil
}

func (r *memoryRepo) SaveAll(ctx context.Context, devices []device.Device) error {
	for _, d := range devices {
		if err := r.Save(ctx, d); err != nil {
			return err
		}
	}
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	delete(r.devices, id)
	return nil
}

func TestSnapshotListener_MirrorsEngine(t *testing.T) {
	h := newHarness(t, func(c *config.Config) { c.Sync.EvictMissing = true })
	repo := newMemoryRepo()
	h.engine.RegisterListener(NewSnapshotListener(repo, nil))
	tr := h.start()

	require.NoError(t, h.events(tr, twoDevices))
	assert.Len(t, repo.devices, 2)

	update := `{"cmd":"RuntimePropertyUpdate","args":{"ObjectId":"1","Properties":[[1,65535]]}}`
	require.NoError(t, h.events(tr, update))
	lvl, ok := repo.devices[1].Level()
	require.True(t, ok)
	assert.Equal(t, 65535, lvl)

	require.NoError(t, h.events(tr, oneDevice))
	assert.Len(t, repo.devices, 1)
	assert.Contains(t, repo.devices, 1)
}

func TestSnapshotListener_Restore(t *testing.T) {
	repo := newMemoryRepo()
	repo.devices[3] = device.Device{
		ObjectID:    3,
		Name:        "Fan",
		DeviceClass: 0x04370101,
		Properties:  map[int]int{device.PropertyLevel: 100},
	}
	repo.devices[1] = dimmer(1)

	reg := device.NewRegistry()
	n, err := NewSnapshotListener(repo, nil).Restore(context.Background(), reg)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, reg.Len())

	d, err := reg.Get(3)
	require.NoError(t, err)
	assert.Equal(t, device.CategoryVariableFan, d.Category())
}

func TestSnapshotListener_Errors(t *testing.T) {
	repo := newMemoryRepo()
	repo.err = errors.New("disk full")
	s := NewSnapshotListener(repo, nil)

	assert.NotPanics(t, func() {
		s.OnDeviceFound(dimmer(1))
		s.OnDeviceRemoved(dimmer(1))
	})

	_, err := s.Restore(context.Background(), device.NewRegistry())
	assert.Error(t, err)
}
