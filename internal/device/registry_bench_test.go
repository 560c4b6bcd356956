package device

import (
	"fmt"
	"testing"
	"time"
)

// benchInventory builds n listed devices with a level property each.
func benchInventory(n int) []Device {
	devices := make([]Device, n)
	for i := range devices {
		devices[i] = Device{
			ObjectID:    i + 1,
			Name:        fmt.Sprintf("Device %d", i),
			DeviceClass: 0x04320101,
			Properties:  map[int]int{PropertyLevel: i % MaxLevel},
		}
	}
	return devices
}

func setupBenchRegistry(b *testing.B, n int) *Registry {
	b.Helper()
	reg := NewRegistry()
	reg.UpsertAll(benchInventory(n), time.Now())
	return reg
}

func BenchmarkRegistryGet(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Get(50) //nolint:errcheck // benchmark
	}
}

func BenchmarkRegistryGet_Parallel(b *testing.B) {
	reg := setupBenchRegistry(b, 100)

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			reg.Get(50) //nolint:errcheck // benchmark
		}
	})
}

func BenchmarkRegistryUpsertAll(b *testing.B) {
	reg := NewRegistry()
	inv := benchInventory(200)
	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.UpsertAll(inv, now)
	}
}

func BenchmarkRegistryMergeProperty(b *testing.B) {
	reg := setupBenchRegistry(b, 100)
	now := time.Now()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.MergeProperty(i%100+1, PropertyLevel, i%MaxLevel, now) //nolint:errcheck // benchmark
	}
}

func BenchmarkRegistrySnapshot(b *testing.B) {
	reg := setupBenchRegistry(b, 500)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reg.Snapshot()
	}
}
