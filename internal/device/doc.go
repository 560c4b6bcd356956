// Package device holds the gateway's view of hub devices.
//
// The hub identifies every device by an integer object ID and reports a
// device class code plus a sparse map of numbered runtime properties.
// Property 1 is the output level on a 0..65535 scale.
//
// # Key Types
//
//   - Device: last reported descriptive fields and runtime properties
//   - Category: local classification derived from the device class code
//   - Registry: thread-safe in-memory table keyed by object ID
//   - Repository: SQLite snapshot of the inventory for warm restarts
//
// # Usage
//
//	reg := device.NewRegistry()
//	reg.SetLogger(log)
//
//	diff := reg.UpsertAll(listed, time.Now())
//	for _, d := range diff.Added {
//	    log.Info("found", "object_id", d.ObjectID, "category", d.Category())
//	}
//
//	d, err := reg.MergeProperty(id, device.PropertyLevel, device.ToLevel(50), time.Now())
//
// # Thread Safety
//
// Registry is safe for concurrent use. Values it returns are clones.
package device
