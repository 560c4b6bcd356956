package device

import (
	"maps"
	"strings"
	"time"
)

// Well-known runtime property numbers.
const (
	// PropertyLevel is the output level, 0..MaxLevel.
	PropertyLevel = 1
)

// Device is a hub device as last reported by the controller network.
//
// ObjectID is assigned by the hub and never changes. Properties only grow
// or overwrite; a device with no properties has no observed state yet,
// which is distinct from a known level of zero.
type Device struct {
	ObjectID     int         `json:"objectId"`
	Name         string      `json:"name"`
	Description  string      `json:"description"`
	SerialNumber int64       `json:"serialNumber"`
	DeviceClass  int64       `json:"deviceClass"`
	Properties   map[int]int `json:"properties"`
	LastUpdated  time.Time   `json:"lastUpdated"`
}

// Clone returns an independent copy of the device.
func (d Device) Clone() Device {
	cpy := d
	if d.Properties != nil {
		cpy.Properties = maps.Clone(d.Properties)
	}
	return cpy
}

// HasState reports whether any runtime property has been observed.
func (d Device) HasState() bool {
	return len(d.Properties) > 0
}

// Level returns the last known output level.
func (d Device) Level() (int, bool) {
	v, ok := d.Properties[PropertyLevel]
	return v, ok
}

// Category returns the classification of the device.
func (d Device) Category() Category {
	return Classify(d)
}

// sameIdentity reports whether the descriptive fields match.
func (d Device) sameIdentity(o Device) bool {
	return d.Name == o.Name &&
		d.Description == o.Description &&
		d.SerialNumber == o.SerialNumber &&
		d.DeviceClass == o.DeviceClass
}

// Category is the locally derived kind of a device. It is never stored
// authoritatively; it is recomputed from DeviceClass when needed.
type Category string

// Device categories.
const (
	CategoryLight         Category = "Light"
	CategoryDimmableLight Category = "DimmableLight"
	CategoryVariableFan   Category = "VariableFan"
	CategoryRemote        Category = "Remote"
	CategoryShade         Category = "Shade"
	CategoryUnsupported   Category = "Unsupported"
)

// AllCategories lists every category in classification priority order,
// followed by CategoryUnsupported.
var AllCategories = []Category{
	CategoryRemote,
	CategoryVariableFan,
	CategoryDimmableLight,
	CategoryLight,
	CategoryShade,
	CategoryUnsupported,
}

// Controllable reports whether the category accepts level commands.
func (c Category) Controllable() bool {
	switch c {
	case CategoryLight, CategoryDimmableLight, CategoryVariableFan, CategoryShade:
		return true
	default:
		return false
	}
}

// ParseCategory converts a case-insensitive name to a Category.
func ParseCategory(s string) (Category, bool) {
	for _, c := range AllCategories {
		if strings.EqualFold(string(c), s) {
			return c, true
		}
	}
	return "", false
}
