package lutron

import (
	"fmt"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
)

// Facade is the engine surface a device controller needs.
type Facade interface {
	GetDeviceByObjectID(id int) (device.Device, error)
	SetDesiredState(cmd Command) error
	RequestUpdateForDevice(id int) error
}

// Controller translates user-level commands for one device into GoToLevel
// commands. It holds an explicit Facade handle and looks the device up on
// every call, so it always steps from the latest known level.
type Controller struct {
	facade   Facade
	objectID int
}

// NewController returns a controller for objectID.
func NewController(f Facade, objectID int) *Controller {
	return &Controller{facade: f, objectID: objectID}
}

// ObjectID returns the controlled device.
func (c *Controller) ObjectID() int { return c.objectID }

// Device returns the latest registry view of the device.
func (c *Controller) Device() (device.Device, error) {
	return c.facade.GetDeviceByObjectID(c.objectID)
}

// Percent returns the last known level as a percentage. ok is false when
// no level has been observed yet.
func (c *Controller) Percent() (percent int, ok bool, err error) {
	d, err := c.Device()
	if err != nil {
		return 0, false, err
	}
	lvl, ok := d.Level()
	if !ok {
		return 0, false, nil
	}
	return device.ToPercent(lvl), true, nil
}

// SetPercent sends the device to percent (0..100).
func (c *Controller) SetPercent(percent int) error {
	if _, err := c.controllable(); err != nil {
		return err
	}
	return c.goTo(device.ToLevel(percent))
}

// SetOn switches the device fully on or off.
func (c *Controller) SetOn(on bool) error {
	if _, err := c.controllable(); err != nil {
		return err
	}
	return c.goTo(device.OnOffLevel(on))
}

// Increase raises the level by one step.
func (c *Controller) Increase() error { return c.step(true) }

// Decrease lowers the level by one step.
func (c *Controller) Decrease() error { return c.step(false) }

// Up is Increase for shades and fans.
func (c *Controller) Up() error { return c.step(true) }

// Down is Decrease for shades and fans.
func (c *Controller) Down() error { return c.step(false) }

// Refresh asks the hub for the device's current level.
func (c *Controller) Refresh() error {
	return c.facade.RequestUpdateForDevice(c.objectID)
}

func (c *Controller) step(up bool) error {
	d, err := c.controllable()
	if err != nil {
		return err
	}
	// No observed level steps from zero.
	lvl, _ := d.Level()
	return c.goTo(device.StepLevel(lvl, up))
}

func (c *Controller) goTo(level int) error {
	return c.facade.SetDesiredState(GoToLevel(c.objectID, level))
}

func (c *Controller) controllable() (device.Device, error) {
	d, err := c.Device()
	if err != nil {
		return device.Device{}, err
	}
	if cat := d.Category(); !cat.Controllable() {
		return device.Device{}, fmt.Errorf("%w: object %d is %s", ErrUnsupportedCommand, c.objectID, cat)
	}
	return d, nil
}
