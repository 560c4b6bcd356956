package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names written by the gateway.
const (
	MeasurementLevel      = "lutron_level"
	MeasurementConnection = "lutron_connection"
	MeasurementRemote     = "lutron_remote"
)

// LevelSample is one observed output level of a hub device.
type LevelSample struct {
	ObjectID int
	Name     string
	Category string
	Level    int // 0..65535
	Percent  int // 0..100
	At       time.Time
}

// WriteLevel records a device level change.
//
// Example:
//
//	client.WriteLevel(influxdb.LevelSample{ObjectID: 42, Category: "DimmableLight", Level: 32768, Percent: 50, At: now})
func (c *Client) WriteLevel(s LevelSample) {
	c.write(levelPoint(s))
}

// WriteConnectionState records a hub connection state transition.
func (c *Client) WriteConnectionState(state, detail string, at time.Time) {
	c.write(connectionPoint(state, detail, at))
}

// WriteRemoteEvent records a remote button press.
func (c *Client) WriteRemoteEvent(serial, button, action string, at time.Time) {
	c.write(remotePoint(serial, button, action, at))
}

// WritePoint writes a custom point with full control over tags and fields.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]any, at time.Time) {
	c.write(write.NewPoint(measurement, tags, fields, at))
}

func (c *Client) write(p *write.Point) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(p)
}

func levelPoint(s LevelSample) *write.Point {
	return write.NewPoint(
		MeasurementLevel,
		map[string]string{
			"object_id": strconv.Itoa(s.ObjectID),
			"category":  s.Category,
		},
		map[string]any{
			"level":   s.Level,
			"percent": s.Percent,
			"name":    s.Name,
		},
		s.At,
	)
}

// StateOnline is the connection state recorded while the hub is reachable.
const StateOnline = "online"

func connectionPoint(state, detail string, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementConnection,
		map[string]string{"state": state},
		map[string]any{"detail": detail, "up": state == StateOnline},
		at,
	)
}

func remotePoint(serial, button, action string, at time.Time) *write.Point {
	return write.NewPoint(
		MeasurementRemote,
		map[string]string{
			"serial": serial,
			"button": button,
		},
		map[string]any{"action": action},
		at,
	)
}
