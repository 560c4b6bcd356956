package lutron

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
)

// Envelope command names.
const (
	CmdGetDevices            = "GetDevices"
	CmdRuntimePropertyQuery  = "RuntimePropertyQuery"
	CmdGoToLevel             = "GoToLevel"
	CmdListDevices           = "ListDevices"
	CmdRuntimePropertyUpdate = "RuntimePropertyUpdate"
)

const (
	// objectTypeDevice is the hub's object type for output devices.
	objectTypeDevice = 15

	// stateRunning is the heartbeat value of the status topic.
	stateRunning = "running"
)

// Command is an outbound envelope published on the commands topic.
//
//	{"cmd": "GoToLevel", "args": {...}}
type Command struct {
	Cmd  string `json:"cmd"`
	Args any    `json:"args"`
}

// Marshal encodes the envelope.
func (c Command) Marshal() ([]byte, error) {
	if c.Args == nil {
		c.Args = struct{}{}
	}
	return json.Marshal(c)
}

// ObjectID returns the device a GoToLevel command targets.
func (c Command) ObjectID() (int, bool) {
	if a, ok := c.Args.(goToLevelArgs); ok {
		return a.ObjectID, true
	}
	return 0, false
}

// GetDevices requests the full device inventory.
func GetDevices() Command {
	return Command{Cmd: CmdGetDevices, Args: struct{}{}}
}

type queryArgs struct {
	Params [][]any `json:"Params"`
}

// RuntimePropertyQuery requests the current value of the given properties
// of one device. With no properties it asks for the level.
func RuntimePropertyQuery(objectID int, properties ...int) Command {
	if len(properties) == 0 {
		properties = []int{device.PropertyLevel}
	}
	return Command{
		Cmd: CmdRuntimePropertyQuery,
		Args: queryArgs{
			Params: [][]any{{objectID, objectTypeDevice, properties}},
		},
	}
}

type goToLevelArgs struct {
	ObjectID   int `json:"ObjectId"`
	ObjectType int `json:"ObjectType"`
	Fade       int `json:"Fade"`
	Delay      int `json:"Delay"`
	Level      int `json:"Level"`
}

// GoToLevel commands a device to a raw level, clamped to 0..MaxLevel.
func GoToLevel(objectID, level int) Command {
	return Command{
		Cmd: CmdGoToLevel,
		Args: goToLevelArgs{
			ObjectID:   objectID,
			ObjectType: objectTypeDevice,
			Level:      device.ClampLevel(level),
		},
	}
}

// envelope is an inbound message on the events topic.
type envelope struct {
	Cmd  string          `json:"cmd"`
	Args json.RawMessage `json:"args"`
}

func decodeEnvelope(payload []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return envelope{}, fmt.Errorf("%w: %w", ErrMalformedMessage, err)
	}
	if env.Cmd == "" {
		return envelope{}, fmt.Errorf("%w: missing cmd", ErrMalformedMessage)
	}
	return env, nil
}

// flexInt decodes an integer sent either bare or as a decimal string.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	v, err := n.Int64()
	if err != nil {
		return err
	}
	*f = flexInt(v)
	return nil
}

type deviceRecord struct {
	ObjectID     *flexInt `json:"ObjectId"`
	SerialNumber *flexInt `json:"SerialNumber"`
	DeviceClass  *flexInt `json:"DeviceClass"`
	Name         string   `json:"Name"`
	Description  string   `json:"Description"`
}

func (r deviceRecord) toDevice() (device.Device, error) {
	switch {
	case r.ObjectID == nil:
		return device.Device{}, fmt.Errorf("%w: missing ObjectId", ErrMalformedDevice)
	case *r.ObjectID <= 0:
		return device.Device{}, fmt.Errorf("%w: ObjectId %d", ErrMalformedDevice, *r.ObjectID)
	case r.SerialNumber == nil:
		return device.Device{}, fmt.Errorf("%w: object %d missing SerialNumber", ErrMalformedDevice, *r.ObjectID)
	case r.DeviceClass == nil:
		return device.Device{}, fmt.Errorf("%w: object %d missing DeviceClass", ErrMalformedDevice, *r.ObjectID)
	}
	return device.Device{
		ObjectID:     int(*r.ObjectID),
		Name:         r.Name,
		Description:  r.Description,
		SerialNumber: int64(*r.SerialNumber),
		DeviceClass:  int64(*r.DeviceClass),
		Properties:   map[int]int{},
	}, nil
}

// decodeListDevices decodes a ListDevices argument array. Records that
// fail to decode are returned as errors wrapping ErrMalformedDevice and do
// not affect the others. err is only set when args is not an array.
func decodeListDevices(args json.RawMessage) (devices []device.Device, skipped []error, err error) {
	var records []json.RawMessage
	if err := json.Unmarshal(args, &records); err != nil {
		return nil, nil, fmt.Errorf("%w: ListDevices args: %w", ErrMalformedMessage, err)
	}

	devices = make([]device.Device, 0, len(records))
	for i, raw := range records {
		var rec deviceRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			skipped = append(skipped, fmt.Errorf("%w: record %d: %w", ErrMalformedDevice, i, err))
			continue
		}
		d, err := rec.toDevice()
		if err != nil {
			skipped = append(skipped, fmt.Errorf("record %d: %w", i, err))
			continue
		}
		devices = append(devices, d)
	}
	return devices, skipped, nil
}

type propertyUpdate struct {
	ObjectID   *flexInt    `json:"ObjectId"`
	Properties [][]flexInt `json:"Properties"`
}

// decodePropertyUpdate decodes RuntimePropertyUpdate arguments into an
// object ID and property map.
func decodePropertyUpdate(args json.RawMessage) (int, map[int]int, error) {
	var u propertyUpdate
	if err := json.Unmarshal(args, &u); err != nil {
		return 0, nil, fmt.Errorf("%w: RuntimePropertyUpdate args: %w", ErrMalformedMessage, err)
	}
	if u.ObjectID == nil {
		return 0, nil, fmt.Errorf("%w: RuntimePropertyUpdate missing ObjectId", ErrMalformedMessage)
	}

	props := make(map[int]int, len(u.Properties))
	for _, pair := range u.Properties {
		if len(pair) < 2 {
			return 0, nil, fmt.Errorf("%w: property pair %v", ErrMalformedMessage, pair)
		}
		props[int(pair[0])] = int(pair[1])
	}
	return int(*u.ObjectID), props, nil
}

// statusMessage is the free-form payload of the status topic. Only state
// is inspected.
type statusMessage struct {
	State string `json:"state"`
}

func decodeStatus(payload []byte) (statusMessage, error) {
	var st statusMessage
	if err := json.Unmarshal(payload, &st); err != nil {
		return statusMessage{}, fmt.Errorf("%w: status: %w", ErrMalformedMessage, err)
	}
	return st, nil
}

// RemoteEvent is a button press from a battery remote.
//
//	{"serial": "C726CA", "action": "down", "button": "select"}
type RemoteEvent struct {
	Serial string `json:"serial"`
	Action string `json:"action"`
	Button string `json:"button"`
}

func decodeRemoteEvent(payload []byte) (RemoteEvent, error) {
	var ev RemoteEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return RemoteEvent{}, fmt.Errorf("%w: remote: %w", ErrMalformedMessage, err)
	}
	return ev, nil
}
