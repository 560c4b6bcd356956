package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/bridges/lutron"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
)

// DeviceView is the API representation of a device.
type DeviceView struct {
	ObjectID     int             `json:"object_id"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	SerialNumber int64           `json:"serial_number"`
	DeviceClass  int64           `json:"device_class"`
	Category     device.Category `json:"category"`
	Controllable bool            `json:"controllable"`
	Level        *int            `json:"level,omitempty"`
	Percent      *int            `json:"percent,omitempty"`
	LastUpdated  *time.Time      `json:"last_updated,omitempty"`
}

// NewDeviceView converts a registry device. Level fields are omitted until
// a level has been observed.
func NewDeviceView(d device.Device) DeviceView {
	cat := d.Category()
	v := DeviceView{
		ObjectID:     d.ObjectID,
		Name:         d.Name,
		Description:  d.Description,
		SerialNumber: d.SerialNumber,
		DeviceClass:  d.DeviceClass,
		Category:     cat,
		Controllable: cat.Controllable(),
	}
	if lvl, ok := d.Level(); ok {
		pct := device.ToPercent(lvl)
		v.Level = &lvl
		v.Percent = &pct
	}
	if !d.LastUpdated.IsZero() {
		at := d.LastUpdated
		v.LastUpdated = &at
	}
	return v
}

// handleListDevices returns all devices.
//
// Query parameters:
//   - category: filter by category (Light, DimmableLight, VariableFan, Remote, Shade, Unsupported)
func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	var filter device.Category
	if c := r.URL.Query().Get("category"); c != "" {
		cat, ok := device.ParseCategory(c)
		if !ok {
			writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "unknown category: "+c)
			return
		}
		filter = cat
	}

	devices := s.gateway.GetDevices()
	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		if filter != "" && d.Category() != filter {
			continue
		}
		views = append(views, NewDeviceView(d))
	}
	writeJSON(w, http.StatusOK, map[string]any{"devices": views, "count": len(views)})
}

// handleGetDevice returns a single device by object ID.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}

	d, err := s.gateway.GetDeviceByObjectID(id)
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewDeviceView(d))
}

// LevelRequest is the body of PUT /devices/{objectId}/level. Exactly one
// field must be set.
type LevelRequest struct {
	Percent *int    `json:"percent,omitempty"`
	On      *bool   `json:"on,omitempty"`
	Step    *string `json:"step,omitempty"`
}

// Step directions.
const (
	StepIncrease = "increase"
	StepDecrease = "decrease"
	StepUp       = "up"
	StepDown     = "down"
)

func (req LevelRequest) validate() error {
	set := 0
	if req.Percent != nil {
		set++
		if *req.Percent < 0 || *req.Percent > 100 {
			return fmt.Errorf("percent must be between 0 and 100")
		}
	}
	if req.On != nil {
		set++
	}
	if req.Step != nil {
		set++
		switch *req.Step {
		case StepIncrease, StepDecrease, StepUp, StepDown:
		default:
			return fmt.Errorf("step must be one of increase, decrease, up, down")
		}
	}
	if set != 1 {
		return fmt.Errorf("exactly one of percent, on or step is required")
	}
	return nil
}

// handleSetLevel sends a level command through a device controller. The
// response is 202: the hub confirms asynchronously with a state change.
func (s *Server) handleSetLevel(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}

	var req LevelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	c := lutron.NewController(s.gateway, id)
	var err error
	switch {
	case req.Percent != nil:
		err = c.SetPercent(*req.Percent)
	case req.On != nil:
		err = c.SetOn(*req.On)
	default:
		switch *req.Step {
		case StepIncrease:
			err = c.Increase()
		case StepDecrease:
			err = c.Decrease()
		case StepUp:
			err = c.Up()
		case StepDown:
			err = c.Down()
		}
	}
	if err != nil {
		s.writeGatewayError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"object_id": id,
		"status":    "accepted",
	})
}

// handleRefreshDevice asks the hub for the device's current level.
func (s *Server) handleRefreshDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := objectID(w, r)
	if !ok {
		return
	}

	if err := s.gateway.RequestUpdateForDevice(id); err != nil {
		s.writeGatewayError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"object_id": id,
		"status":    "requested",
	})
}

// objectID parses the {objectId} path parameter, writing a 400 on failure.
func objectID(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "objectId")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid object id: "+raw)
		return 0, false
	}
	return id, true
}
