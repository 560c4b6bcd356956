package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/lutron-mqtt-gateway/internal/bridges/lutron"
	"github.com/nerrad567/lutron-mqtt-gateway/internal/device"
)

// Error is the body of every non-2xx response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error codes returned in Error.Code.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeInternal     = "internal_error"
	ErrCodeValidation   = "validation_error"
	ErrCodeNotConnected = "not_connected"
	ErrCodeUnsupported  = "unsupported_command"
)

// gatewayErrors maps engine sentinels to responses, first match wins.
// An empty message passes the error text through.
var gatewayErrors = []struct {
	target  error
	status  int
	code    string
	message string
}{
	{device.ErrDeviceNotFound, http.StatusNotFound, ErrCodeNotFound, "device not found"},
	{lutron.ErrUnknownDevice, http.StatusNotFound, ErrCodeNotFound, "device not found"},
	{lutron.ErrNotConnected, http.StatusServiceUnavailable, ErrCodeNotConnected, "hub not connected"},
	{lutron.ErrUnsupportedCommand, http.StatusUnprocessableEntity, ErrCodeUnsupported, ""},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // The client may already be gone
		json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{Status: status, Code: code, Message: message})
}

// writeGatewayError maps engine errors to HTTP responses. Unrecognised
// errors are logged and reported as 500 without detail.
func (s *Server) writeGatewayError(w http.ResponseWriter, err error) {
	for _, m := range gatewayErrors {
		if !errors.Is(err, m.target) {
			continue
		}
		msg := m.message
		if msg == "" {
			msg = err.Error()
		}
		writeError(w, m.status, m.code, msg)
		return
	}
	s.logger.Error("gateway command failed", "error", err)
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, "command failed")
}
