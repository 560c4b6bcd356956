// Package api implements the HTTP REST API and WebSocket server for the
// Lutron gateway.
//
// This package provides:
//   - REST endpoints for the device registry and level commands
//   - WebSocket hub broadcasting device and hub status events
//   - Middleware stack (request ID, logging, recovery, CORS)
//
// # Endpoints
//
// REST (all under /api/v1):
//
//	GET  /health                         engine summary, 503 when the hub is not connected
//	GET  /status                         connection state and last status report
//	GET  /devices[?category=Light]       device list with category and percent
//	GET  /devices/{objectId}             one device, 404 when unknown
//	PUT  /devices/{objectId}/level       {"percent":n} | {"on":bool} | {"step":"increase|decrease|up|down"}
//	POST /devices/{objectId}/refresh     request a level update from the hub
//
// Level commands return 202: the hub confirms with a device.changed event.
// They fail with 503 not_connected while the hub is offline and 422 for
// devices that do not accept levels.
//
// # WebSocket
//
// Clients connect to GET /ws and send
//
//	{"type":"subscribe","id":"1","payload":{"channels":["devices","status"]}}
//
// to receive device.found, device.removed and device.changed on the devices
// channel and hub.status on the status channel. There is no authentication;
// the gateway is meant for a trusted LAN.
package api
