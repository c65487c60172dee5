// Package websocket provides real-time event streaming via WebSocket.
//
// Clients connect to /api/v1/events/ws for every calibration event, or to
// /api/v1/runs/:id/ws for the events of one run.
package websocket
