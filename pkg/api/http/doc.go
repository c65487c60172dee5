// Package http provides the HTTP REST API implementation.
//
// The HTTP server exposes endpoints for:
//   - Calibration run submission, queries and cancellation
//   - Calibration order and node status queries
//   - The calibration journal
//   - Health checks and Prometheus metrics
package http
