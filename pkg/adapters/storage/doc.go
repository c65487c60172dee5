// Package storage provides parameter store implementations.
//
// Implementations:
//   - redis: one hash per entity plus a calibration status hash
//   - memory: In-memory for testing
package storage
