// Package hardware provides ports.Hardware implementations.
//
// Implementations:
//   - simulator: synthetic transmon responses for sweeps built by
//     measurement.SweepBuilder, plus a rate limited bias source
package hardware
