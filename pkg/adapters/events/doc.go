// Package events provides implementations of the calibration event bus.
//
// Implementations:
//   - redis: Redis Streams with consumer groups
//   - memory: in-process delivery, in publish order
package events
