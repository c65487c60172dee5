// Package executor runs the measurement of one calibration node.
//
// The executor walks the external samplespace of a node strictly in
// declared order:
//   - reduce the external samplespace to the current point
//   - run the pre-measurement hook with the reduced samplespace
//   - compile the schedule (once, or per point for parameterized sweeps)
//   - execute it with a timeout while a progress monitor logs elapsed time
//   - configure the raw buffers and concatenate along the external axis
//
// Batched schedule quantities are executed batch by batch and joined along
// the batched axis.
package executor
