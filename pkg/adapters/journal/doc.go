// Package journal provides the calibration journal, one row per pass of
// the supervisor over a node.
//
// Implementations:
//   - sqlite: modernc.org/sqlite, pure Go, WAL mode
package journal
