// Package console renders calibration events as human readable status
// lines: the calibration order as an arrow chart, one line per node
// decision and a banner when the run ends.
package console
