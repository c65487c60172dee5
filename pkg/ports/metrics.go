package ports

import "time"

// MetricsCollector records calibration metrics.
type MetricsCollector interface {
	RecordNodeInspected(status string)
	RecordNodeCalibrated(node, result string, duration time.Duration)
	RecordMeasurement(node string)
	RecordRejection(node string)
	SetActiveRuns(n int)
}
